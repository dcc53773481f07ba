package rules

import (
	"math/rand"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// DefaultGridSize is the edge length of the board.
const DefaultGridSize = 20

// CreateRequest holds the options for a new episode.
type CreateRequest struct {
	Size    int     `json:"size"`
	Mode    Mode    `json:"mode"`
	Variant Variant `json:"variant"`
}

// ErrInvalidRequest is the cause of every create request validation error.
var ErrInvalidRequest = errors.New("rules: invalid create request")

// autoStart is where the autonomous snake spawns.
var autoStart = board.Cell{X: 5, Y: 5}

// NewEpisode creates a fresh snake, barrier set and food for one life. The
// returned episode is stopped and at turn zero.
func NewEpisode(req CreateRequest, rng *rand.Rand) (*Episode, error) {
	if req.Size == 0 {
		req.Size = DefaultGridSize
	}
	if req.Mode == "" {
		req.Mode = ModeAuto
	}
	if req.Variant == "" {
		req.Variant = VariantAIGame
		if req.Mode.Manual() {
			req.Variant = VariantFreePlay
		}
	}
	switch req.Mode {
	case ModeAuto, ModeManual, ModeTimed:
	default:
		return nil, errors.Wrapf(ErrInvalidRequest, "mode %q", req.Mode)
	}
	if req.Size < 2 {
		return nil, errors.Wrapf(ErrInvalidRequest, "grid size %d is too small", req.Size)
	}
	// one cell for the snake, one for the food
	if req.Variant.Barriers()+2 > req.Size*req.Size {
		return nil, errors.Wrapf(ErrInvalidRequest, "%d barriers do not fit a %dx%d grid",
			req.Variant.Barriers(), req.Size, req.Size)
	}

	ep := &Episode{
		ID:      uuid.NewV4().String(),
		Size:    req.Size,
		Mode:    req.Mode,
		Variant: req.Variant,
		Status:  GameStatusStopped,
	}

	start := board.Cell{X: req.Size / 2, Y: req.Size / 2}
	if req.Mode == ModeAuto && autoStart.X < req.Size && autoStart.Y < req.Size {
		start = autoStart
	}
	if req.Mode.Manual() {
		ep.Direction = board.Right
	}
	if req.Mode == ModeTimed {
		ep.Level = 1
	}
	ep.Snake = Snake{Body: []board.Cell{start}}
	ep.Barriers = createBarriers(ep, req.Variant.Barriers(), rng)

	food, ok := spawnFood(ep, rng)
	if !ok {
		return nil, errors.New("rules: no room left for food")
	}
	ep.Food = food
	return ep, nil
}
