package rules

import (
	"github.com/battlesnakeio/autosnake/board"
)

// Mode selects who steers the snake.
type Mode string

const (
	// ModeAuto drives the snake with the pathfinder and the random walk.
	ModeAuto Mode = "auto"
	// ModeManual steers the snake from player input.
	ModeManual Mode = "manual"
	// ModeTimed is the manual game against the clock, with levels that
	// speed the snake up.
	ModeTimed Mode = "timed"
)

// Manual reports whether the player steers the snake.
func (m Mode) Manual() bool {
	return m == ModeManual || m == ModeTimed
}

// Variant is a barrier preset.
type Variant string

const (
	// VariantAIGame places 5 barriers.
	VariantAIGame Variant = "ai-game"
	// VariantAISnake places 10 barriers.
	VariantAISnake Variant = "ai-snake"
	// VariantFreePlay places no barriers.
	VariantFreePlay Variant = "free-play"
)

// Barriers returns the number of barriers the variant places.
func (v Variant) Barriers() int {
	switch v {
	case VariantAISnake:
		return 10
	case VariantFreePlay:
		return 0
	}
	return 5
}

// SpecialFood is a short lived bonus item of the manual game.
type SpecialFood struct {
	Cell      board.Cell `json:"cell"`
	Remaining int        `json:"remaining"`
}

// Episode is one life of the snake, from spawn to a terminal outcome.
type Episode struct {
	ID        string          `json:"id"`
	Size      int             `json:"size"`
	Mode      Mode            `json:"mode"`
	Variant   Variant         `json:"variant"`
	Status    string          `json:"status"`
	Turn      int             `json:"turn"`
	Score     int             `json:"score"`
	Snake     Snake           `json:"snake"`
	Food      board.Cell      `json:"food"`
	Special   *SpecialFood    `json:"special,omitempty"`
	Barriers  []board.Cell    `json:"barriers"`
	Direction board.Direction `json:"direction,omitempty"`
	Growth    int             `json:"growth,omitempty"`
	Level     int             `json:"level,omitempty"`
	Outcome   Outcome         `json:"outcome,omitempty"`
	Death     string          `json:"death,omitempty"`
}

// InBounds reports whether c lies on the board.
func (ep *Episode) InBounds(c board.Cell) bool {
	return !deathByOutOfBounds(c, ep.Size)
}

// IsBarrier reports whether c holds a barrier.
func (ep *Episode) IsBarrier(c board.Cell) bool {
	for _, b := range ep.Barriers {
		if b == c {
			return true
		}
	}
	return false
}

// Grid builds the occupancy grid for the current tick: exactly the body and
// barrier cells are blocked.
func (ep *Episode) Grid() *board.Grid {
	g := board.NewGrid(ep.Size)
	g.Block(ep.Snake.Body...)
	g.Block(ep.Barriers...)
	return g
}

// Terminal reports whether the episode has ended.
func (ep *Episode) Terminal() bool {
	return ep.Outcome.Terminal() || ep.Status == GameStatusComplete || ep.Status == GameStatusError
}

// Clone returns a deep copy of the episode.
func (ep *Episode) Clone() *Episode {
	c := *ep
	c.Snake = Snake{Body: cloneCells(ep.Snake.Body)}
	c.Barriers = cloneCells(ep.Barriers)
	if ep.Special != nil {
		s := *ep.Special
		c.Special = &s
	}
	return &c
}

// Frame is the snapshot of an episode after a tick. Frames are what gets
// persisted, rendered and streamed.
type Frame struct {
	Turn     int          `json:"turn"`
	Body     []board.Cell `json:"body"`
	Food     board.Cell   `json:"food"`
	Special  *board.Cell  `json:"special,omitempty"`
	Barriers []board.Cell `json:"barriers"`
	Score    int          `json:"score"`
	Level    int          `json:"level,omitempty"`
	Outcome  Outcome      `json:"outcome,omitempty"`
	Death    string       `json:"death,omitempty"`
}

// Head returns the head cell of the frame's snake.
func (f *Frame) Head() board.Cell {
	return f.Body[0]
}

// Frame snapshots the episode.
func (ep *Episode) Frame() *Frame {
	f := &Frame{
		Turn:     ep.Turn,
		Body:     cloneCells(ep.Snake.Body),
		Food:     ep.Food,
		Barriers: cloneCells(ep.Barriers),
		Score:    ep.Score,
		Level:    ep.Level,
		Outcome:  ep.Outcome,
		Death:    ep.Death,
	}
	if ep.Special != nil {
		c := ep.Special.Cell
		f.Special = &c
	}
	return f
}

func cloneCells(cells []board.Cell) []board.Cell {
	if cells == nil {
		return nil
	}
	out := make([]board.Cell, len(cells))
	copy(out, cells)
	return out
}

// Restore rewinds the episode to the state captured by f. Growth still owed
// and the age of special food are not part of a frame and are reset.
func (ep *Episode) Restore(f *Frame) {
	ep.Turn = f.Turn
	ep.Score = f.Score
	ep.Level = f.Level
	ep.Snake = Snake{Body: cloneCells(f.Body)}
	ep.Food = f.Food
	ep.Barriers = cloneCells(f.Barriers)
	ep.Outcome = f.Outcome
	ep.Death = f.Death
	ep.Growth = 0
	ep.Special = nil
	if f.Special != nil {
		ep.Special = &SpecialFood{Cell: *f.Special, Remaining: SpecialFoodLifetime}
	}
	if d, ok := ep.Snake.Direction(); ok {
		ep.Direction = d
	}
}
