package rules

import (
	"math/rand"
	"time"

	"github.com/battlesnakeio/autosnake/board"
	log "github.com/sirupsen/logrus"
)

// Controller advances an episode one tick at a time.
type Controller interface {
	Tick() Outcome
	Episode() *Episode
}

type settings struct {
	rng      *rand.Rand
	renderer Renderer
	cues     CueSink
	bound    int
	logger   log.FieldLogger
}

// Option configures a controller.
type Option func(*settings)

// WithRand sets the random source used for food, barriers and the random
// walk.
func WithRand(rng *rand.Rand) Option {
	return func(s *settings) { s.rng = rng }
}

// WithRenderer sets the renderer invoked after every tick.
func WithRenderer(r Renderer) Option {
	return func(s *settings) { s.renderer = r }
}

// WithCues sets the audio cue sink.
func WithCues(c CueSink) Option {
	return func(s *settings) { s.cues = c }
}

// WithExpansionBound caps pathfinder expansions per tick.
func WithExpansionBound(bound int) Option {
	return func(s *settings) { s.bound = bound }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{
		renderer: nopRenderer{},
		cues:     nopCues{},
		bound:    board.DefaultExpansionBound,
		logger:   log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// NewController returns the controller matching the episode's mode.
func NewController(ep *Episode, opts ...Option) Controller {
	if ep.Mode.Manual() {
		return NewManualController(ep, opts...)
	}
	return NewAutoController(ep, opts...)
}
