package rules

import (
	log "github.com/sirupsen/logrus"
)

// Cue is an audio cue the presentation layer may play.
type Cue string

const (
	// CueEat is played when regular food is eaten.
	CueEat Cue = "eat"
	// CueEatSpecial is played when special food is eaten.
	CueEatSpecial Cue = "eat-special"
	// CueCollision is played when the snake collides or gets stuck.
	CueCollision Cue = "collision"
	// CueGameOver is played when an episode ends.
	CueGameOver Cue = "game-over"
)

// Renderer draws a frame. Controllers call it once per tick after the state
// has been updated and never wait on it.
type Renderer interface {
	Render(*Frame)
}

// CueSink accepts fire-and-forget audio cues.
type CueSink interface {
	Cue(Cue)
}

type nopRenderer struct{}

func (nopRenderer) Render(*Frame) {}

type nopCues struct{}

func (nopCues) Cue(Cue) {}

// LogRenderer writes a one line summary of every frame at debug level.
type LogRenderer struct {
	Logger log.FieldLogger
}

// Render logs the frame.
func (r LogRenderer) Render(f *Frame) {
	r.Logger.WithFields(log.Fields{
		"turn":    f.Turn,
		"head":    f.Head(),
		"length":  len(f.Body),
		"food":    f.Food,
		"score":   f.Score,
		"outcome": f.Outcome,
	}).Debug("frame")
}

// LogCues writes cues at info level.
type LogCues struct {
	Logger log.FieldLogger
}

// Cue logs c.
func (l LogCues) Cue(c Cue) {
	l.Logger.WithField("cue", c).Info("cue")
}
