package rules

import (
	"math/rand"

	"github.com/battlesnakeio/autosnake/board"
)

func newTestEpisode(mode Mode, body []board.Cell, food board.Cell, barriers ...board.Cell) *Episode {
	ep := &Episode{
		ID:       "test-episode",
		Size:     20,
		Mode:     mode,
		Status:   GameStatusRunning,
		Snake:    Snake{Body: body},
		Food:     food,
		Barriers: barriers,
	}
	if mode.Manual() {
		ep.Direction = board.Right
	}
	if mode == ModeTimed {
		ep.Level = 1
	}
	return ep
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

type cueRecorder struct {
	cues []Cue
}

func (r *cueRecorder) Cue(c Cue) { r.cues = append(r.cues, c) }

type frameRecorder struct {
	frames []*Frame
}

func (r *frameRecorder) Render(f *Frame) { r.frames = append(r.frames, f) }
