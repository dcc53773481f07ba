package rules

import (
	"testing"

	"github.com/battlesnakeio/autosnake/board"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestAutoTickFollowsPathToFood(t *testing.T) {
	ep := newTestEpisode(ModeAuto, []board.Cell{{X: 5, Y: 5}}, board.Cell{X: 8, Y: 5})
	frames := &frameRecorder{}
	cues := &cueRecorder{}
	c := NewAutoController(ep, WithRand(testRand()), WithRenderer(frames), WithCues(cues))

	require.Equal(t, OutcomeAdvanced, c.Tick())
	require.Equal(t, board.Cell{X: 6, Y: 5}, ep.Snake.Head())
	require.Equal(t, OutcomeAdvanced, c.Tick())
	require.Equal(t, board.Cell{X: 7, Y: 5}, ep.Snake.Head())
	require.Equal(t, OutcomeAte, c.Tick())
	require.Equal(t, []board.Cell{{X: 8, Y: 5}, {X: 7, Y: 5}}, ep.Snake.Body)

	require.Equal(t, 1, ep.Score)
	require.Equal(t, 3, ep.Turn)
	require.False(t, ep.Snake.Contains(ep.Food))
	require.Equal(t, []Cue{CueEat}, cues.cues)
	require.Len(t, frames.frames, 3)
	require.Equal(t, OutcomeAte, frames.frames[2].Outcome)
}

func TestAutoTickAdjacentFoodIsEaten(t *testing.T) {
	barriers := []board.Cell{{X: 0, Y: 0}, {X: 19, Y: 19}}
	ep := newTestEpisode(ModeAuto, []board.Cell{{X: 5, Y: 5}}, board.Cell{X: 5, Y: 4}, barriers...)
	c := NewAutoController(ep, WithRand(testRand()))

	require.Equal(t, OutcomeAte, c.Tick())
	require.Equal(t, 2, ep.Snake.Len())
	require.Equal(t, board.Cell{X: 5, Y: 4}, ep.Snake.Head())
	require.False(t, ep.Snake.Contains(ep.Food))
	require.False(t, ep.IsBarrier(ep.Food))
}

func TestAutoTickStuckIsTerminal(t *testing.T) {
	ep := newTestEpisode(ModeAuto, []board.Cell{{X: 0, Y: 0}}, board.Cell{X: 10, Y: 10},
		board.Cell{X: 1, Y: 0}, board.Cell{X: 0, Y: 1})
	cues := &cueRecorder{}
	c := NewAutoController(ep, WithRand(testRand()), WithCues(cues))

	require.Equal(t, OutcomeStuck, c.Tick())
	require.Equal(t, []board.Cell{{X: 0, Y: 0}}, ep.Snake.Body)
	require.Equal(t, DeathCauseStuck, ep.Death)
	require.Equal(t, GameStatusComplete, ep.Status)
	require.True(t, ep.Terminal())
	require.Equal(t, []Cue{CueCollision, CueGameOver}, cues.cues)

	// ticking a finished episode changes nothing
	require.Equal(t, OutcomeStuck, c.Tick())
	require.Equal(t, 1, ep.Turn)
	require.Len(t, cues.cues, 2)
}

func TestAutoTickRandomWalkWhenFoodUnreachable(t *testing.T) {
	food := board.Cell{X: 19, Y: 19}
	body := []board.Cell{{X: 8, Y: 8}, {X: 8, Y: 9}, {X: 8, Y: 10}, {X: 8, Y: 11}}
	ep := newTestEpisode(ModeAuto, body, food, board.Cell{X: 18, Y: 19}, board.Cell{X: 19, Y: 18})
	c := NewAutoController(ep, WithRand(testRand()))

	for i := 0; i < 10; i++ {
		prev := Snake{Body: append([]board.Cell(nil), ep.Snake.Body...)}
		require.Equal(t, OutcomeAdvanced, c.Tick())
		head := ep.Snake.Head()
		require.True(t, prev.Head().Adjacent(head))
		require.False(t, prev.Contains(head), "turn %d stepped onto the body", ep.Turn)
		require.True(t, ep.InBounds(head))
		require.False(t, ep.IsBarrier(head))
		require.Equal(t, len(body), ep.Snake.Len())
	}
	require.Equal(t, 0, ep.Score)
	require.Equal(t, food, ep.Food)
}

func TestRandomStepAvoidsTail(t *testing.T) {
	// In the corner (0, 1) is the only free neighbour until the tail covers it.
	body := []board.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	ep := newTestEpisode(ModeAuto, body[:3], board.Cell{X: 19, Y: 19})
	for i := 0; i < 10; i++ {
		next, ok := randomStep(ep, testRand())
		require.True(t, ok)
		require.Equal(t, board.Cell{X: 0, Y: 1}, next)
	}

	ep.Snake.Body = body
	_, ok := randomStep(ep, testRand())
	require.False(t, ok, "the tail still counts as body")
}

func TestAutoTickLogsExpansionLimit(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ep := newTestEpisode(ModeAuto, []board.Cell{{X: 5, Y: 5}}, board.Cell{X: 15, Y: 15})
	c := NewAutoController(ep, WithRand(testRand()), WithExpansionBound(1), WithLogger(logger))

	require.Equal(t, OutcomeAdvanced, c.Tick())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, log.WarnLevel, entry.Level)
	require.Equal(t, "pathfinder expansion limit reached", entry.Message)
	require.Equal(t, 1, entry.Data["bound"])
}

func TestAutoEpisodeKeepsInvariants(t *testing.T) {
	ep, err := NewEpisode(CreateRequest{Variant: VariantAISnake}, testRand())
	require.NoError(t, err)
	ep.Status = GameStatusRunning
	c := NewAutoController(ep, WithRand(testRand()))

	for i := 0; i < 2000 && !ep.Terminal(); i++ {
		c.Tick()
		seen := map[board.Cell]bool{}
		for _, b := range ep.Snake.Body {
			require.True(t, ep.InBounds(b))
			require.False(t, ep.IsBarrier(b))
			require.False(t, seen[b], "body overlaps itself at %v", b)
			seen[b] = true
		}
		require.Equal(t, ep.Score+1, ep.Snake.Len())
		if ep.Grid().FreeCount() > 0 {
			require.False(t, ep.Snake.Contains(ep.Food))
		}
	}
}

func TestNewControllerPicksMode(t *testing.T) {
	auto := newTestEpisode(ModeAuto, []board.Cell{{X: 1, Y: 1}}, board.Cell{X: 3, Y: 3})
	_, ok := NewController(auto).(*AutoController)
	require.True(t, ok)

	manual := newTestEpisode(ModeManual, []board.Cell{{X: 1, Y: 1}}, board.Cell{X: 3, Y: 3})
	_, ok = NewController(manual).(*ManualController)
	require.True(t, ok)
}
