package worker

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newEpisode(t *testing.T, ctrl *controller.Controller, req rules.CreateRequest) string {
	ep, err := ctrl.Create(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(context.Background(), ep.ID))
	return ep.ID
}

func TestRunner_RunsToCompletion(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())

	variants := map[string]rules.CreateRequest{
		"AIGame":   {Variant: rules.VariantAIGame},
		"AISnake":  {Variant: rules.VariantAISnake},
		"SmallBox": {Size: 6, Variant: rules.VariantFreePlay},
	}
	for name, req := range variants {
		t.Run(name, func(t *testing.T) {
			id := newEpisode(t, ctrl, req)
			err := Runner(ctx, ctrl, id, Options{MaxTurns: 400, Rand: rand.New(rand.NewSource(3))})
			require.NoError(t, err)

			st, err := ctrl.Status(ctx, id)
			require.NoError(t, err)
			t.Log(spew.Sdump(st.LastFrame))
			require.Equal(t, rules.GameStatusComplete, st.Episode.Status)

			frames, err := ctrl.Frames(ctx, id, 0, 0)
			require.NoError(t, err)
			for i, f := range frames {
				require.Equal(t, i, f.Turn)
			}
			last := frames[len(frames)-1]
			require.True(t, last.Outcome.Terminal() || last.Turn == 400)

			best, err := ctrl.HighScore(ctx)
			require.NoError(t, err)
			require.True(t, best >= last.Score)
		})
	}
}

func TestRunner_MaxTurns(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	require.NoError(t, Runner(ctx, ctrl, id, Options{MaxTurns: 3}))

	frames, err := ctrl.Frames(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)
}

func TestRunner_ResumesFromLastFrame(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	// The first worker dies after a single tick, leaving the episode running.
	crashed, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, Runner(crashed, ctrl, id, Options{TicksPerSecond: 1}))

	ctx := context.Background()
	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusRunning, st.Episode.Status)
	require.Equal(t, 1, st.LastFrame.Turn)

	require.NoError(t, Runner(ctx, ctrl, id, Options{MaxTurns: 5}))

	frames, err := ctrl.Frames(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 6)
	for i := 1; i < len(frames); i++ {
		require.True(t, frames[i-1].Head().Adjacent(frames[i].Head()))
	}
}

func TestRunner_FinishedEpisodeIsNotReplayed(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	require.NoError(t, Runner(ctx, ctrl, id, Options{MaxTurns: 2}))
	require.Equal(t, controller.ErrAlreadyStarted, ctrl.Start(ctx, id))
	require.NoError(t, Runner(ctx, ctrl, id, Options{MaxTurns: 5}))

	frames, err := ctrl.Frames(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)
}

type countingStore struct {
	controller.Store
	submitted int
}

func (s *countingStore) SubmitScore(ctx context.Context, score int) (bool, error) {
	s.submitted++
	return s.Store.SubmitScore(ctx, score)
}

func TestRunner_StuckEpisodeEndsOnce(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: controller.InMemStore()}
	ctrl := controller.New(store)

	// A snake boxed into the corner of a 2x2 board by its own body and a
	// barrier has no move left.
	ep, err := ctrl.Create(ctx, rules.CreateRequest{Size: 2, Variant: rules.VariantFreePlay})
	require.NoError(t, err)
	boxed := ep.Frame()
	boxed.Turn = 1
	boxed.Body = []board.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}
	boxed.Barriers = []board.Cell{{X: 0, Y: 1}}
	boxed.Food = board.Cell{X: 1, Y: 1}
	tok, err := ctrl.Lock(ctx, ep.ID)
	require.NoError(t, err)
	locked := controller.ContextWithLockToken(ctx, tok)
	require.NoError(t, ctrl.AddFrame(locked, ep.ID, boxed))
	require.NoError(t, ctrl.Unlock(locked, ep.ID))
	require.NoError(t, ctrl.Start(ctx, ep.ID))

	require.NoError(t, Runner(ctx, ctrl, ep.ID, Options{}))
	require.NoError(t, Runner(ctx, ctrl, ep.ID, Options{}))

	frames, err := ctrl.Frames(ctx, ep.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Equal(t, rules.OutcomeStuck, frames[2].Outcome)
	require.Equal(t, 1, store.submitted)

	st, err := ctrl.Status(ctx, ep.ID)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)
}

func TestRunner_TerminalLastFrameEndsEpisode(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	// A worker stored the terminal frame and died before ending the episode.
	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	stuck := *st.LastFrame
	stuck.Turn = 1
	stuck.Outcome = rules.OutcomeStuck
	stuck.Death = rules.DeathCauseStuck
	tok, err := ctrl.Lock(ctx, id)
	require.NoError(t, err)
	locked := controller.ContextWithLockToken(ctx, tok)
	require.NoError(t, ctrl.AddFrame(locked, id, &stuck))
	require.NoError(t, ctrl.Unlock(locked, id))

	require.NoError(t, Runner(ctx, ctrl, id, Options{}))

	frames, err := ctrl.Frames(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	st, err = ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)
}

func TestTickLimitFollowsLevel(t *testing.T) {
	require.Equal(t, rate.Limit(10), tickLimit(10, 0))
	require.Equal(t, rate.Limit(10), tickLimit(10, 1))
	require.Equal(t, rate.Limit(14), tickLimit(10, 3))
}

func TestRunner_ManualSteering(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{Mode: rules.ModeManual})

	dirs := make(chan board.Direction, 2)
	dirs <- board.Up
	require.NoError(t, Runner(ctx, ctrl, id, Options{MaxTurns: 1, Directions: dirs}))

	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, board.Cell{X: 10, Y: 9}, st.LastFrame.Head())
}

func TestRunner_MissingEpisode(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	err := Runner(context.Background(), ctrl, "missing", Options{})
	require.Equal(t, controller.ErrNotFound, err)
}

type failingStore struct {
	controller.Store
}

func (failingStore) PushFrame(context.Context, string, *rules.Frame) error {
	return errors.New("disk full")
}

func TestRunner_StoreFailureEndsEpisode(t *testing.T) {
	ctx := context.Background()
	store := controller.InMemStore()
	ctrl := controller.New(store)
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	failing := controller.New(failingStore{store})
	err := Runner(ctx, failing, id, Options{})
	require.EqualError(t, err, "disk full")

	st, err := ctrl.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusError, st.Episode.Status)
}

func TestRunner_LockedByAnotherWorker(t *testing.T) {
	ctx := context.Background()
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	_, err := ctrl.Lock(ctx, id)
	require.NoError(t, err)

	err = Runner(ctx, ctrl, id, Options{})
	require.Equal(t, controller.ErrIsLocked, err)
}

func TestRunner_FrameClockRespectsContext(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Runner(ctx, ctrl, id, Options{TicksPerSecond: 1})
	require.Error(t, err)

	frames, err := ctrl.Frames(context.Background(), id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 2, "only the first tick fits before the deadline")
}

func TestRunner_Paused(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Runner(ctx, ctrl, id, Options{
		TicksPerSecond: 200,
		Paused:         func() bool { return true },
	})
	require.Error(t, err)

	frames, err := ctrl.Frames(context.Background(), id, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 1)
}
