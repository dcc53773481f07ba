// Package testsuite holds the behaviour every controller.Store must share.
package testsuite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
)

func testEpisode(id, status string) *rules.Episode {
	return &rules.Episode{
		ID:       id,
		Size:     20,
		Mode:     rules.ModeAuto,
		Variant:  rules.VariantAIGame,
		Status:   status,
		Snake:    rules.Snake{Body: []board.Cell{{X: 5, Y: 5}}},
		Food:     board.Cell{X: 8, Y: 5},
		Barriers: []board.Cell{{X: 1, Y: 1}, {X: 2, Y: 9}},
	}
}

func testFrame(turn int) *rules.Frame {
	return &rules.Frame{
		Turn:     turn,
		Body:     []board.Cell{{X: 5 + turn, Y: 5}},
		Food:     board.Cell{X: 18, Y: 5},
		Barriers: []board.Cell{{X: 1, Y: 1}},
		Score:    turn / 2,
		Outcome:  rules.OutcomeAdvanced,
	}
}

func testStoreLock(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()

	ctx := context.Background()

	// Lock random key.
	tok, err := s.Lock(ctx, key, "")
	require.Nil(t, err)
	require.NotEmpty(t, tok)

	// Lock without token is refused.
	_, err = s.Lock(ctx, key, "")
	require.Equal(t, controller.ErrIsLocked, err)

	// Lock with valid token, no error same token returned.
	tok2, err := s.Lock(ctx, key, tok)
	require.Nil(t, err)
	require.Equal(t, tok, tok2)

	// Unlock without valid token returns error.
	err = s.Unlock(ctx, key, "")
	require.Error(t, err)

	// Unlock with valid token no error.
	err = s.Unlock(ctx, key, tok)
	require.Nil(t, err)

	// Unlock where lock doesn't exist returns no error.
	err = s.Unlock(ctx, key+"-missing", "")
	require.Nil(t, err)

	// Lock with a caller chosen token.
	tok, err = s.Lock(ctx, key, "chosen")
	require.Nil(t, err)
	require.Equal(t, "chosen", tok)
}

func testStoreLockExpiry(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()
	ctx := context.Background()

	// Negative expiry, will always be expired.
	controller.LockExpiry = -10 * time.Second
	defer func() { controller.LockExpiry = 1 * time.Second }()

	// Lock random key.
	tok, err := s.Lock(ctx, key, "")
	require.Nil(t, err)
	require.NotEmpty(t, tok)

	// Lock (with token) has expired.
	tok2, err := s.Lock(ctx, key, tok)
	require.Nil(t, err)
	require.Equal(t, tok, tok2)

	// Unlock (no token) has expired.
	err = s.Unlock(ctx, key, "")
	require.NoError(t, err)

	// Lock (no token) has expired.
	_, err = s.Lock(ctx, key, "")
	require.Nil(t, err)

	// Lock (other token) has expired.
	_, err = s.Lock(ctx, key, "other")
	require.Nil(t, err)

	// Unlock (no token) has expired.
	err = s.Unlock(ctx, key, "")
	require.Nil(t, err)
}

func testStoreEpisodeStatus(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()
	ctx := context.Background()

	// Create a stopped episode, cannot pop.
	err := s.CreateEpisode(ctx, testEpisode(key, rules.GameStatusStopped), nil)
	require.Nil(t, err)
	_, err = s.PopEpisodeID(ctx)
	require.Equal(t, controller.ErrNotFound, err)

	// Set episode to running.
	err = s.SetEpisodeStatus(ctx, key, rules.GameStatusRunning)
	require.Nil(t, err)

	// Pop episode can find it.
	id, err := s.PopEpisodeID(ctx)
	require.Nil(t, err)
	require.Equal(t, key, id)

	// Set episode to error.
	err = s.SetEpisodeStatus(ctx, key, rules.GameStatusError)
	require.Nil(t, err)

	ep, err := s.GetEpisode(ctx, key)
	require.Nil(t, err)
	require.Equal(t, rules.GameStatusError, ep.Status)

	// Cannot pop.
	_, err = s.PopEpisodeID(ctx)
	require.NotNil(t, err)

	// Missing episode.
	err = s.SetEpisodeStatus(ctx, key+"-missing", rules.GameStatusRunning)
	require.Equal(t, controller.ErrNotFound, err)
}

func testStoreEpisodes(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()
	ctx := context.Background()

	// Create and fetch an episode.
	in := testEpisode(key, rules.GameStatusRunning)
	err := s.CreateEpisode(ctx, in, nil)
	require.Nil(t, err)
	ep, err := s.GetEpisode(ctx, key)
	require.Nil(t, err)
	require.Equal(t, in, ep)

	// NotFound error thrown.
	_, err = s.GetEpisode(ctx, key+"-missing")
	require.Equal(t, controller.ErrNotFound, err)

	// Pop episode can find it.
	id, err := s.PopEpisodeID(ctx)
	require.Nil(t, err)
	require.Equal(t, key, id)

	// Lock test key, cannot pop.
	_, err = s.Lock(ctx, key, "")
	require.Nil(t, err)
	_, err = s.PopEpisodeID(ctx)
	require.NotNil(t, err)
}

func testStoreFrames(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()
	ctx := context.Background()

	// Create and fetch an episode.
	err := s.CreateEpisode(ctx, testEpisode(key, rules.GameStatusRunning), nil)
	require.Nil(t, err)

	// Read frames, too high offset.
	frames, err := s.ListFrames(ctx, key, 10, 100)
	require.Nil(t, err)
	require.Equal(t, 0, len(frames))

	// Read frames, 0 offset.
	frames, err = s.ListFrames(ctx, key, 10, 0)
	require.Nil(t, err)
	require.Equal(t, 0, len(frames))

	// Push frames.
	for i := 0; i < 3; i++ {
		err = s.PushFrame(ctx, key, testFrame(i))
		require.Nil(t, err)
	}

	// Out of sequence frames are refused.
	err = s.PushFrame(ctx, key, testFrame(1))
	require.Equal(t, controller.ErrInvalidSequence, err)
	err = s.PushFrame(ctx, key, testFrame(5))
	require.Equal(t, controller.ErrInvalidSequence, err)

	// Read all the frames.
	frames, err = s.ListFrames(ctx, key, 10, 0)
	require.Nil(t, err)
	require.Equal(t, []*rules.Frame{testFrame(0), testFrame(1), testFrame(2)}, frames)

	// No limit.
	frames, err = s.ListFrames(ctx, key, 0, 0)
	require.Nil(t, err)
	require.Equal(t, 3, len(frames))

	// Offset and limit.
	frames, err = s.ListFrames(ctx, key, 1, 1)
	require.Nil(t, err)
	require.Equal(t, []*rules.Frame{testFrame(1)}, frames)

	// Negative offset.
	frames, err = s.ListFrames(ctx, key, 1, -1)
	require.Nil(t, err)
	require.Equal(t, []*rules.Frame{testFrame(2)}, frames)
	frames, err = s.ListFrames(ctx, key, 10, -2)
	require.Nil(t, err)
	require.Equal(t, []*rules.Frame{testFrame(1), testFrame(2)}, frames)

	// Read frames that don't exist.
	frames, err = s.ListFrames(ctx, key+"-missing", 1, 0)
	require.Equal(t, controller.ErrNotFound, err)
	require.Equal(t, 0, len(frames))

	// Push to a missing episode.
	err = s.PushFrame(ctx, key+"-missing", testFrame(0))
	require.Equal(t, controller.ErrNotFound, err)

	// Read the frames, too high offset.
	frames, err = s.ListFrames(ctx, key, 10, 100)
	require.Nil(t, err)
	require.Equal(t, 0, len(frames))
}

func testStoreInitialFrames(t *testing.T, s controller.Store) {
	ctx := context.Background()

	key := uuid.NewV4().String()
	err := s.CreateEpisode(ctx, testEpisode(key, rules.GameStatusStopped),
		[]*rules.Frame{testFrame(0), testFrame(1)})
	require.Nil(t, err)
	frames, err := s.ListFrames(ctx, key, 10, 0)
	require.Nil(t, err)
	require.Equal(t, 2, len(frames))
	require.Nil(t, s.PushFrame(ctx, key, testFrame(2)))

	// Initial frames must start at turn zero.
	key = uuid.NewV4().String()
	err = s.CreateEpisode(ctx, testEpisode(key, rules.GameStatusStopped),
		[]*rules.Frame{testFrame(1)})
	require.Equal(t, controller.ErrInvalidSequence, err)
}

func testStoreHighScore(t *testing.T, s controller.Store) {
	ctx := context.Background()

	score, err := s.HighScore(ctx)
	require.Nil(t, err)
	require.Equal(t, 0, score)

	record, err := s.SubmitScore(ctx, 7)
	require.Nil(t, err)
	require.True(t, record)

	record, err = s.SubmitScore(ctx, 7)
	require.Nil(t, err)
	require.False(t, record)

	record, err = s.SubmitScore(ctx, 3)
	require.Nil(t, err)
	require.False(t, record)

	score, err = s.HighScore(ctx)
	require.Nil(t, err)
	require.Equal(t, 7, score)

	record, err = s.SubmitScore(ctx, 12)
	require.Nil(t, err)
	require.True(t, record)
	score, err = s.HighScore(ctx)
	require.Nil(t, err)
	require.Equal(t, 12, score)
}

func testStoreConcurrentWriters(t *testing.T, s controller.Store) {
	key := uuid.NewV4().String()
	ctx := context.Background()

	// Create an episode.
	err := s.CreateEpisode(ctx, testEpisode(key, rules.GameStatusRunning), nil)
	require.Nil(t, err)

	var ok uint32 // How many got the lock.
	var wg sync.WaitGroup
	wg.Add(20)

	for i := 0; i < 20; i++ {
		go func() {
			// Lock key, only one writer may win.
			_, errl := s.Lock(ctx, key, "")
			if errl == nil {
				atomic.AddUint32(&ok, 1)
			}
			wg.Done()
		}()
	}

	wg.Wait()

	require.Equal(t, uint32(1), ok)
}

// Suite will execute the store testsuite. pretest runs before every case
// and must leave the store empty.
func Suite(t *testing.T, s controller.Store, pretest func()) {
	s = controller.InstrumentStore(s)
	t.Run("Lock", func(t *testing.T) { pretest(); testStoreLock(t, s) })
	t.Run("LockExpiry", func(t *testing.T) { pretest(); testStoreLockExpiry(t, s) })
	t.Run("Episodes", func(t *testing.T) { pretest(); testStoreEpisodes(t, s) })
	t.Run("EpisodeStatus", func(t *testing.T) { pretest(); testStoreEpisodeStatus(t, s) })
	t.Run("Frames", func(t *testing.T) { pretest(); testStoreFrames(t, s) })
	t.Run("InitialFrames", func(t *testing.T) { pretest(); testStoreInitialFrames(t, s) })
	t.Run("HighScore", func(t *testing.T) { pretest(); testStoreHighScore(t, s) })
	t.Run("ConcurrentWriters", func(t *testing.T) { pretest(); testStoreConcurrentWriters(t, s) })
}
