package worker

import (
	"context"
	"testing"
	"time"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestWorker_RunNoEpisode(t *testing.T) {
	w := &Worker{
		Controller:        controller.New(controller.InMemStore()),
		PollInterval:      200 * time.Millisecond,
		HeartbeatInterval: 200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := w.run(ctx, 1)
	require.Equal(t, controller.ErrNotFound, err)
}

func TestWorker_Run(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	w := &Worker{
		Controller:        ctrl,
		PollInterval:      1 * time.Millisecond,
		HeartbeatInterval: 1 * time.Millisecond,
		PopLimiter:        rate.NewLimiter(rate.Inf, 1),
		Options:           Options{MaxTurns: 50},
	}

	id := newEpisode(t, ctrl, rules.CreateRequest{})

	err := w.run(context.Background(), 1)
	require.NoError(t, err)

	st, err := ctrl.Status(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)

	// The lock is released once the episode is done.
	_, err = ctrl.Lock(context.Background(), id)
	require.NoError(t, err)
}

func TestWorker_RunHoldsLock(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	id := newEpisode(t, ctrl, rules.CreateRequest{})

	w := &Worker{
		Controller:        ctrl,
		PollInterval:      1 * time.Millisecond,
		HeartbeatInterval: 1 * time.Millisecond,
		RunEpisode: func(ctx context.Context, c *controller.Controller, got string, _ Options) error {
			require.Equal(t, id, got)
			require.NotEmpty(t, controller.ContextGetLockToken(ctx))

			// Nobody else can take the episode while it runs.
			_, err := c.Lock(context.Background(), got)
			require.Equal(t, controller.ErrIsLocked, err)
			_, err = c.Pop(context.Background())
			require.Equal(t, controller.ErrNotFound, err)
			return nil
		},
	}
	require.NoError(t, w.run(context.Background(), 1))
}

func TestWorker_Deadline(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	w := &Worker{
		Controller:        ctrl,
		PollInterval:      1 * time.Millisecond,
		HeartbeatInterval: 1 * time.Millisecond,
		Options:           Options{TicksPerSecond: 20},
	}
	newEpisode(t, ctrl, rules.CreateRequest{Size: 40, Variant: rules.VariantFreePlay})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := w.run(ctx, 1)
	require.Error(t, err)
}

func TestWorker_RunLoop(t *testing.T) {
	ctrl := controller.New(controller.InMemStore())
	w := &Worker{
		Controller:        ctrl,
		PollInterval:      1 * time.Millisecond,
		HeartbeatInterval: 1 * time.Millisecond,
		Options:           Options{MaxTurns: 20},
	}

	id := newEpisode(t, ctrl, rules.CreateRequest{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx, 1)

	st, err := ctrl.Status(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, rules.GameStatusComplete, st.Episode.Status)
}
