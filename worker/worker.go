// Package worker provides the actual running of episodes. Workers pop
// running episodes from the controller, lock them and tick them to
// completion.
package worker

import (
	"context"
	"time"

	"github.com/battlesnakeio/autosnake/controller"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultHeartbeat = 500 * time.Millisecond

// RunFunc runs a single episode.
type RunFunc func(ctx context.Context, ctrl *controller.Controller, id string, opts Options) error

// Worker polls for episodes and runs them while holding their lock.
type Worker struct {
	Controller        *controller.Controller
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	// PopLimiter throttles polling across all workers sharing it.
	PopLimiter *rate.Limiter
	Options    Options
	// RunEpisode defaults to Runner.
	RunEpisode RunFunc
}

// Run will run the worker in a loop until ctx is done.
func (w *Worker) Run(ctx context.Context, workerID int) {
	for {
		if err := w.run(ctx, workerID); err != nil {
			if err != controller.ErrNotFound && ctx.Err() == nil {
				log.WithError(err).WithField("worker", workerID).Error("run failed")
			}

			select {
			case <-time.After(w.PollInterval):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) run(ctx context.Context, workerID int) error {
	if w.PopLimiter != nil {
		if err := w.PopLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	// Pop an item of work.
	id, err := w.Controller.Pop(ctx)
	if err != nil {
		return err
	}

	// Attempt to get the lock initially.
	token, err := w.Controller.Lock(ctx, id)
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"worker": workerID, "episode": id})
	logger.Info("acquired lock")

	// Get a context with the lock token.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = controller.ContextWithLockToken(ctx, token)

	defer func() {
		logger.Info("unlocking")
		if err := w.Controller.Unlock(ctx, id); err != nil {
			logger.WithError(err).Warn("unlock failed")
		}
	}()

	// Hold the lock, heartbeating every HeartbeatInterval.
	interval := w.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if _, err := w.Controller.Lock(ctx, id); err != nil {
					logger.WithError(err).Warn("lock expired during heartbeat")
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Run the episode, this respects context and Done() rules and writes
	// frames using the lock token carried by ctx.
	run := w.RunEpisode
	if run == nil {
		run = Runner
	}
	return run(ctx, w.Controller, id, w.Options)
}
