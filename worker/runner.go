package worker

import (
	"context"
	"math/rand"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Options tune how a Runner drives an episode.
type Options struct {
	// TicksPerSecond paces the frame clock. Zero runs unthrottled.
	TicksPerSecond int
	// MaxTurns ends the episode once reached. Zero means no limit.
	MaxTurns int
	// ExpansionBound caps pathfinder expansions per tick.
	ExpansionBound int
	Renderer       rules.Renderer
	Cues           rules.CueSink
	// Directions steers manual episodes.
	Directions <-chan board.Direction
	// Paused holds the episode between ticks while it returns true. It is
	// only consulted on a throttled clock.
	Paused func() bool
	Rand   *rand.Rand
}

func (o Options) controllerOptions() []rules.Option {
	var opts []rules.Option
	if o.Rand != nil {
		opts = append(opts, rules.WithRand(o.Rand))
	}
	if o.Renderer != nil {
		opts = append(opts, rules.WithRenderer(o.Renderer))
	}
	if o.Cues != nil {
		opts = append(opts, rules.WithCues(o.Cues))
	}
	if o.ExpansionBound > 0 {
		opts = append(opts, rules.WithExpansionBound(o.ExpansionBound))
	}
	return opts
}

// Runner will run an individual episode to completion. Every tick is pushed
// to the controller as a frame. When ctx carries no lock token the runner
// takes the episode lock itself. Episodes that already ended are left
// untouched.
func Runner(ctx context.Context, ctrl *controller.Controller, id string, opts Options) error {
	st, err := ctrl.Status(ctx, id)
	if err != nil {
		return err
	}
	ep := st.Episode
	if ep.Status == rules.GameStatusComplete || ep.Status == rules.GameStatusError {
		log.WithFields(log.Fields{
			"episode": id,
			"status":  ep.Status,
		}).Debug("episode already ended")
		return nil
	}
	if st.LastFrame != nil {
		ep.Restore(st.LastFrame)
	}

	if controller.ContextGetLockToken(ctx) == "" {
		token, err := ctrl.Lock(ctx, id)
		if err != nil {
			return err
		}
		ctx = controller.ContextWithLockToken(ctx, token)
		defer func() {
			if err := ctrl.Unlock(ctx, id); err != nil {
				log.WithError(err).WithField("episode", id).Warn("unable to unlock episode")
			}
		}()
	}

	// The last worker stored a terminal frame but died before ending the
	// episode.
	if ep.Outcome.Terminal() {
		return endEpisode(ctx, ctrl, ep)
	}

	ep.Status = rules.GameStatusRunning
	c := rules.NewController(ep, opts.controllerOptions()...)
	manual, _ := c.(*rules.ManualController)

	var limiter *rate.Limiter
	level := ep.Level
	if opts.TicksPerSecond > 0 {
		limiter = rate.NewLimiter(tickLimit(opts.TicksPerSecond, level), 1)
	}

	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if opts.Paused != nil && opts.Paused() {
				continue
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if manual != nil {
			steer(manual, opts.Directions)
		}

		outcome := c.Tick()

		log.WithFields(log.Fields{
			"episode": id,
			"turn":    ep.Turn,
			"outcome": outcome,
		}).Debug("adding frame")
		if err := ctrl.AddFrame(ctx, id, ep.Frame()); err != nil {
			if err == controller.ErrIsLocked || ctx.Err() != nil {
				// Someone else owns the episode now, not to worry here.
				return err
			}
			log.WithError(err).
				WithField("episode", id).
				Error("ending episode due to store failure")
			if _, endErr := ctrl.EndEpisode(ctx, id, rules.GameStatusError, ep.Score); endErr != nil {
				log.WithError(endErr).
					WithField("episode", id).
					Error("failed to end episode after store failure")
			}
			return err
		}

		if outcome.Terminal() || (opts.MaxTurns > 0 && ep.Turn >= opts.MaxTurns) {
			return endEpisode(ctx, ctrl, ep)
		}

		if limiter != nil && ep.Level != level {
			level = ep.Level
			limiter.SetLimit(tickLimit(opts.TicksPerSecond, level))
		}
	}
}

func tickLimit(base, level int) rate.Limit {
	return rate.Limit(rules.TickRate(float64(base), level))
}

func endEpisode(ctx context.Context, ctrl *controller.Controller, ep *rules.Episode) error {
	record, err := ctrl.EndEpisode(ctx, ep.ID, rules.GameStatusComplete, ep.Score)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"episode":    ep.ID,
		"turn":       ep.Turn,
		"score":      ep.Score,
		"outcome":    ep.Outcome,
		"high_score": record,
	}).Info("ending episode")
	return nil
}

// steer applies every direction queued since the last tick.
func steer(c *rules.ManualController, dirs <-chan board.Direction) {
	for {
		select {
		case d, ok := <-dirs:
			if !ok {
				return
			}
			c.Steer(d)
		default:
			return
		}
	}
}
