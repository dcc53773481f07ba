package rules

import (
	"github.com/battlesnakeio/autosnake/board"
	log "github.com/sirupsen/logrus"
)

// ManualController moves the snake in the direction last steered by the
// player. Running into a wall, the body or a barrier ends the episode. In
// timed mode the episode also ends after TimedTurns.
// It is not safe for concurrent use; callers serialise Steer and Tick.
type ManualController struct {
	ep      *Episode
	pending board.Direction
	settings
}

// NewManualController returns a controller that owns ep.
func NewManualController(ep *Episode, opts ...Option) *ManualController {
	if ep.Direction == "" {
		ep.Direction = board.Right
	}
	return &ManualController{ep: ep, settings: newSettings(opts)}
}

// Episode returns the controlled episode.
func (c *ManualController) Episode() *Episode { return c.ep }

// Steer queues a direction change for the next tick. Reversing onto the
// neck is ignored.
func (c *ManualController) Steer(d board.Direction) {
	if d == c.ep.Direction.Opposite() {
		return
	}
	c.pending = d
}

// Tick moves the snake one cell.
func (c *ManualController) Tick() Outcome {
	ep := c.ep
	if ep.Terminal() {
		return ep.Outcome
	}
	ep.Turn++
	if c.pending != "" && c.pending != ep.Direction.Opposite() {
		ep.Direction = c.pending
	}
	c.pending = ""
	updateSpecialFood(ep, c.rng)

	// Growth owed from food eaten on earlier ticks keeps the tail in place;
	// food eaten on this tick only pays out from the next one.
	next := ep.Snake.Head().Move(ep.Direction)
	prevBody := ep.Snake.Body
	grew := ep.Growth > 0
	if grew {
		ep.Snake.Grow(next)
	} else {
		ep.Snake.Step(next)
	}

	outcome := OutcomeAdvanced
	if cause, dead := CheckCollision(ep); dead {
		ep.Snake.Body = prevBody
		ep.Death = cause
		ep.Status = GameStatusComplete
		outcome = OutcomeCollided
		c.cues.Cue(CueCollision)
		c.cues.Cue(CueGameOver)
		c.logger.WithFields(log.Fields{
			"episode": ep.ID,
			"turn":    ep.Turn,
			"score":   ep.Score,
			"cause":   cause,
		}).Info("snake collided")
	} else {
		if grew {
			ep.Growth--
		}
		if ep.Special != nil && next == ep.Special.Cell {
			ep.Score += SpecialFoodScore
			ep.Growth += SpecialFoodGrowth
			ep.Special = nil
			outcome = OutcomeAte
			c.cues.Cue(CueEatSpecial)
		}
		if next == ep.Food {
			ep.Score++
			ep.Growth++
			g := ep.Grid()
			if ep.Special != nil {
				g.Block(ep.Special.Cell)
			}
			if food, ok := getUnoccupiedCell(g, c.rng); ok {
				ep.Food = food
			}
			outcome = OutcomeAte
			c.cues.Cue(CueEat)
		}
		if ep.Mode == ModeTimed {
			outcome = c.updateTimed(outcome)
		}
	}

	ep.Outcome = outcome
	tickOutcomes.WithLabelValues(string(ep.Mode), string(outcome)).Inc()
	c.renderer.Render(ep.Frame())
	return outcome
}

// updateTimed raises the level while the score outruns it and ends the
// episode once the turn budget is spent.
func (c *ManualController) updateTimed(outcome Outcome) Outcome {
	ep := c.ep
	for ep.Score > ep.Level*LevelScoreStep {
		ep.Level++
		c.logger.WithFields(log.Fields{
			"episode": ep.ID,
			"turn":    ep.Turn,
			"level":   ep.Level,
		}).Debug("level up")
	}
	if ep.Turn < TimedTurns {
		return outcome
	}
	ep.Death = DeathCauseTimeUp
	ep.Status = GameStatusComplete
	c.cues.Cue(CueGameOver)
	c.logger.WithFields(log.Fields{
		"episode": ep.ID,
		"turn":    ep.Turn,
		"score":   ep.Score,
		"level":   ep.Level,
	}).Info("time up")
	return OutcomeTimeUp
}
