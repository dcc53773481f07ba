package rules

import (
	"github.com/battlesnakeio/autosnake/board"
	log "github.com/sirupsen/logrus"
)

// AutoController drives a snake towards food with the pathfinder. When no
// route exists it takes a random legal step, and when no legal step exists
// the snake is stuck, which ends the episode.
type AutoController struct {
	ep *Episode
	settings
}

// NewAutoController returns a controller that owns ep.
func NewAutoController(ep *Episode, opts ...Option) *AutoController {
	return &AutoController{ep: ep, settings: newSettings(opts)}
}

// Episode returns the controlled episode.
func (c *AutoController) Episode() *Episode { return c.ep }

// Tick runs the episode one tick and reports what happened. Ticking an
// episode that already ended returns its final outcome unchanged.
func (c *AutoController) Tick() Outcome {
	ep := c.ep
	if ep.Terminal() {
		return ep.Outcome
	}
	ep.Turn++

	outcome := c.advance()
	ep.Outcome = outcome
	tickOutcomes.WithLabelValues(string(ep.Mode), string(outcome)).Inc()
	if outcome.Terminal() {
		ep.Death = DeathCauseStuck
		ep.Status = GameStatusComplete
		c.cues.Cue(CueGameOver)
		c.logger.WithFields(log.Fields{
			"episode": ep.ID,
			"turn":    ep.Turn,
			"score":   ep.Score,
		}).Info("snake is stuck")
	}
	c.renderer.Render(ep.Frame())
	return outcome
}

func (c *AutoController) advance() Outcome {
	ep := c.ep
	head := ep.Snake.Head()

	path, err := board.FindPath(head, ep.Food, ep.Grid(), c.bound)
	switch err {
	case nil:
		pathResults.WithLabelValues("found").Inc()
	case board.ErrExpansionLimit:
		pathResults.WithLabelValues("limit").Inc()
		c.logger.WithFields(log.Fields{
			"episode": ep.ID,
			"turn":    ep.Turn,
			"head":    head,
			"food":    ep.Food,
			"bound":   c.bound,
		}).Warn("pathfinder expansion limit reached")
	default:
		pathResults.WithLabelValues("no_path").Inc()
		c.logger.WithFields(log.Fields{
			"episode": ep.ID,
			"turn":    ep.Turn,
			"head":    head,
			"food":    ep.Food,
		}).Debug("no path to food")
	}

	if next, ok := path.Next(); ok {
		if next == ep.Food {
			ep.Snake.Grow(next)
			ep.Score++
			if food, ok := spawnFood(ep, c.rng); ok {
				ep.Food = food
			}
			c.cues.Cue(CueEat)
			return OutcomeAte
		}
		ep.Snake.Step(next)
		return OutcomeAdvanced
	}

	if next, ok := randomStep(ep, c.rng); ok {
		ep.Snake.Step(next)
		return OutcomeAdvanced
	}
	c.cues.Cue(CueCollision)
	return OutcomeStuck
}
