package rules

// Outcome is the result of a single tick.
type Outcome string

const (
	// OutcomeAdvanced means the snake took a step without eating.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeAte means the snake stepped onto food and grew.
	OutcomeAte Outcome = "ate"
	// OutcomeStuck means no legal move existed; the body is unchanged.
	OutcomeStuck Outcome = "stuck"
	// OutcomeCollided means the head ran into a wall, the body or a barrier.
	OutcomeCollided Outcome = "collided"
	// OutcomeTimeUp means a timed episode spent its turn budget.
	OutcomeTimeUp Outcome = "time-up"
)

// Terminal reports whether the outcome ends the episode.
func (o Outcome) Terminal() bool {
	return o == OutcomeStuck || o == OutcomeCollided || o == OutcomeTimeUp
}
