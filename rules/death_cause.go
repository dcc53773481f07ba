package rules

const (
	// DeathCauseWallCollision is when the head leaves the board
	DeathCauseWallCollision = "wall-collision"
	// DeathCauseSelfCollision is when the head runs into the snake's own body
	DeathCauseSelfCollision = "self-collision"
	// DeathCauseBarrierCollision is when the head runs into a barrier
	DeathCauseBarrierCollision = "barrier-collision"
	// DeathCauseStuck is when the snake has no legal move left
	DeathCauseStuck = "stuck"
	// DeathCauseTimeUp is when a timed episode runs out of turns
	DeathCauseTimeUp = "time-up"
)
