package rules

const (
	// TimedTurns is the turn budget of a timed episode: sixty seconds at
	// the base rate of ten ticks per second.
	TimedTurns = 600
	// LevelScoreStep is the score needed per level before the next one.
	LevelScoreStep = 5
	// LevelSpeedStep is how many ticks per second each level adds.
	LevelSpeedStep = 2
)

// TickRate returns the frame rate for level when level one runs at base
// ticks per second. Episodes outside timed mode stay at level zero and keep
// the base rate.
func TickRate(base float64, level int) float64 {
	if level <= 1 {
		return base
	}
	return base + float64((level-1)*LevelSpeedStep)
}
