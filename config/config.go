package config

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// Configuration variables. These aren't user facing but useful for tuning
// the details of episode and store performance.
var (
	GridSize       = getEnvInt("GRID_SIZE", 20)
	ExpansionBound = getEnvInt("EXPANSION_BOUND", 1000)
	TicksPerSecond = getEnvInt("TICKS_PER_SECOND", 10)
	MaxTurns       = getEnvInt("MAX_TURNS", 5000)
	MaxOpenConns   = getEnvInt("MAX_OPEN_CONNS", 20)
	MaxIdleConns   = getEnvInt("MAX_IDLE_CONNS", 20)
	PopRate        = rate.Limit(getEnvInt("POP_RPS", 40))
	PopBurstRate   = getEnvInt("POP_BURST", 10)
)

func getEnvInt(varName string, defaults int) int {
	val := os.Getenv(varName)
	if val == "" {
		return defaults
	}
	intVal, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return defaults
	}
	return int(intVal)
}
