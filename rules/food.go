package rules

import (
	"math/rand"

	"github.com/battlesnakeio/autosnake/board"
)

const (
	// SpecialFoodInterval is how many turns pass between special food spawns.
	SpecialFoodInterval = 50
	// SpecialFoodLifetime is how many turns special food stays on the board.
	SpecialFoodLifetime = 100
	// SpecialFoodScore is the score awarded for eating special food.
	SpecialFoodScore = 5
	// SpecialFoodGrowth is how many cells the snake grows from special food.
	SpecialFoodGrowth = 2
)

// maxSamples bounds rejection sampling before falling back to a uniform pick
// among the free cells.
const maxSamples = 64

// spawnFood samples random cells until one is neither body nor barrier. It
// returns false when the board has no free cell at all.
func spawnFood(ep *Episode, rng *rand.Rand) (board.Cell, bool) {
	return getUnoccupiedCell(ep.Grid(), rng)
}

func getUnoccupiedCell(g *board.Grid, rng *rand.Rand) (board.Cell, bool) {
	if g.FreeCount() == 0 {
		return board.Cell{}, false
	}
	for i := 0; i < maxSamples; i++ {
		c := board.Cell{X: rng.Intn(g.Size()), Y: rng.Intn(g.Size())}
		if g.Free(c) {
			return c, true
		}
	}
	free := g.FreeCells()
	return free[rng.Intn(len(free))], true
}

// createBarriers picks n distinct cells that do not overlap the snake.
func createBarriers(ep *Episode, n int, rng *rand.Rand) []board.Cell {
	g := board.NewGrid(ep.Size)
	g.Block(ep.Snake.Body...)

	barriers := make([]board.Cell, 0, n)
	for len(barriers) < n {
		c, ok := getUnoccupiedCell(g, rng)
		if !ok {
			break
		}
		g.Block(c)
		barriers = append(barriers, c)
	}
	return barriers
}

// updateSpecialFood ages the active special food and spawns a new one every
// SpecialFoodInterval turns while none is active.
func updateSpecialFood(ep *Episode, rng *rand.Rand) {
	if ep.Special != nil {
		ep.Special.Remaining--
		if ep.Special.Remaining <= 0 {
			ep.Special = nil
		}
		return
	}
	if ep.Turn%SpecialFoodInterval != 0 {
		return
	}
	g := ep.Grid()
	g.Block(ep.Food)
	c, ok := getUnoccupiedCell(g, rng)
	if !ok {
		return
	}
	ep.Special = &SpecialFood{Cell: c, Remaining: SpecialFoodLifetime}
}
