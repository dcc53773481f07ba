package rules

import (
	"math/rand"

	"github.com/battlesnakeio/autosnake/board"
)

// randomStep tries the four directions in random order and returns the first
// cell that is on the board, off the body and not a barrier.
func randomStep(ep *Episode, rng *rand.Rand) (board.Cell, bool) {
	dirs := make([]board.Direction, len(board.Directions))
	copy(dirs, board.Directions)
	rng.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})

	head := ep.Snake.Head()
	for _, d := range dirs {
		next := head.Move(d)
		if ep.InBounds(next) && !ep.Snake.Contains(next) && !ep.IsBarrier(next) {
			return next, true
		}
	}
	return board.Cell{}, false
}
