package rules

import (
	"testing"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/stretchr/testify/require"
)

func TestGetUnoccupiedCellFindsLastFreeCell(t *testing.T) {
	g := board.NewGrid(DefaultGridSize)
	last := board.Cell{X: 13, Y: 7}
	for x := 0; x < DefaultGridSize; x++ {
		for y := 0; y < DefaultGridSize; y++ {
			if c := (board.Cell{X: x, Y: y}); c != last {
				g.Block(c)
			}
		}
	}

	rng := testRand()
	for i := 0; i < 20; i++ {
		c, ok := getUnoccupiedCell(g, rng)
		require.True(t, ok)
		require.Equal(t, last, c)
	}

	g.Block(last)
	_, ok := getUnoccupiedCell(g, rng)
	require.False(t, ok)
}
