// Package board holds the grid model shared by every snake controller and the
// A* search that routes a snake across it.
package board

import (
	"fmt"

	"github.com/pkg/errors"
)

// Cell is a single grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Move returns the cell one step away in direction d.
func (c Cell) Move(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Adjacent reports whether other is one axis-aligned step away from c.
func (c Cell) Adjacent(other Cell) bool {
	return abs(c.X-other.X)+abs(c.Y-other.Y) == 1
}

// Manhattan is the 4-connected step distance between two cells.
func (c Cell) Manhattan(other Cell) int {
	return abs(c.X-other.X) + abs(c.Y-other.Y)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is one of the four axis-aligned moves.
type Direction string

const (
	// Up decreases Y.
	Up Direction = "up"
	// Down increases Y.
	Down Direction = "down"
	// Left decreases X.
	Left Direction = "left"
	// Right increases X.
	Right Direction = "right"
)

// Directions lists the moves in successor order. The pathfinder expands
// neighbours in exactly this order.
var Directions = []Direction{Up, Down, Left, Right}

// Delta returns the coordinate offset of the direction. Unknown directions
// return a zero offset.
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// ParseDirection converts a move name into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Left, Right:
		return d, nil
	}
	return "", errors.Errorf("board: invalid direction %q", s)
}

// UnmarshalText accepts a move name or the empty string for no direction.
func (d *Direction) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = ""
		return nil
	}
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DirectionTo returns the direction that moves from one cell to an adjacent
// one.
func DirectionTo(from, to Cell) (Direction, bool) {
	for _, d := range Directions {
		if from.Move(d) == to {
			return d, true
		}
	}
	return "", false
}
