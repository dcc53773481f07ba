package board

// Grid is a square occupancy grid. A cell is either free or blocked.
type Grid struct {
	size    int
	blocked []bool
}

// NewGrid returns a size x size grid with every cell free.
func NewGrid(size int) *Grid {
	if size <= 0 {
		panic("board: grid size must be positive")
	}
	return &Grid{
		size:    size,
		blocked: make([]bool, size*size),
	}
}

// Size returns the grid edge length.
func (g *Grid) Size() int { return g.size }

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.size && c.Y >= 0 && c.Y < g.size
}

// Block marks cells as blocked. Cells off the grid are ignored.
func (g *Grid) Block(cells ...Cell) {
	for _, c := range cells {
		if g.InBounds(c) {
			g.blocked[g.index(c)] = true
		}
	}
}

// Blocked reports whether c is blocked. Cells off the grid are blocked.
func (g *Grid) Blocked(c Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	return g.blocked[g.index(c)]
}

// Free reports whether c is on the grid and not blocked.
func (g *Grid) Free(c Cell) bool {
	return !g.Blocked(c)
}

// FreeCount returns the number of free cells.
func (g *Grid) FreeCount() int {
	n := 0
	for _, b := range g.blocked {
		if !b {
			n++
		}
	}
	return n
}

// FreeCells returns every free cell in row-major order.
func (g *Grid) FreeCells() []Cell {
	cells := make([]Cell, 0, len(g.blocked))
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			c := Cell{X: x, Y: y}
			if !g.blocked[g.index(c)] {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.size + c.X
}
