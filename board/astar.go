package board

import (
	"container/heap"
	"fmt"

	"github.com/pkg/errors"
)

// DefaultExpansionBound caps the number of nodes a search may expand.
const DefaultExpansionBound = 1000

var (
	// ErrNoPath is returned when the open set is exhausted without reaching
	// the goal.
	ErrNoPath = errors.New("board: no path to goal")
	// ErrExpansionLimit is returned when the search gives up after expanding
	// the maximum number of nodes.
	ErrExpansionLimit = errors.New("board: expansion limit reached")
)

// IsNoPath reports whether err means the goal could not be routed to, either
// because none exists or because the search was cut short.
func IsNoPath(err error) bool {
	err = errors.Cause(err)
	return err == ErrNoPath || err == ErrExpansionLimit
}

// Path is a route from a start cell to a goal cell, both inclusive.
type Path []Cell

// Next returns the first step after the start cell.
func (p Path) Next() (Cell, bool) {
	if len(p) < 2 {
		return Cell{}, false
	}
	return p[1], true
}

type node struct {
	cell    Cell
	parent  *node
	g, h, f int
	seq     int
	index   int
}

func (n *node) path() Path {
	var p Path
	for cur := n; cur != nil; cur = cur.parent {
		p = append(p, cur.cell)
	}
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// openSet is a min-heap on f. Equal f values pop in insertion order.
type openSet []*node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f == o[j].f {
		return o[i].seq < o[j].seq
	}
	return o[i].f < o[j].f
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() interface{} {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}

// heuristic is the squared euclidean distance. It overestimates the unit step
// cost, so routes around obstacles are not guaranteed to be shortest.
func heuristic(c, goal Cell) int {
	dx, dy := goal.X-c.X, goal.Y-c.Y
	return dx*dx + dy*dy
}

// FindPath runs an A* search from start to goal over the free cells of g.
// The start cell itself may be blocked. At most bound nodes are expanded; a
// bound of zero or less uses DefaultExpansionBound.
//
// Start and goal must lie on the grid, FindPath panics otherwise.
func FindPath(start, goal Cell, g *Grid, bound int) (Path, error) {
	if !g.InBounds(start) {
		panic(fmt.Sprintf("board: start %v outside %dx%d grid", start, g.size, g.size))
	}
	if !g.InBounds(goal) {
		panic(fmt.Sprintf("board: goal %v outside %dx%d grid", goal, g.size, g.size))
	}
	if bound <= 0 {
		bound = DefaultExpansionBound
	}

	var (
		open     = &openSet{}
		closed   = map[Cell]bool{}
		bestOpen = map[Cell]int{start: 0}
		seq      int
	)
	heap.Push(open, &node{cell: start, h: heuristic(start, goal), f: heuristic(start, goal)})

	expansions := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if closed[current.cell] {
			// stale duplicate of an expanded cell
			continue
		}
		if expansions == bound {
			return nil, ErrExpansionLimit
		}
		expansions++

		if current.cell == goal {
			return current.path(), nil
		}
		closed[current.cell] = true

		for _, d := range Directions {
			next := current.cell.Move(d)
			if g.Blocked(next) || closed[next] {
				continue
			}
			cost := current.g + 1
			if best, ok := bestOpen[next]; ok && best <= cost {
				continue
			}
			bestOpen[next] = cost
			seq++
			h := heuristic(next, goal)
			heap.Push(open, &node{
				cell:   next,
				parent: current,
				g:      cost,
				h:      h,
				f:      cost + h,
				seq:    seq,
			})
		}
	}
	return nil, ErrNoPath
}
