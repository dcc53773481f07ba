package rules

import "github.com/battlesnakeio/autosnake/board"

// Snake is an ordered body, head first.
type Snake struct {
	Body []board.Cell `json:"body"`
}

// Head returns the first cell of the body.
func (s *Snake) Head() board.Cell {
	return s.Body[0]
}

// Tail returns the last cell of the body.
func (s *Snake) Tail() board.Cell {
	return s.Body[len(s.Body)-1]
}

// Len returns the number of body cells.
func (s *Snake) Len() int { return len(s.Body) }

// Step moves the snake: the new head is prepended and the tail dropped.
func (s *Snake) Step(head board.Cell) {
	s.Body = append([]board.Cell{head}, s.Body[:len(s.Body)-1]...)
}

// Grow prepends a new head and keeps the tail.
func (s *Snake) Grow(head board.Cell) {
	s.Body = append([]board.Cell{head}, s.Body...)
}

// Contains reports whether any body cell equals c.
func (s *Snake) Contains(c board.Cell) bool {
	for _, b := range s.Body {
		if b == c {
			return true
		}
	}
	return false
}

// Direction is the direction of travel from the neck to the head. A single
// cell snake has no direction.
func (s *Snake) Direction() (board.Direction, bool) {
	if len(s.Body) < 2 {
		return "", false
	}
	return board.DirectionTo(s.Body[1], s.Body[0])
}
