package rules

import "github.com/battlesnakeio/autosnake/board"

// CheckCollision compares the head against the board edge, the rest of the
// body and the barriers. It returns the cause of death when any of them match.
func CheckCollision(ep *Episode) (string, bool) {
	head := ep.Snake.Head()
	if deathByOutOfBounds(head, ep.Size) {
		return DeathCauseWallCollision, true
	}
	for _, b := range ep.Snake.Body[1:] {
		if deathByBodyCollision(head, b) {
			return DeathCauseSelfCollision, true
		}
	}
	if ep.IsBarrier(head) {
		return DeathCauseBarrierCollision, true
	}
	return "", false
}

func deathByBodyCollision(head, body board.Cell) bool {
	return head == body
}

func deathByOutOfBounds(head board.Cell, size int) bool {
	return (head.X < 0) || (head.X >= size) || (head.Y < 0) || (head.Y >= size)
}
