package wire

import "strings"

// Direction is a snake's chosen move for one turn
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

// String returns the lowercase wire form of the direction
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	}
	return "up"
}

// Offset returns the coordinate delta one step in this direction
func (d Direction) Offset() Coord {
	switch d {
	case DirectionUp:
		return Coord{X: 0, Y: 1}
	case DirectionDown:
		return Coord{X: 0, Y: -1}
	case DirectionLeft:
		return Coord{X: -1, Y: 0}
	case DirectionRight:
		return Coord{X: 1, Y: 0}
	}
	return Coord{X: 0, Y: 1}
}

// ParseDirection parses a wire direction string. Matching is case-insensitive
// but does not trim whitespace; snakes that pad their response get the
// fallback treatment.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "up":
		return DirectionUp, true
	case "down":
		return DirectionDown, true
	case "left":
		return DirectionLeft, true
	case "right":
		return DirectionRight, true
	}
	return DirectionUp, false
}
