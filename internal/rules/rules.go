// Package rules provides the game-rules simulator the turn driver steps
// through. The turn driver depends only on the Simulator interface; the
// standard ruleset here is one implementation of it.
package rules

import (
	"errors"

	"snake-arena/backend/internal/wire"
)

// Board sizes by rule convention
const (
	BoardSizeSmall  = 7
	BoardSizeMedium = 11
	BoardSizeLarge  = 19
)

// Ruleset names
const (
	RulesStandard = "standard"
)

// ErrUnknownRules is returned when a game row names a ruleset this build
// does not implement.
var ErrUnknownRules = errors.New("unknown ruleset")

// Simulator produces the next game state from the current state and the
// per-snake chosen moves, and decides when the game is over.
type Simulator interface {
	// InitialState builds the turn-zero board for the given participants.
	InitialState(gameID string, boardSize int, snakes []wire.Snake, timeoutMS int) *wire.GameState
	// NextState advances the board by one turn. It must not mutate state.
	NextState(state *wire.GameState, moves map[string]wire.Direction) (*wire.GameState, error)
	// IsOver reports whether the termination condition holds for state.
	IsOver(state *wire.GameState) bool
}

// ForName returns the simulator for a named rule variant
func ForName(name string, seed int64) (Simulator, error) {
	switch name {
	case RulesStandard:
		return NewStandard(seed), nil
	}
	return nil, ErrUnknownRules
}
