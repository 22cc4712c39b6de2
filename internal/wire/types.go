// Package wire holds the JSON types exchanged with remote snake servers,
// following the public Battlesnake API.
package wire

// Coord is a board position. (0,0) is the bottom-left corner.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snake is the wire representation of one snake on the board
type Snake struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Health  int     `json:"health"`
	Body    []Coord `json:"body"`
	Head    Coord   `json:"head"`
	Length  int     `json:"length"`
	Latency string  `json:"latency"`
	Shout   string  `json:"shout"`
}

// Board is the shared board state sent to every snake
type Board struct {
	Height  int     `json:"height"`
	Width   int     `json:"width"`
	Food    []Coord `json:"food"`
	Hazards []Coord `json:"hazards"`
	Snakes  []Snake `json:"snakes"`
}

// RulesetInfo describes the rule variant in play
type RulesetInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// GameInfo is the nested game metadata object
type GameInfo struct {
	ID      string      `json:"id"`
	Ruleset RulesetInfo `json:"ruleset"`
	Map     string      `json:"map,omitempty"`
	Timeout int         `json:"timeout"`
	Source  string      `json:"source,omitempty"`
}

// GameState is the full request body for /start, /move and /end.
// The You field is set per recipient; everything else is shared.
type GameState struct {
	Game  GameInfo `json:"game"`
	Turn  int      `json:"turn"`
	Board Board    `json:"board"`
	You   Snake    `json:"you"`
}

// MoveResponse is the body a snake returns from /move
type MoveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

// BuildSnakeRequest returns a copy of state with You set to the snake the
// request is being made on behalf of. Returns false when the snake is not on
// the board.
func BuildSnakeRequest(state *GameState, snakeID string) (GameState, bool) {
	for _, s := range state.Board.Snakes {
		if s.ID == snakeID {
			req := *state
			req.You = s
			return req, true
		}
	}
	return GameState{}, false
}

// FindSnake returns the board snake with the given ID
func FindSnake(state *GameState, snakeID string) (Snake, bool) {
	for _, s := range state.Board.Snakes {
		if s.ID == snakeID {
			return s, true
		}
	}
	return Snake{}, false
}

// AliveSnakes returns the snakes with health remaining
func AliveSnakes(state *GameState) []Snake {
	alive := make([]Snake, 0, len(state.Board.Snakes))
	for _, s := range state.Board.Snakes {
		if s.Health > 0 {
			alive = append(alive, s)
		}
	}
	return alive
}
