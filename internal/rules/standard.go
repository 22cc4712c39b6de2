package rules

import (
	"fmt"
	"math/rand"

	"snake-arena/backend/internal/wire"
)

const (
	maxHealth       = 100
	foodSpawnChance = 15 // percent, checked once per turn
	minimumFood     = 1
)

// Standard implements the standard ruleset: snakes lose one health per turn,
// eating restores health and grows the snake, and collisions with walls,
// bodies, or longer heads eliminate.
type Standard struct {
	rng *rand.Rand
}

// NewStandard creates a standard simulator with a seeded food RNG
func NewStandard(seed int64) *Standard {
	return &Standard{rng: rand.New(rand.NewSource(seed))}
}

// InitialState builds the turn-zero board: snakes stacked on evenly spaced
// starting positions, one food each nearby plus one in the center.
func (s *Standard) InitialState(gameID string, boardSize int, snakes []wire.Snake, timeoutMS int) *wire.GameState {
	starts := startPositions(boardSize)
	placed := make([]wire.Snake, len(snakes))
	food := []wire.Coord{}
	for i, sn := range snakes {
		start := starts[i%len(starts)]
		placed[i] = wire.Snake{
			ID:     sn.ID,
			Name:   sn.Name,
			Health: maxHealth,
			Body:   []wire.Coord{start, start, start},
			Head:   start,
			Length: 3,
		}
		food = append(food, nearestFoodSpot(start, boardSize))
	}
	center := wire.Coord{X: boardSize / 2, Y: boardSize / 2}
	food = append(food, center)

	return &wire.GameState{
		Game: wire.GameInfo{
			ID:      gameID,
			Ruleset: wire.RulesetInfo{Name: RulesStandard, Version: "v1"},
			Timeout: timeoutMS,
		},
		Turn: 0,
		Board: wire.Board{
			Height:  boardSize,
			Width:   boardSize,
			Food:    dedupeCoords(food),
			Hazards: []wire.Coord{},
			Snakes:  placed,
		},
	}
}

// NextState advances the board one turn. Elimination order within a turn:
// starvation, then out-of-bounds, then body collisions, then head-to-head.
func (s *Standard) NextState(state *wire.GameState, moves map[string]wire.Direction) (*wire.GameState, error) {
	next := cloneState(state)
	next.Turn = state.Turn + 1

	// Move heads and decay health for alive snakes.
	for i := range next.Board.Snakes {
		sn := &next.Board.Snakes[i]
		if sn.Health <= 0 {
			continue
		}
		dir, ok := moves[sn.ID]
		if !ok {
			return nil, fmt.Errorf("no move supplied for snake %s", sn.ID)
		}
		off := dir.Offset()
		newHead := wire.Coord{X: sn.Head.X + off.X, Y: sn.Head.Y + off.Y}
		sn.Body = append([]wire.Coord{newHead}, sn.Body[:len(sn.Body)-1]...)
		sn.Head = newHead
		sn.Health--
	}

	// Feeding happens before collision checks so a snake can grow onto food.
	remaining := next.Board.Food[:0]
	for _, f := range next.Board.Food {
		eaten := false
		for i := range next.Board.Snakes {
			sn := &next.Board.Snakes[i]
			if sn.Health > 0 && sn.Head == f {
				sn.Health = maxHealth
				sn.Body = append(sn.Body, sn.Body[len(sn.Body)-1])
				sn.Length = len(sn.Body)
				eaten = true
			}
		}
		if !eaten {
			remaining = append(remaining, f)
		}
	}
	next.Board.Food = remaining

	// Hazard damage.
	for i := range next.Board.Snakes {
		sn := &next.Board.Snakes[i]
		if sn.Health <= 0 {
			continue
		}
		for _, h := range next.Board.Hazards {
			if sn.Head == h {
				sn.Health -= 14
				break
			}
		}
	}

	s.eliminate(next)
	s.spawnFood(next)

	for i := range next.Board.Snakes {
		next.Board.Snakes[i].Length = len(next.Board.Snakes[i].Body)
	}
	return next, nil
}

// IsOver reports the standard termination condition: one or zero snakes left
func (s *Standard) IsOver(state *wire.GameState) bool {
	alive := 0
	for _, sn := range state.Board.Snakes {
		if sn.Health > 0 {
			alive++
		}
	}
	return alive <= 1
}

func (s *Standard) eliminate(state *wire.GameState) {
	board := &state.Board
	dead := make(map[string]bool)

	for _, sn := range board.Snakes {
		if sn.Health <= 0 {
			continue
		}
		// Walls.
		if sn.Head.X < 0 || sn.Head.Y < 0 || sn.Head.X >= board.Width || sn.Head.Y >= board.Height {
			dead[sn.ID] = true
			continue
		}
		// Body collisions, own neck included.
		for _, other := range board.Snakes {
			if other.Health <= 0 {
				continue
			}
			for j, seg := range other.Body {
				if j == 0 {
					continue // heads handled below
				}
				if seg == sn.Head {
					dead[sn.ID] = true
				}
			}
		}
		// Head-to-head: the shorter snake dies, equal lengths kill both.
		for _, other := range board.Snakes {
			if other.ID == sn.ID || other.Health <= 0 {
				continue
			}
			if other.Head == sn.Head && len(other.Body) >= len(sn.Body) {
				dead[sn.ID] = true
			}
		}
	}

	for i := range board.Snakes {
		if dead[board.Snakes[i].ID] {
			board.Snakes[i].Health = 0
		}
	}
}

func (s *Standard) spawnFood(state *wire.GameState) {
	board := &state.Board
	if len(board.Food) >= minimumFood && s.rng.Intn(100) >= foodSpawnChance {
		return
	}
	occupied := make(map[wire.Coord]bool)
	for _, sn := range board.Snakes {
		for _, seg := range sn.Body {
			occupied[seg] = true
		}
	}
	for _, f := range board.Food {
		occupied[f] = true
	}
	free := []wire.Coord{}
	for x := 0; x < board.Width; x++ {
		for y := 0; y < board.Height; y++ {
			c := wire.Coord{X: x, Y: y}
			if !occupied[c] {
				free = append(free, c)
			}
		}
	}
	if len(free) > 0 {
		board.Food = append(board.Food, free[s.rng.Intn(len(free))])
	}
}

// startPositions returns the eight classic start points: corners and edge
// midpoints, one cell in from the border.
func startPositions(boardSize int) []wire.Coord {
	min, mid, max := 1, (boardSize-1)/2, boardSize-2
	return []wire.Coord{
		{X: min, Y: min}, {X: max, Y: max}, {X: min, Y: max}, {X: max, Y: min},
		{X: min, Y: mid}, {X: max, Y: mid}, {X: mid, Y: min}, {X: mid, Y: max},
	}
}

func nearestFoodSpot(start wire.Coord, boardSize int) wire.Coord {
	// Diagonal neighbor toward the closest corner, matching the standard map.
	dx, dy := -1, -1
	if start.X < boardSize/2 {
		dx = 1
	}
	if start.Y < boardSize/2 {
		dy = 1
	}
	return wire.Coord{X: start.X + dx, Y: start.Y + dy}
}

func dedupeCoords(coords []wire.Coord) []wire.Coord {
	seen := make(map[wire.Coord]bool, len(coords))
	out := coords[:0]
	for _, c := range coords {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func cloneState(state *wire.GameState) *wire.GameState {
	next := *state
	next.Board.Food = append([]wire.Coord{}, state.Board.Food...)
	next.Board.Hazards = append([]wire.Coord{}, state.Board.Hazards...)
	next.Board.Snakes = make([]wire.Snake, len(state.Board.Snakes))
	for i, sn := range state.Board.Snakes {
		cp := sn
		cp.Body = append([]wire.Coord{}, sn.Body...)
		next.Board.Snakes[i] = cp
	}
	return &next
}
