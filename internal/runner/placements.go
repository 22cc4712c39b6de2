package runner

import "sort"

// ComputePlacements assigns competition-style placements (1, 1, 3) to all
// participants. Snakes alive at the end share first place; eliminated snakes
// rank by how long they survived, with same-turn deaths sharing a rank.
func ComputePlacements(alive []string, deathTurns map[string]int) map[string]int {
	placements := make(map[string]int, len(alive)+len(deathTurns))

	for _, id := range alive {
		placements[id] = 1
	}

	type death struct {
		id   string
		turn int
	}
	deaths := make([]death, 0, len(deathTurns))
	for id, turn := range deathTurns {
		deaths = append(deaths, death{id: id, turn: turn})
	}
	// Later deaths place higher. Sort by ID within a turn for determinism.
	sort.Slice(deaths, func(i, j int) bool {
		if deaths[i].turn != deaths[j].turn {
			return deaths[i].turn > deaths[j].turn
		}
		return deaths[i].id < deaths[j].id
	})

	rank := len(alive) + 1
	for i, d := range deaths {
		if i > 0 && d.turn == deaths[i-1].turn {
			placements[d.id] = placements[deaths[i-1].id]
		} else {
			placements[d.id] = rank
		}
		rank++
	}

	return placements
}
