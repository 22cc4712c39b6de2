package wire

import "testing"

func TestParseDirection(t *testing.T) {
	cases := []struct {
		input string
		want  Direction
		ok    bool
	}{
		{"up", DirectionUp, true},
		{"down", DirectionDown, true},
		{"left", DirectionLeft, true},
		{"right", DirectionRight, true},
		{"UP", DirectionUp, true},
		{"Left", DirectionLeft, true},
		{"rIgHt", DirectionRight, true},
		{"", DirectionUp, false},
		{"north", DirectionUp, false},
		// Parsing is case-insensitive but never trims.
		{" up", DirectionUp, false},
		{"up ", DirectionUp, false},
	}

	for _, tc := range cases {
		got, ok := ParseDirection(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseDirection(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseDirection(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDirectionOffset(t *testing.T) {
	cases := []struct {
		dir  Direction
		want Coord
	}{
		{DirectionUp, Coord{X: 0, Y: 1}},
		{DirectionDown, Coord{X: 0, Y: -1}},
		{DirectionLeft, Coord{X: -1, Y: 0}},
		{DirectionRight, Coord{X: 1, Y: 0}},
	}
	for _, tc := range cases {
		if got := tc.dir.Offset(); got != tc.want {
			t.Errorf("%s.Offset() = %v, want %v", tc.dir, got, tc.want)
		}
	}
}

func TestDirectionString(t *testing.T) {
	if DirectionUp.String() != "up" || DirectionRight.String() != "right" {
		t.Errorf("Direction strings must be lowercase wire values")
	}
}

func TestBuildSnakeRequestSetsYou(t *testing.T) {
	state := GameState{
		Turn: 3,
		Board: Board{
			Width:  11,
			Height: 11,
			Snakes: []Snake{
				{ID: "a", Health: 90},
				{ID: "b", Health: 50},
			},
		},
	}

	req, ok := BuildSnakeRequest(&state, "b")
	if !ok {
		t.Fatal("expected snake b to be found")
	}
	if req.You.ID != "b" || req.You.Health != 50 {
		t.Errorf("You = %+v, want snake b", req.You)
	}
	if state.You.ID != "" {
		t.Error("BuildSnakeRequest must not mutate the shared state")
	}

	if _, ok := BuildSnakeRequest(&state, "missing"); ok {
		t.Error("expected missing snake to report not found")
	}
}
