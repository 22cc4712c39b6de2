package ratings

import (
	"math"
	"testing"
)

func defaultEntries(placements ...int) []EntryRating {
	entries := make([]EntryRating, len(placements))
	for i, p := range placements {
		entries[i] = EntryRating{
			EntryID:   string(rune('a' + i)),
			Mu:        25.0,
			Sigma:     25.0 / 3.0,
			Placement: p,
		}
	}
	return entries
}

func TestWinnerGainsLoserLoses(t *testing.T) {
	updates := ComputeUpdates(defaultEntries(1, 2))

	winner, loser := updates[0], updates[1]
	if winner.NewMu <= winner.OldMu {
		t.Errorf("winner mu must increase: %f -> %f", winner.OldMu, winner.NewMu)
	}
	if loser.NewMu >= loser.OldMu {
		t.Errorf("loser mu must decrease: %f -> %f", loser.OldMu, loser.NewMu)
	}
	if !winner.IsFirstPlace {
		t.Error("placement 1 must set IsFirstPlace")
	}
	if loser.IsFirstPlace {
		t.Error("placement 2 must not set IsFirstPlace")
	}
}

func TestSigmaDecreases(t *testing.T) {
	for _, u := range ComputeUpdates(defaultEntries(1, 2, 3, 4)) {
		if u.NewSigma >= u.OldSigma {
			t.Errorf("entry %s sigma must shrink: %f -> %f", u.EntryID, u.OldSigma, u.NewSigma)
		}
		if u.NewSigma <= 0 {
			t.Errorf("entry %s sigma must stay positive: %f", u.EntryID, u.NewSigma)
		}
	}
}

func TestDisplayScoreIdentity(t *testing.T) {
	entries := []EntryRating{
		{EntryID: "a", Mu: 31.2, Sigma: 4.1, Placement: 2},
		{EntryID: "b", Mu: 18.9, Sigma: 7.7, Placement: 1},
		{EntryID: "c", Mu: 25.0, Sigma: 25.0 / 3.0, Placement: 3},
	}
	for _, u := range ComputeUpdates(entries) {
		want := u.NewMu - 3*u.NewSigma
		if math.Abs(u.NewDisplayScore-want) > 1e-9 {
			t.Errorf("entry %s display score = %f, want mu-3sigma = %f", u.EntryID, u.NewDisplayScore, want)
		}
	}
}

func TestUpsetGainsMore(t *testing.T) {
	// An underdog beating a favorite gains more mu than a favorite beating
	// an underdog.
	upset := ComputeUpdates([]EntryRating{
		{EntryID: "underdog", Mu: 15, Sigma: 5, Placement: 1},
		{EntryID: "favorite", Mu: 35, Sigma: 5, Placement: 2},
	})
	expected := ComputeUpdates([]EntryRating{
		{EntryID: "favorite", Mu: 35, Sigma: 5, Placement: 1},
		{EntryID: "underdog", Mu: 15, Sigma: 5, Placement: 2},
	})

	upsetGain := upset[0].NewMu - upset[0].OldMu
	expectedGain := expected[0].NewMu - expected[0].OldMu
	if upsetGain <= expectedGain {
		t.Errorf("upset gain %f must exceed expected-result gain %f", upsetGain, expectedGain)
	}
}

func TestTiedPlacementsMoveSymmetrically(t *testing.T) {
	updates := ComputeUpdates(defaultEntries(1, 1))
	for _, u := range updates {
		if math.Abs(u.NewMu-u.OldMu) > 1e-9 {
			t.Errorf("equal ratings with tied placements must not shift mu, got %f -> %f", u.OldMu, u.NewMu)
		}
	}
}

func TestUpdatesAlignWithEntries(t *testing.T) {
	entries := defaultEntries(3, 1, 2, 4)
	updates := ComputeUpdates(entries)
	if len(updates) != len(entries) {
		t.Fatalf("got %d updates for %d entries", len(updates), len(entries))
	}
	for i := range entries {
		if updates[i].EntryID != entries[i].EntryID {
			t.Errorf("updates[%d] is for %s, want %s", i, updates[i].EntryID, entries[i].EntryID)
		}
		if updates[i].Placement != entries[i].Placement {
			t.Errorf("updates[%d] placement mismatch", i)
		}
	}
}

func TestFourPlayerOrdering(t *testing.T) {
	updates := ComputeUpdates(defaultEntries(1, 2, 3, 4))

	// With identical priors, mu change must be monotone in placement.
	for i := 1; i < len(updates); i++ {
		prevDelta := updates[i-1].NewMu - updates[i-1].OldMu
		delta := updates[i].NewMu - updates[i].OldMu
		if delta >= prevDelta {
			t.Errorf("mu delta must decrease with worse placement: place %d delta %f, place %d delta %f",
				updates[i-1].Placement, prevDelta, updates[i].Placement, delta)
		}
	}
	if first := updates[0].NewMu - updates[0].OldMu; first <= 0 {
		t.Errorf("first place must gain mu, got delta %f", first)
	}
	if last := updates[3].NewMu - updates[3].OldMu; last >= 0 {
		t.Errorf("last place must lose mu, got delta %f", last)
	}
}
