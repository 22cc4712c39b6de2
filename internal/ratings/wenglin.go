// Package ratings updates leaderboard skill ratings after finished games.
// The Weng-Lin math lives in this file as a pure function; the transactional
// plumbing is in engine.go.
package ratings

import "math"

// Weng-Lin model constants. Beta is the performance variance scale and kappa
// the floor keeping sigma from collapsing to zero.
const (
	wengLinBeta  = 25.0 / 6.0
	wengLinKappa = 0.0001
)

// EntryRating is a participant's rating state going into a game
type EntryRating struct {
	EntryID   string
	SnakeID   string
	Mu        float64
	Sigma     float64
	Placement int
}

// Update is a computed rating change for a single entry
type Update struct {
	EntryID            string
	SnakeID            string
	Placement          int
	OldMu              float64
	OldSigma           float64
	NewMu              float64
	NewSigma           float64
	NewDisplayScore    float64
	DisplayScoreChange float64
	IsFirstPlace       bool
}

// ComputeUpdates calculates new ratings for all participants of one game
// using the Weng-Lin Bayesian multi-team model with one snake per team.
// Pure function: no I/O, updates[i] corresponds to entries[i].
//
// For each pair (i, q) the pairwise win probability is
//
//	p = exp(mu_i/c) / (exp(mu_i/c) + exp(mu_q/c)),  c^2 = sigma_i^2 + sigma_q^2 + 2*beta^2
//
// and the accumulated omega/delta drive the mu shift and sigma shrink.
func ComputeUpdates(entries []EntryRating) []Update {
	updates := make([]Update, len(entries))

	for i, e := range entries {
		sigmaSq := e.Sigma * e.Sigma
		var omega, delta float64

		for q, opp := range entries {
			if q == i {
				continue
			}
			c := math.Sqrt(sigmaSq + opp.Sigma*opp.Sigma + 2*wengLinBeta*wengLinBeta)
			ei := math.Exp(e.Mu / c)
			eq := math.Exp(opp.Mu / c)
			p := ei / (ei + eq)

			var score float64
			switch {
			case opp.Placement > e.Placement: // beat this opponent
				score = 1.0
			case opp.Placement == e.Placement:
				score = 0.5
			}

			gamma := e.Sigma / c
			omega += (sigmaSq / c) * (score - p)
			delta += gamma * (sigmaSq / (c * c)) * p * (1 - p)
		}

		newMu := e.Mu + omega
		newSigma := e.Sigma * math.Sqrt(math.Max(1-delta, wengLinKappa))

		oldDisplay := e.Mu - 3*e.Sigma
		newDisplay := newMu - 3*newSigma

		updates[i] = Update{
			EntryID:            e.EntryID,
			SnakeID:            e.SnakeID,
			Placement:          e.Placement,
			OldMu:              e.Mu,
			OldSigma:           e.Sigma,
			NewMu:              newMu,
			NewSigma:           newSigma,
			NewDisplayScore:    newDisplay,
			DisplayScoreChange: newDisplay - oldDisplay,
			IsFirstPlace:       e.Placement == 1,
		}
	}

	return updates
}
