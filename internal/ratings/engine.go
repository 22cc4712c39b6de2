package ratings

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/models"
)

// ErrLeaderboardGameNotFound is returned when the referenced link row is gone
var ErrLeaderboardGameNotFound = errors.New("leaderboard game not found")

// Engine applies rating updates for finished rated games. UpdateRatings is
// idempotent, so the job queue may deliver the same game more than once.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a rating engine over the given database
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// UpdateRatings recomputes and persists ratings for one leaderboard game.
// A second invocation for the same game is a no-op: a fast-path count check
// skips obviously-done games, and an authoritative recheck inside the
// transaction closes the race between concurrent workers.
func (e *Engine) UpdateRatings(ctx context.Context, leaderboardGameID string) error {
	done, err := e.alreadyProcessed(e.db.WithContext(ctx), leaderboardGameID)
	if err != nil {
		return err
	}
	if done {
		log.Printf("[RATINGS] Leaderboard game %s already processed, skipping", leaderboardGameID)
		return nil
	}

	var lg models.LeaderboardGame
	err = e.db.WithContext(ctx).Where("id = ?", leaderboardGameID).First(&lg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrLeaderboardGameNotFound, leaderboardGameID)
	}
	if err != nil {
		return fmt.Errorf("failed to load leaderboard game: %w", err)
	}

	var gameSnakes []models.GameSnake
	if err := e.db.WithContext(ctx).Where("game_id = ?", lg.GameID).Find(&gameSnakes).Error; err != nil {
		return fmt.Errorf("failed to load game participants: %w", err)
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Authoritative recheck under the transaction.
		done, err := e.alreadyProcessed(tx, leaderboardGameID)
		if err != nil {
			return err
		}
		if done {
			log.Printf("[RATINGS] Leaderboard game %s processed concurrently, skipping", leaderboardGameID)
			return nil
		}

		entries := make([]EntryRating, 0, len(gameSnakes))
		for _, gs := range gameSnakes {
			entry, err := lockEntry(tx, lg.LeaderboardID, gs)
			if err != nil {
				return err
			}
			if entry == nil {
				log.Printf("[RATINGS] No leaderboard entry for game snake %d in game %s, skipping participant", gs.ID, lg.GameID)
				continue
			}
			// A crashed run can finish a game without placements; everyone
			// who has none shares last place.
			placement := len(gameSnakes)
			if gs.Placement != nil {
				placement = *gs.Placement
			}
			entries = append(entries, EntryRating{
				EntryID:   entry.ID,
				SnakeID:   entry.SnakeID,
				Mu:        entry.Mu,
				Sigma:     entry.Sigma,
				Placement: placement,
			})
		}

		if len(entries) < 2 {
			log.Printf("[RATINGS] Leaderboard game %s has %d rateable entries, nothing to update", leaderboardGameID, len(entries))
			return nil
		}

		updates := ComputeUpdates(entries)
		for _, u := range updates {
			result := models.LeaderboardGameResult{
				LeaderboardGameID:  leaderboardGameID,
				LeaderboardEntryID: u.EntryID,
				Placement:          u.Placement,
				MuBefore:           u.OldMu,
				MuAfter:            u.NewMu,
				SigmaBefore:        u.OldSigma,
				SigmaAfter:         u.NewSigma,
				DisplayScoreChange: u.DisplayScoreChange,
			}
			if err := leaderboard.CreateGameResult(tx, &result); err != nil {
				return err
			}
			if err := leaderboard.UpdateEntryRating(tx, u.EntryID, u.NewMu, u.NewSigma, u.NewDisplayScore, u.IsFirstPlace); err != nil {
				return err
			}
		}

		log.Printf("[RATINGS] Updated %d ratings for leaderboard game %s", len(updates), leaderboardGameID)
		return nil
	})
}

func (e *Engine) alreadyProcessed(db *gorm.DB, leaderboardGameID string) (bool, error) {
	count, err := leaderboard.CountGameResults(db, leaderboardGameID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// lockEntry resolves a game participant to its leaderboard entry and takes a
// row lock on it. Entry ID lookup is preferred; (leaderboard, snake) is the
// fallback for rows written before the entry ID column existed.
func lockEntry(tx *gorm.DB, leaderboardID string, gs models.GameSnake) (*models.LeaderboardEntry, error) {
	if gs.LeaderboardEntryID != nil {
		return leaderboard.GetEntryForUpdateByID(tx, *gs.LeaderboardEntryID)
	}
	if gs.SnakeID != nil {
		return leaderboard.GetEntryForUpdate(tx, leaderboardID, *gs.SnakeID)
	}
	return nil, nil
}
