// Package leaderboard holds the storage helpers for leaderboards, entries,
// game links and rating audit rows. Every helper takes a *gorm.DB so it works
// against the pool or inside an open transaction.
package leaderboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snake-arena/backend/internal/models"
)

// Defaults for the recognized configuration options
const (
	DefaultMatchSize          = 4
	DefaultGamesPerDay        = 100
	DefaultMinGamesForRanking = 10
)

// GetActiveLeaderboards returns leaderboards visible to the matchmaker
func GetActiveLeaderboards(db *gorm.DB) ([]models.Leaderboard, error) {
	var boards []models.Leaderboard
	err := db.Where("disabled_at IS NULL").Order("created_at ASC").Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active leaderboards: %w", err)
	}
	return boards, nil
}

// GetActiveEntries returns a leaderboard's non-disabled entries, best score first
func GetActiveEntries(db *gorm.DB, leaderboardID string) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := db.Where("leaderboard_id = ? AND disabled_at IS NULL", leaderboardID).
		Order("display_score DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active entries: %w", err)
	}
	return entries, nil
}

// CreateEntry opts a snake in to a leaderboard. Always inserts: duplicate
// entries per (leaderboard, snake) are tolerated downstream because rating
// updates key on the entry ID.
func CreateEntry(db *gorm.DB, leaderboardID, snakeID string) (*models.LeaderboardEntry, error) {
	entry := models.LeaderboardEntry{
		ID:            uuid.New().String(),
		LeaderboardID: leaderboardID,
		SnakeID:       snakeID,
		Mu:            models.DefaultMu,
		Sigma:         models.DefaultSigma,
		DisplayScore:  models.DefaultMu - 3*models.DefaultSigma,
	}
	if err := db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create leaderboard entry: %w", err)
	}
	return &entry, nil
}

// SetEntryDisabled pauses or resumes an entry (opt-out is disable-only)
func SetEntryDisabled(db *gorm.DB, entryID string, disabledAt *time.Time) error {
	err := db.Model(&models.LeaderboardEntry{}).
		Where("id = ?", entryID).
		Update("disabled_at", disabledAt).Error
	if err != nil {
		return fmt.Errorf("failed to update entry disabled status: %w", err)
	}
	return nil
}

// GetEntryForUpdateByID locks and returns an entry by primary key. Must run
// inside a transaction. Preferred over GetEntryForUpdate: deterministic even
// when duplicate entries exist for the same snake.
func GetEntryForUpdateByID(tx *gorm.DB, entryID string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", entryID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock entry %s: %w", entryID, err)
	}
	return &entry, nil
}

// GetEntryForUpdate locks and returns the entry for (leaderboard, snake).
// Fallback lookup for join rows written before the entry ID column existed.
func GetEntryForUpdate(tx *gorm.DB, leaderboardID, snakeID string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("leaderboard_id = ? AND snake_id = ?", leaderboardID, snakeID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock entry for snake %s: %w", snakeID, err)
	}
	return &entry, nil
}

// UpdateEntryRating applies a computed rating to an entry and bumps the game
// counters. Callers must pass mu, sigma and displayScore from the same
// update so display_score = mu - 3*sigma stays true.
func UpdateEntryRating(tx *gorm.DB, entryID string, mu, sigma, displayScore float64, isFirstPlace bool) error {
	updates := map[string]interface{}{
		"mu":            mu,
		"sigma":         sigma,
		"display_score": displayScore,
		"games_played":  gorm.Expr("games_played + 1"),
	}
	if isFirstPlace {
		updates["first_place_finishes"] = gorm.Expr("first_place_finishes + 1")
	} else {
		updates["non_first_finishes"] = gorm.Expr("non_first_finishes + 1")
	}
	if err := tx.Model(&models.LeaderboardEntry{}).Where("id = ?", entryID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update entry rating: %w", err)
	}
	return nil
}

// CreateLeaderboardGame links a game to a leaderboard, making it rated.
// Written in the same transaction as the game row itself.
func CreateLeaderboardGame(tx *gorm.DB, leaderboardID, gameID string) (*models.LeaderboardGame, error) {
	lg := models.LeaderboardGame{
		ID:            uuid.New().String(),
		LeaderboardID: leaderboardID,
		GameID:        gameID,
	}
	if err := tx.Create(&lg).Error; err != nil {
		return nil, fmt.Errorf("failed to create leaderboard game: %w", err)
	}
	return &lg, nil
}

// FindLeaderboardGameByGameID returns the link row for a game, if rated
func FindLeaderboardGameByGameID(db *gorm.DB, gameID string) (*models.LeaderboardGame, error) {
	var lg models.LeaderboardGame
	err := db.Where("game_id = ?", gameID).First(&lg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find leaderboard game: %w", err)
	}
	return &lg, nil
}

// CreateGameResult inserts a rating audit row. The unique index on
// (leaderboard_game_id, leaderboard_entry_id) plus conflict-ignore makes this
// the storage-level idempotency guard.
func CreateGameResult(tx *gorm.DB, result *models.LeaderboardGameResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "leaderboard_game_id"}, {Name: "leaderboard_entry_id"}},
		DoNothing: true,
	}).Create(result).Error
	if err != nil {
		return fmt.Errorf("failed to create game result: %w", err)
	}
	return nil
}

// CountGameResults returns how many audit rows exist for a leaderboard game
func CountGameResults(db *gorm.DB, leaderboardGameID string) (int64, error) {
	var count int64
	err := db.Model(&models.LeaderboardGameResult{}).
		Where("leaderboard_game_id = ?", leaderboardGameID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count game results: %w", err)
	}
	return count, nil
}

// RankedEntry is an entry with snake and owner info for display
type RankedEntry struct {
	EntryID            string  `json:"entry_id"`
	SnakeID            string  `json:"snake_id"`
	SnakeName          string  `json:"snake_name"`
	OwnerUsername      string  `json:"owner_username"`
	DisplayScore       float64 `json:"display_score"`
	Mu                 float64 `json:"mu"`
	Sigma              float64 `json:"sigma"`
	GamesPlayed        int     `json:"games_played"`
	FirstPlaceFinishes int     `json:"first_place_finishes"`
	NonFirstFinishes   int     `json:"non_first_finishes"`
}

// GetRankedEntries returns entries at or above the ranking threshold,
// paginated, best score first
func GetRankedEntries(db *gorm.DB, leaderboardID string, minGames, page, perPage int) ([]RankedEntry, error) {
	return scanEntries(db, leaderboardID, "le.games_played >= ?", "le.display_score DESC", minGames, page, perPage)
}

// GetPlacementEntries returns entries still below the ranking threshold,
// most games first
func GetPlacementEntries(db *gorm.DB, leaderboardID string, minGames, page, perPage int) ([]RankedEntry, error) {
	return scanEntries(db, leaderboardID, "le.games_played < ?", "le.games_played DESC", minGames, page, perPage)
}

func scanEntries(db *gorm.DB, leaderboardID, gamesCond, order string, minGames, page, perPage int) ([]RankedEntry, error) {
	var entries []RankedEntry
	err := db.
		Table("leaderboard_entries le").
		Select(`le.id as entry_id, le.snake_id, s.name as snake_name, u.username as owner_username,
			le.display_score, le.mu, le.sigma,
			le.games_played, le.first_place_finishes, le.non_first_finishes`).
		Joins("JOIN snakes s ON le.snake_id = s.id").
		Joins("JOIN users u ON s.user_id = u.id").
		Where("le.leaderboard_id = ? AND le.disabled_at IS NULL", leaderboardID).
		Where(gamesCond, minGames).
		Order(order).
		Limit(perPage).
		Offset(page * perPage).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard entries: %w", err)
	}
	return entries, nil
}

// GetRankForEntry returns an entry's competition rank (higher scores + 1),
// or nil while it is still in placement games
func GetRankForEntry(db *gorm.DB, leaderboardID string, displayScore float64, gamesPlayed, minGames int) (*int64, error) {
	if gamesPlayed < minGames {
		return nil, nil
	}
	var higher int64
	err := db.Model(&models.LeaderboardEntry{}).
		Where("leaderboard_id = ? AND disabled_at IS NULL AND games_played >= ? AND display_score > ?",
			leaderboardID, minGames, displayScore).
		Count(&higher).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get rank for entry: %w", err)
	}
	rank := higher + 1
	return &rank, nil
}

// HistoryEntry is one game in an entry's rating history
type HistoryEntry struct {
	LeaderboardGameID  string    `json:"leaderboard_game_id"`
	GameID             string    `json:"game_id"`
	Placement          int       `json:"placement"`
	DisplayScoreChange float64   `json:"display_score_change"`
	MuBefore           float64   `json:"mu_before"`
	MuAfter            float64   `json:"mu_after"`
	SigmaBefore        float64   `json:"sigma_before"`
	SigmaAfter         float64   `json:"sigma_after"`
	GameCreatedAt      time.Time `json:"game_created_at"`
}

// GetGameHistoryForEntry returns an entry's recent rated games, newest first
func GetGameHistoryForEntry(db *gorm.DB, entryID string, page, perPage int) ([]HistoryEntry, error) {
	var history []HistoryEntry
	err := db.
		Table("leaderboard_game_results lgr").
		Select(`lgr.leaderboard_game_id, lg.game_id, lgr.placement, lgr.display_score_change,
			lgr.mu_before, lgr.mu_after, lgr.sigma_before, lgr.sigma_after,
			lg.created_at as game_created_at`).
		Joins("JOIN leaderboard_games lg ON lgr.leaderboard_game_id = lg.id").
		Where("lgr.leaderboard_entry_id = ?", entryID).
		Order("lg.created_at DESC").
		Limit(perPage).
		Offset(page * perPage).
		Scan(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game history: %w", err)
	}
	return history, nil
}

// ActivityFeedEntry is one recent rating change on a leaderboard
type ActivityFeedEntry struct {
	SnakeName          string    `json:"snake_name"`
	OwnerUsername      string    `json:"owner_username"`
	EntryID            string    `json:"entry_id"`
	Placement          int       `json:"placement"`
	DisplayScoreChange float64   `json:"display_score_change"`
	CreatedAt          time.Time `json:"created_at"`
}

// GetActivityFeed returns the most recent rating changes on a leaderboard
func GetActivityFeed(db *gorm.DB, leaderboardID string, limit int) ([]ActivityFeedEntry, error) {
	var feed []ActivityFeedEntry
	err := db.
		Table("leaderboard_game_results lgr").
		Select(`s.name as snake_name, u.username as owner_username, lgr.leaderboard_entry_id as entry_id,
			lgr.placement, lgr.display_score_change, lgr.created_at`).
		Joins("JOIN leaderboard_entries le ON lgr.leaderboard_entry_id = le.id").
		Joins("JOIN snakes s ON le.snake_id = s.id").
		Joins("JOIN users u ON s.user_id = u.id").
		Joins("JOIN leaderboard_games lg ON lgr.leaderboard_game_id = lg.id").
		Where("lg.leaderboard_id = ?", leaderboardID).
		Order("lgr.created_at DESC").
		Limit(limit).
		Scan(&feed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity feed: %w", err)
	}
	return feed, nil
}

// Status summarizes a leaderboard's match volume for the admin surface
type Status struct {
	LastGameCreatedAt *time.Time `json:"last_game_created_at"`
	GamesInProgress   int64      `json:"games_in_progress"`
	TotalGames        int64      `json:"total_games"`
}

// GetStatus returns a leaderboard's match volume summary
func GetStatus(db *gorm.DB, leaderboardID string) (*Status, error) {
	var status Status

	row := struct{ Last *time.Time }{}
	err := db.Table("leaderboard_games").
		Select("MAX(created_at) as last").
		Where("leaderboard_id = ?", leaderboardID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last game time: %w", err)
	}
	status.LastGameCreatedAt = row.Last

	err = db.Table("leaderboard_games lg").
		Joins("JOIN games g ON lg.game_id = g.id").
		Where("lg.leaderboard_id = ? AND g.status != ?", leaderboardID, models.GameStatusFinished).
		Count(&status.GamesInProgress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count games in progress: %w", err)
	}

	err = db.Model(&models.LeaderboardGame{}).
		Where("leaderboard_id = ?", leaderboardID).
		Count(&status.TotalGames).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count total games: %w", err)
	}

	return &status, nil
}
