package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"snake-arena/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?mode=memory"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// One connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{}, &models.Snake{}, &models.Leaderboard{}, &models.LeaderboardEntry{},
		&models.Game{}, &models.GameSnake{}, &models.LeaderboardGame{}, &models.LeaderboardGameResult{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// seedRatedGame creates a finished two-snake rated game and returns the
// leaderboard game ID plus the entry IDs in placement order (winner first).
func seedRatedGame(t *testing.T, db *gorm.DB) (string, []string) {
	t.Helper()

	board := models.Leaderboard{ID: uuid.New().String(), Name: "main"}
	if err := db.Create(&board).Error; err != nil {
		t.Fatal(err)
	}

	entryIDs := make([]string, 2)
	for i := 0; i < 2; i++ {
		entry := models.LeaderboardEntry{
			ID:            uuid.New().String(),
			LeaderboardID: board.ID,
			SnakeID:       uuid.New().String(),
			Mu:            models.DefaultMu,
			Sigma:         models.DefaultSigma,
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatal(err)
		}
		entryIDs[i] = entry.ID
	}

	game := models.Game{ID: uuid.New().String(), BoardSize: 11, RulesName: "standard", Status: models.GameStatusFinished}
	if err := db.Create(&game).Error; err != nil {
		t.Fatal(err)
	}
	for i, entryID := range entryIDs {
		id := entryID
		placement := i + 1
		gs := models.GameSnake{GameID: game.ID, LeaderboardEntryID: &id, Placement: &placement}
		if err := db.Create(&gs).Error; err != nil {
			t.Fatal(err)
		}
	}

	lg := models.LeaderboardGame{ID: uuid.New().String(), LeaderboardID: board.ID, GameID: game.ID}
	if err := db.Create(&lg).Error; err != nil {
		t.Fatal(err)
	}
	return lg.ID, entryIDs
}

func getEntry(t *testing.T, db *gorm.DB, id string) models.LeaderboardEntry {
	t.Helper()
	var entry models.LeaderboardEntry
	if err := db.Where("id = ?", id).First(&entry).Error; err != nil {
		t.Fatal(err)
	}
	return entry
}

func TestUpdateRatingsAppliesChanges(t *testing.T) {
	db := setupTestDB(t)
	lgID, entryIDs := seedRatedGame(t, db)
	engine := NewEngine(db)

	if err := engine.UpdateRatings(context.Background(), lgID); err != nil {
		t.Fatal(err)
	}

	winner := getEntry(t, db, entryIDs[0])
	loser := getEntry(t, db, entryIDs[1])

	if winner.Mu <= models.DefaultMu {
		t.Errorf("winner mu = %f, want > %f", winner.Mu, models.DefaultMu)
	}
	if loser.Mu >= models.DefaultMu {
		t.Errorf("loser mu = %f, want < %f", loser.Mu, models.DefaultMu)
	}
	if winner.GamesPlayed != 1 || loser.GamesPlayed != 1 {
		t.Errorf("games played = %d/%d, want 1/1", winner.GamesPlayed, loser.GamesPlayed)
	}
	if winner.FirstPlaceFinishes != 1 || winner.NonFirstFinishes != 0 {
		t.Errorf("winner finish counters = %d/%d, want 1/0", winner.FirstPlaceFinishes, winner.NonFirstFinishes)
	}
	if loser.FirstPlaceFinishes != 0 || loser.NonFirstFinishes != 1 {
		t.Errorf("loser finish counters = %d/%d, want 0/1", loser.FirstPlaceFinishes, loser.NonFirstFinishes)
	}

	var results []models.LeaderboardGameResult
	if err := db.Where("leaderboard_game_id = ?", lgID).Find(&results).Error; err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.MuBefore != models.DefaultMu {
			t.Errorf("mu_before = %f, want %f", r.MuBefore, models.DefaultMu)
		}
		if r.SigmaAfter >= r.SigmaBefore {
			t.Errorf("sigma must shrink: %f -> %f", r.SigmaBefore, r.SigmaAfter)
		}
	}
}

func TestUpdateRatingsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	lgID, entryIDs := seedRatedGame(t, db)
	engine := NewEngine(db)

	if err := engine.UpdateRatings(context.Background(), lgID); err != nil {
		t.Fatal(err)
	}
	winnerAfterFirst := getEntry(t, db, entryIDs[0])

	// Redelivery of the same job must be a no-op.
	if err := engine.UpdateRatings(context.Background(), lgID); err != nil {
		t.Fatal(err)
	}
	winnerAfterSecond := getEntry(t, db, entryIDs[0])

	if winnerAfterSecond.GamesPlayed != 1 {
		t.Errorf("games played = %d after redelivery, want 1", winnerAfterSecond.GamesPlayed)
	}
	if winnerAfterSecond.Mu != winnerAfterFirst.Mu {
		t.Errorf("mu changed on redelivery: %f -> %f", winnerAfterFirst.Mu, winnerAfterSecond.Mu)
	}

	var count int64
	db.Model(&models.LeaderboardGameResult{}).Where("leaderboard_game_id = ?", lgID).Count(&count)
	if count != 2 {
		t.Errorf("audit rows = %d after redelivery, want 2", count)
	}
}

func TestUpdateRatingsMissingGame(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine(db)

	err := engine.UpdateRatings(context.Background(), uuid.New().String())
	if err == nil {
		t.Fatal("expected error for missing leaderboard game")
	}
}

func TestUpdateRatingsTooFewEntries(t *testing.T) {
	db := setupTestDB(t)

	board := models.Leaderboard{ID: uuid.New().String(), Name: "main"}
	if err := db.Create(&board).Error; err != nil {
		t.Fatal(err)
	}
	game := models.Game{ID: uuid.New().String(), BoardSize: 11, RulesName: "standard", Status: models.GameStatusFinished}
	if err := db.Create(&game).Error; err != nil {
		t.Fatal(err)
	}
	// One participant whose entry no longer exists.
	missing := uuid.New().String()
	gs := models.GameSnake{GameID: game.ID, LeaderboardEntryID: &missing}
	if err := db.Create(&gs).Error; err != nil {
		t.Fatal(err)
	}
	lg := models.LeaderboardGame{ID: uuid.New().String(), LeaderboardID: board.ID, GameID: game.ID}
	if err := db.Create(&lg).Error; err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(db)
	// Unrateable games succeed without writing anything so the job is not
	// retried forever.
	if err := engine.UpdateRatings(context.Background(), lg.ID); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.LeaderboardGameResult{}).Count(&count)
	if count != 0 {
		t.Errorf("audit rows = %d, want 0", count)
	}
}

func TestUpdateRatingsSnakeIDFallback(t *testing.T) {
	db := setupTestDB(t)

	board := models.Leaderboard{ID: uuid.New().String(), Name: "main"}
	if err := db.Create(&board).Error; err != nil {
		t.Fatal(err)
	}
	snakeIDs := []string{uuid.New().String(), uuid.New().String()}
	entryIDs := make([]string, 2)
	for i, snakeID := range snakeIDs {
		entry := models.LeaderboardEntry{
			ID:            uuid.New().String(),
			LeaderboardID: board.ID,
			SnakeID:       snakeID,
			Mu:            models.DefaultMu,
			Sigma:         models.DefaultSigma,
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatal(err)
		}
		entryIDs[i] = entry.ID
	}
	game := models.Game{ID: uuid.New().String(), BoardSize: 11, RulesName: "standard", Status: models.GameStatusFinished}
	if err := db.Create(&game).Error; err != nil {
		t.Fatal(err)
	}
	// Join rows written before the entry ID column existed carry only the
	// snake ID.
	for i, snakeID := range snakeIDs {
		id := snakeID
		placement := i + 1
		gs := models.GameSnake{GameID: game.ID, SnakeID: &id, Placement: &placement}
		if err := db.Create(&gs).Error; err != nil {
			t.Fatal(err)
		}
	}
	lg := models.LeaderboardGame{ID: uuid.New().String(), LeaderboardID: board.ID, GameID: game.ID}
	if err := db.Create(&lg).Error; err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(db)
	if err := engine.UpdateRatings(context.Background(), lg.ID); err != nil {
		t.Fatal(err)
	}

	winner := getEntry(t, db, entryIDs[0])
	if winner.GamesPlayed != 1 {
		t.Errorf("fallback lookup must still update the entry, games played = %d", winner.GamesPlayed)
	}
	if winner.Mu <= models.DefaultMu {
		t.Errorf("winner mu = %f, want > %f", winner.Mu, models.DefaultMu)
	}
}
