package matchmaker

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"snake-arena/backend/internal/jobs"
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
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Leaderboard{}, &models.LeaderboardEntry{},
		&models.Game{}, &models.GameSnake{}, &models.LeaderboardGame{}, &models.Job{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func seedBoard(t *testing.T, db *gorm.DB, entries int) models.Leaderboard {
	t.Helper()
	board := models.Leaderboard{ID: uuid.New().String(), Name: uuid.New().String()}
	if err := db.Create(&board).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < entries; i++ {
		entry := models.LeaderboardEntry{
			ID:            uuid.New().String(),
			LeaderboardID: board.ID,
			SnakeID:       uuid.New().String(),
			Mu:            models.DefaultMu,
			Sigma:         models.DefaultSigma,
			DisplayScore:  float64(i),
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatal(err)
		}
	}
	return board
}

func testEntries(n int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = models.LeaderboardEntry{
			ID:           uuid.New().String(),
			DisplayScore: float64(i * 10),
		}
	}
	return entries
}

func TestSelectMatchSizeAndUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	entries := testEntries(10)

	match := SelectMatch(rng, entries, 4)
	if len(match) != 4 {
		t.Fatalf("match size = %d, want 4", len(match))
	}
	seen := make(map[string]bool)
	for _, e := range match {
		if seen[e.ID] {
			t.Errorf("entry %s selected twice", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestSelectMatchTooFewEntries(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if match := SelectMatch(rng, testEntries(3), 4); match != nil {
		t.Errorf("match = %v, want nil with too few entries", match)
	}
}

func TestSelectMatchPrefersNearbySkill(t *testing.T) {
	// One tight cluster and one far outlier. Over many draws the outlier
	// should be picked far less often than cluster members, since its skill
	// distance dwarfs the jitter whenever a cluster member seeds the match.
	entries := make([]models.LeaderboardEntry, 0, 9)
	for i := 0; i < 8; i++ {
		entries = append(entries, models.LeaderboardEntry{
			ID:           uuid.New().String(),
			DisplayScore: float64(i), // cluster at 0..7
		})
	}
	outlier := models.LeaderboardEntry{ID: uuid.New().String(), DisplayScore: 1000}
	entries = append(entries, outlier)

	rng := rand.New(rand.NewSource(7))
	outlierPicks := 0
	const draws = 200
	for i := 0; i < draws; i++ {
		for _, e := range SelectMatch(rng, entries, 4) {
			if e.ID == outlier.ID {
				outlierPicks++
			}
		}
	}
	// A uniform pick would include the outlier in roughly 4/9 of draws.
	if outlierPicks > draws/4 {
		t.Errorf("outlier picked in %d of %d draws, expected a strong skill bias against it", outlierPicks, draws)
	}
}

func TestGamesPerTick(t *testing.T) {
	tests := []struct {
		interval    time.Duration
		gamesPerDay int
		want        int
	}{
		{15 * time.Minute, 100, 2}, // 96 ticks per day, ceil(100/96)
		{15 * time.Minute, 96, 1},
		{time.Minute, 100, 1}, // more ticks than games still yields one
		{24 * time.Hour, 100, 100},
	}
	for _, tt := range tests {
		m := New(nil, nil, Config{Interval: tt.interval, GamesPerDay: tt.gamesPerDay})
		if got := m.GamesPerTick(); got != tt.want {
			t.Errorf("GamesPerTick(interval=%s, gamesPerDay=%d) = %d, want %d",
				tt.interval, tt.gamesPerDay, got, tt.want)
		}
	}
}

func TestRunOnceCreatesGames(t *testing.T) {
	db := setupTestDB(t)
	board := seedBoard(t, db, 6)

	m := New(db, nil, Config{Interval: 15 * time.Minute, MatchSize: 4, GamesPerDay: 96})
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	var games []models.Game
	if err := db.Find(&games).Error; err != nil {
		t.Fatal(err)
	}
	if len(games) != 1 {
		t.Fatalf("games created = %d, want 1", len(games))
	}
	game := games[0]
	if game.Status != models.GameStatusWaiting {
		t.Errorf("game status = %s, want waiting", game.Status)
	}
	if game.EnqueuedAt == nil {
		t.Error("enqueued_at must be set")
	}

	var gameSnakes []models.GameSnake
	if err := db.Where("game_id = ?", game.ID).Find(&gameSnakes).Error; err != nil {
		t.Fatal(err)
	}
	if len(gameSnakes) != 4 {
		t.Fatalf("participants = %d, want 4", len(gameSnakes))
	}
	for _, gs := range gameSnakes {
		if gs.LeaderboardEntryID == nil || gs.SnakeID == nil {
			t.Error("join rows must carry both the entry ID and the snake ID")
		}
	}

	var lgCount int64
	db.Model(&models.LeaderboardGame{}).
		Where("leaderboard_id = ? AND game_id = ?", board.ID, game.ID).Count(&lgCount)
	if lgCount != 1 {
		t.Errorf("leaderboard link rows = %d, want 1", lgCount)
	}

	var jobRows []models.Job
	if err := db.Where("job_type = ?", jobs.JobTypeRunGame).Find(&jobRows).Error; err != nil {
		t.Fatal(err)
	}
	if len(jobRows) != 1 {
		t.Fatalf("run_game jobs = %d, want 1", len(jobRows))
	}
}

func TestRunOnceSkipsSmallLeaderboards(t *testing.T) {
	db := setupTestDB(t)
	seedBoard(t, db, 3)

	m := New(db, nil, Config{Interval: 15 * time.Minute, MatchSize: 4})
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.Game{}).Count(&count)
	if count != 0 {
		t.Errorf("games = %d, want 0 with too few entries", count)
	}
}

func TestRunOnceSkipsDisabledLeaderboards(t *testing.T) {
	db := setupTestDB(t)
	board := seedBoard(t, db, 6)
	now := time.Now()
	err := db.Model(&models.Leaderboard{}).Where("id = ?", board.ID).
		Update("disabled_at", now).Error
	if err != nil {
		t.Fatal(err)
	}

	m := New(db, nil, Config{Interval: 15 * time.Minute, MatchSize: 4})
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.Game{}).Count(&count)
	if count != 0 {
		t.Errorf("games = %d, want 0 on a disabled leaderboard", count)
	}
}

func TestRunOnceSkipsDisabledEntries(t *testing.T) {
	db := setupTestDB(t)
	board := seedBoard(t, db, 6)
	// Disabling entries below the match size threshold stops game creation.
	var ids []string
	if err := db.Model(&models.LeaderboardEntry{}).
		Where("leaderboard_id = ?", board.ID).
		Order("id ASC").Limit(3).
		Pluck("id", &ids).Error; err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	err := db.Model(&models.LeaderboardEntry{}).
		Where("id IN ?", ids).
		Update("disabled_at", now).Error
	if err != nil {
		t.Fatal(err)
	}

	m := New(db, nil, Config{Interval: 15 * time.Minute, MatchSize: 4})
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.Game{}).Count(&count)
	if count != 0 {
		t.Errorf("games = %d, want 0 with only 3 active entries", count)
	}
}
