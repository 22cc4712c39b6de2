// Package matchmaker periodically forms matches on every active leaderboard
// and enqueues them for the game runner. A Redis lock keeps concurrent server
// instances from double-scheduling the same tick.
package matchmaker

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"snake-arena/backend/internal/jobs"
	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/locks"
	"snake-arena/backend/internal/models"
	"snake-arena/backend/internal/rules"
)

const matchmakerLockKey = "matchmaker"

// Config controls match formation
type Config struct {
	// Interval is the tick period. The per-tick game quota is derived from it
	// so quota and schedule can never drift apart.
	Interval    time.Duration
	MatchSize   int
	GamesPerDay int
	BoardSize   int
	RulesName   string
}

// Matchmaker is the periodic match formation service
type Matchmaker struct {
	db       *gorm.DB
	lockMgr  *locks.LockManager
	config   Config
	rng      *rand.Rand
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a matchmaker. lockMgr may be nil when running a single instance.
func New(db *gorm.DB, lockMgr *locks.LockManager, config Config) *Matchmaker {
	if config.MatchSize == 0 {
		config.MatchSize = leaderboard.DefaultMatchSize
	}
	if config.GamesPerDay == 0 {
		config.GamesPerDay = leaderboard.DefaultGamesPerDay
	}
	if config.BoardSize == 0 {
		config.BoardSize = rules.BoardSizeMedium
	}
	if config.RulesName == "" {
		config.RulesName = rules.RulesStandard
	}
	return &Matchmaker{
		db:       db,
		lockMgr:  lockMgr,
		config:   config,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the tick loop in a goroutine
func (m *Matchmaker) Start(ctx context.Context) {
	log.Printf("[MATCHMAKER] Service started, interval %s, %d games per tick", m.config.Interval, m.GamesPerTick())
	go func() {
		defer close(m.doneChan)
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.tick(ctx)
			case <-m.stopChan:
				log.Println("[MATCHMAKER] Service stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the tick loop and waits for the current tick to finish
func (m *Matchmaker) Stop() {
	close(m.stopChan)
	<-m.doneChan
}

// GamesPerTick converts the daily budget into a per-tick quota. Always at
// least one so a long interval still produces games.
func (m *Matchmaker) GamesPerTick() int {
	intervalSecs := int(m.config.Interval.Seconds())
	if intervalSecs <= 0 {
		return 1
	}
	ticksPerDay := 86400 / intervalSecs
	if ticksPerDay <= 0 {
		return m.config.GamesPerDay
	}
	quota := (m.config.GamesPerDay + ticksPerDay - 1) / ticksPerDay
	if quota < 1 {
		quota = 1
	}
	return quota
}

func (m *Matchmaker) tick(ctx context.Context) {
	if m.lockMgr != nil {
		lock, err := m.lockMgr.AcquireLock(ctx, matchmakerLockKey, m.config.Interval)
		if err != nil {
			if errors.Is(err, locks.ErrLockAlreadyHeld) {
				log.Println("[MATCHMAKER] Another instance holds the matchmaker lock, skipping tick")
			} else {
				log.Printf("[MATCHMAKER] Failed to acquire lock: %v", err)
			}
			return
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				log.Printf("[MATCHMAKER] Failed to release lock: %v", err)
			}
		}()
	}

	if err := m.RunOnce(ctx); err != nil {
		log.Printf("[MATCHMAKER] Tick failed: %v", err)
	}
}

// RunOnce forms one tick's worth of matches on every active leaderboard.
// A failing leaderboard is logged and skipped, never aborts the tick.
func (m *Matchmaker) RunOnce(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	boards, err := leaderboard.GetActiveLeaderboards(db)
	if err != nil {
		return err
	}

	quota := m.GamesPerTick()
	for _, board := range boards {
		created, err := m.runForLeaderboard(db, board, quota)
		if err != nil {
			log.Printf("[MATCHMAKER] Leaderboard %s (%s) failed: %v", board.ID, board.Name, err)
			continue
		}
		if created > 0 {
			log.Printf("[MATCHMAKER] Created %d games on leaderboard %s", created, board.Name)
		}
	}
	return nil
}

func (m *Matchmaker) runForLeaderboard(db *gorm.DB, board models.Leaderboard, quota int) (int, error) {
	entries, err := leaderboard.GetActiveEntries(db, board.ID)
	if err != nil {
		return 0, err
	}
	if len(entries) < m.config.MatchSize {
		return 0, nil
	}

	created := 0
	for i := 0; i < quota; i++ {
		match := SelectMatch(m.rng, entries, m.config.MatchSize)
		if match == nil {
			break
		}
		if err := m.createGame(db, board.ID, match); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// createGame writes the game, its participants and the leaderboard link in
// one transaction, then enqueues the run job. A job enqueue failure leaves a
// waiting game behind; the runner ignores games it is never told about.
func (m *Matchmaker) createGame(db *gorm.DB, leaderboardID string, match []models.LeaderboardEntry) error {
	gameID := uuid.New().String()
	now := time.Now()

	err := db.Transaction(func(tx *gorm.DB) error {
		game := models.Game{
			ID:         gameID,
			BoardSize:  m.config.BoardSize,
			RulesName:  m.config.RulesName,
			Status:     models.GameStatusWaiting,
			EnqueuedAt: &now,
		}
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		for _, entry := range match {
			entryID := entry.ID
			snakeID := entry.SnakeID
			gs := models.GameSnake{
				GameID:             gameID,
				LeaderboardEntryID: &entryID,
				SnakeID:            &snakeID,
			}
			if err := tx.Create(&gs).Error; err != nil {
				return err
			}
		}
		if _, err := leaderboard.CreateLeaderboardGame(tx, leaderboardID, gameID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = jobs.Enqueue(db, jobs.JobTypeRunGame, jobs.RunGameArgs{GameID: gameID},
		"run game "+gameID)
	return err
}

// SelectMatch picks matchSize entries clustered around a random seed entry's
// skill. Distances get uniform jitter so the same neighborhood does not play
// identical lineups every tick. Returns nil when there are too few entries.
func SelectMatch(rng *rand.Rand, entries []models.LeaderboardEntry, matchSize int) []models.LeaderboardEntry {
	if len(entries) < matchSize {
		return nil
	}

	type candidate struct {
		entry    models.LeaderboardEntry
		distance float64
	}

	seed := entries[rng.Intn(len(entries))]
	candidates := make([]candidate, len(entries))
	for i, e := range entries {
		d := e.DisplayScore - seed.DisplayScore
		if d < 0 {
			d = -d
		}
		candidates[i] = candidate{entry: e, distance: d + rng.Float64()*5}
	}

	// Selection sort is fine at leaderboard sizes; stable order not needed
	// because the jitter already breaks ties.
	for i := 0; i < matchSize; i++ {
		best := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].distance < candidates[best].distance {
				best = j
			}
		}
		candidates[i], candidates[best] = candidates[best], candidates[i]
	}

	match := make([]models.LeaderboardEntry, matchSize)
	for i := 0; i < matchSize; i++ {
		match[i] = candidates[i].entry
	}
	return match
}
