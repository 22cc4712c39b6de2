// Package runner drives games turn by turn: it asks every snake server for a
// move, steps the rules simulator, and persists each frame before advancing.
// Committing every turn means a crashed run leaves a consistent prefix a
// restarted worker can resume from.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"snake-arena/backend/internal/jobs"
	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/models"
	"snake-arena/backend/internal/rules"
	"snake-arena/backend/internal/snakeclient"
	"snake-arena/backend/internal/wire"
)

// Games never run past this many turns. At this point snakes are looping.
const maxTurns = 5000

// ErrGameNotFound is returned when the game row does not exist
var ErrGameNotFound = errors.New("game not found")

// Notifier receives live game events. The websocket hub implements it; a nil
// notifier is valid and drops everything.
type Notifier interface {
	GameStarted(gameID string, state *wire.GameState)
	GameTurn(gameID string, state *wire.GameState)
	GameFinished(gameID string, placements map[string]int)
}

// Runner executes games end to end
type Runner struct {
	db       *gorm.DB
	client   *snakeclient.Client
	notifier Notifier
	timeout  time.Duration
}

// New creates a runner. timeout bounds each outbound snake call.
func New(db *gorm.DB, client *snakeclient.Client, notifier Notifier, timeout time.Duration) *Runner {
	return &Runner{db: db, client: client, notifier: notifier, timeout: timeout}
}

// participant joins a board snake to the server that plays it
type participant struct {
	boardID   string
	name      string
	url       string
	joinRowID int64
}

// Run executes one game to completion. Safe to call again after a crash: the
// run resumes from the last persisted turn, and a game already finished is a
// no-op.
func (r *Runner) Run(ctx context.Context, gameID string) error {
	db := r.db.WithContext(ctx)

	var game models.Game
	err := db.Where("id = ?", gameID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}
	if game.Status == models.GameStatusFinished {
		log.Printf("[RUNNER] Game %s already finished, skipping", gameID)
		return nil
	}

	participants, err := r.loadParticipants(db, gameID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return fmt.Errorf("game %s has no participants", gameID)
	}

	sim, err := rules.ForName(game.RulesName, seedForGame(gameID))
	if err != nil {
		return fmt.Errorf("game %s: %w", gameID, err)
	}

	state, resumed, err := r.initialOrResumedState(db, &game, sim, participants)
	if err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{"status": models.GameStatusRunning}
	if game.StartedAt == nil {
		updates["started_at"] = now
	}
	if err := db.Model(&game).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark game running: %w", err)
	}

	snakeURLs := make([]snakeclient.SnakeURL, len(participants))
	for i, p := range participants {
		snakeURLs[i] = snakeclient.SnakeURL{SnakeID: p.boardID, URL: p.url}
	}

	if !resumed {
		r.client.RequestStartParallel(ctx, state, snakeURLs, r.timeout)
		if err := r.persistTurn(db, gameID, state, nil); err != nil {
			return err
		}
	}
	if r.notifier != nil {
		r.notifier.GameStarted(gameID, state)
	}

	deathTurns := make(map[string]int)
	if resumed {
		// The resume frame only shows who is dead, not when they died; the
		// earlier frames do.
		deathTurns, err = r.deathTurnsFromHistory(db, gameID)
		if err != nil {
			return err
		}
	}
	lastMoves := make(map[string]wire.Direction)

	for !sim.IsOver(state) && state.Turn < maxTurns {
		// Cancellation is only honored at a turn boundary so the persisted
		// prefix stays consistent.
		if err := ctx.Err(); err != nil {
			log.Printf("[RUNNER] Game %s interrupted at turn %d", gameID, state.Turn)
			return err
		}

		results := r.client.RequestMovesParallel(ctx, state, snakeURLs, r.timeout, lastMoves)
		moves := make(map[string]wire.Direction, len(results))
		latencies := make(map[string]*int64, len(results))
		for _, res := range results {
			moves[res.SnakeID] = res.Direction
			lastMoves[res.SnakeID] = res.Direction
			latencies[res.SnakeID] = res.LatencyMS
		}

		next, err := sim.NextState(state, moves)
		if err != nil {
			return fmt.Errorf("game %s simulation failed at turn %d: %w", gameID, state.Turn, err)
		}
		state = next

		// Snakes see their previous move's latency on the next request;
		// a timed-out move reports "0" per the wire convention.
		for i := range state.Board.Snakes {
			sn := &state.Board.Snakes[i]
			if l, ok := latencies[sn.ID]; ok {
				if l != nil {
					sn.Latency = strconv.FormatInt(*l, 10)
				} else {
					sn.Latency = "0"
				}
			}
		}

		for _, sn := range state.Board.Snakes {
			if sn.Health <= 0 {
				if _, seen := deathTurns[sn.ID]; !seen {
					deathTurns[sn.ID] = state.Turn
					log.Printf("[RUNNER] Game %s: snake %s eliminated at turn %d", gameID, sn.ID, state.Turn)
				}
			}
		}

		if err := r.persistTurn(db, gameID, state, latencies); err != nil {
			return err
		}
		if r.notifier != nil {
			r.notifier.GameTurn(gameID, state)
		}
	}

	r.client.RequestEndParallel(ctx, state, snakeURLs, r.timeout)

	aliveIDs := []string{}
	for _, sn := range wire.AliveSnakes(state) {
		aliveIDs = append(aliveIDs, sn.ID)
	}
	placements := ComputePlacements(aliveIDs, deathTurns)

	if err := r.finishGame(db, gameID, participants, placements); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.GameFinished(gameID, placements)
	}
	log.Printf("[RUNNER] Game %s finished after %d turns", gameID, state.Turn)

	// A rated game gets its rating job only after the result is durable.
	lg, err := leaderboard.FindLeaderboardGameByGameID(db, gameID)
	if err != nil {
		return err
	}
	if lg != nil {
		_, err = jobs.Enqueue(db, jobs.JobTypeUpdateRatings,
			jobs.UpdateRatingsArgs{LeaderboardGameID: lg.ID},
			"update ratings for game "+gameID)
		if err != nil {
			return err
		}
	}
	return nil
}

// loadParticipants resolves every join row to a board identity, display name
// and snake server URL. The leaderboard entry ID is the board identity when
// present so the same snake can hold two entries in one game.
func (r *Runner) loadParticipants(db *gorm.DB, gameID string) ([]participant, error) {
	var gameSnakes []models.GameSnake
	if err := db.Where("game_id = ?", gameID).Order("id ASC").Find(&gameSnakes).Error; err != nil {
		return nil, fmt.Errorf("failed to load game participants: %w", err)
	}

	participants := make([]participant, 0, len(gameSnakes))
	for _, gs := range gameSnakes {
		snakeID := gs.SnakeID
		boardID := ""
		if gs.LeaderboardEntryID != nil {
			boardID = *gs.LeaderboardEntryID
			if snakeID == nil {
				var entry models.LeaderboardEntry
				if err := db.Where("id = ?", *gs.LeaderboardEntryID).First(&entry).Error; err != nil {
					return nil, fmt.Errorf("failed to resolve entry %s: %w", *gs.LeaderboardEntryID, err)
				}
				snakeID = &entry.SnakeID
			}
		} else if snakeID != nil {
			boardID = *snakeID
		} else {
			log.Printf("[RUNNER] Game %s join row %d has no snake reference, skipping", gameID, gs.ID)
			continue
		}

		var snake models.Snake
		if err := db.Unscoped().Where("id = ?", *snakeID).First(&snake).Error; err != nil {
			return nil, fmt.Errorf("failed to load snake %s: %w", *snakeID, err)
		}

		participants = append(participants, participant{
			boardID:   boardID,
			name:      snake.Name,
			url:       snake.URL,
			joinRowID: gs.ID,
		})
	}
	return participants, nil
}

// initialOrResumedState returns the turn-zero state for a fresh game or the
// last persisted frame for an interrupted one.
func (r *Runner) initialOrResumedState(db *gorm.DB, game *models.Game, sim rules.Simulator, participants []participant) (*wire.GameState, bool, error) {
	var lastTurn models.GameTurn
	err := db.Where("game_id = ?", game.ID).Order("turn DESC").First(&lastTurn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seeds := make([]wire.Snake, len(participants))
		for i, p := range participants {
			seeds[i] = wire.Snake{ID: p.boardID, Name: p.name}
		}
		return sim.InitialState(game.ID, game.BoardSize, seeds, int(r.timeout.Milliseconds())), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load last turn: %w", err)
	}

	state := &wire.GameState{
		Game: wire.GameInfo{
			ID:      game.ID,
			Ruleset: wire.RulesetInfo{Name: game.RulesName, Version: "v1"},
			Timeout: int(r.timeout.Milliseconds()),
		},
		Turn: lastTurn.Turn,
		Board: wire.Board{
			Height: game.BoardSize,
			Width:  game.BoardSize,
		},
	}
	if err := json.Unmarshal([]byte(lastTurn.Snakes), &state.Board.Snakes); err != nil {
		return nil, false, fmt.Errorf("failed to decode persisted snakes: %w", err)
	}
	if err := json.Unmarshal([]byte(lastTurn.Food), &state.Board.Food); err != nil {
		return nil, false, fmt.Errorf("failed to decode persisted food: %w", err)
	}
	if err := json.Unmarshal([]byte(lastTurn.Hazards), &state.Board.Hazards); err != nil {
		return nil, false, fmt.Errorf("failed to decode persisted hazards: %w", err)
	}
	log.Printf("[RUNNER] Resuming game %s from turn %d", game.ID, lastTurn.Turn)
	return state, true, nil
}

// deathTurnsFromHistory recovers each dead snake's death turn from the
// persisted frames: the first frame where its health is zero. Placements after
// a resume depend on these being the real turns, not the resume turn.
func (r *Runner) deathTurnsFromHistory(db *gorm.DB, gameID string) (map[string]int, error) {
	var turns []models.GameTurn
	err := db.Select("turn", "snakes").
		Where("game_id = ?", gameID).
		Order("turn ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load turn history: %w", err)
	}

	deaths := make(map[string]int)
	for _, t := range turns {
		var snakes []wire.Snake
		if err := json.Unmarshal([]byte(t.Snakes), &snakes); err != nil {
			return nil, fmt.Errorf("failed to decode persisted snakes at turn %d: %w", t.Turn, err)
		}
		for _, sn := range snakes {
			if sn.Health <= 0 {
				if _, seen := deaths[sn.ID]; !seen {
					deaths[sn.ID] = t.Turn
				}
			}
		}
	}
	return deaths, nil
}

func (r *Runner) persistTurn(db *gorm.DB, gameID string, state *wire.GameState, latencies map[string]*int64) error {
	snakesJSON, err := json.Marshal(state.Board.Snakes)
	if err != nil {
		return fmt.Errorf("failed to encode snakes: %w", err)
	}
	foodJSON, err := json.Marshal(state.Board.Food)
	if err != nil {
		return fmt.Errorf("failed to encode food: %w", err)
	}
	hazardsJSON, err := json.Marshal(state.Board.Hazards)
	if err != nil {
		return fmt.Errorf("failed to encode hazards: %w", err)
	}
	if latencies == nil {
		latencies = map[string]*int64{}
	}
	latenciesJSON, err := json.Marshal(latencies)
	if err != nil {
		return fmt.Errorf("failed to encode latencies: %w", err)
	}

	turn := models.GameTurn{
		GameID:    gameID,
		Turn:      state.Turn,
		Snakes:    string(snakesJSON),
		Food:      string(foodJSON),
		Hazards:   string(hazardsJSON),
		Latencies: string(latenciesJSON),
	}
	if err := db.Create(&turn).Error; err != nil {
		return fmt.Errorf("failed to persist turn %d: %w", state.Turn, err)
	}
	return nil
}

// finishGame writes placements and the finished status in one transaction
func (r *Runner) finishGame(db *gorm.DB, gameID string, participants []participant, placements map[string]int) error {
	now := time.Now()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, p := range participants {
			placement, ok := placements[p.boardID]
			if !ok {
				continue
			}
			err := tx.Model(&models.GameSnake{}).
				Where("id = ?", p.joinRowID).
				Update("placement", placement).Error
			if err != nil {
				return fmt.Errorf("failed to write placement: %w", err)
			}
		}
		err := tx.Model(&models.Game{}).
			Where("id = ?", gameID).
			Updates(map[string]interface{}{
				"status":      models.GameStatusFinished,
				"finished_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark game finished: %w", err)
		}
		return nil
	})
}

// seedForGame derives a stable RNG seed from the game ID so a resumed game
// spawns the same food sequence it would have originally.
func seedForGame(gameID string) int64 {
	var seed int64
	for _, b := range []byte(gameID) {
		seed = seed*31 + int64(b)
	}
	return seed
}
