// Package jobs is the durable background work queue. Jobs are rows in the
// database; workers claim them with an optimistic update, so delivery is
// at-least-once and every handler must be idempotent.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"snake-arena/backend/internal/models"
)

// Job types
const (
	JobTypeRunGame       = "run_game"
	JobTypeUpdateRatings = "update_ratings"
)

// RunGameArgs is the payload for a run_game job
type RunGameArgs struct {
	GameID string `json:"game_id"`
}

// UpdateRatingsArgs is the payload for an update_ratings job
type UpdateRatingsArgs struct {
	LeaderboardGameID string `json:"leaderboard_game_id"`
}

// DecodePayload unmarshals a job's payload into args
func DecodePayload(job *models.Job, args interface{}) error {
	if err := json.Unmarshal([]byte(job.Payload), args); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", job.JobType, err)
	}
	return nil
}

// Enqueue inserts a job runnable immediately
func Enqueue(db *gorm.DB, jobType string, args interface{}, description string) (*models.Job, error) {
	return EnqueueAt(db, jobType, args, description, time.Now())
}

// EnqueueAt inserts a job that becomes runnable at runAt
func EnqueueAt(db *gorm.DB, jobType string, args interface{}, description string, runAt time.Time) (*models.Job, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	job := models.Job{
		ID:          uuid.New().String(),
		JobType:     jobType,
		Payload:     string(payload),
		Description: description,
		RunAt:       runAt,
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return &job, nil
}
