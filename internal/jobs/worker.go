package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"snake-arena/backend/internal/models"
)

const (
	defaultPollInterval = 2 * time.Second
	// A worker that dies mid-job releases its claim after this long.
	staleLockAfter = 10 * time.Minute
	maxBackoff     = 15 * time.Minute
)

// Handler processes one claimed job. Returning an error reschedules the job
// with backoff; returning nil deletes it.
type Handler func(ctx context.Context, job *models.Job) error

// Worker polls the jobs table and dispatches claimed jobs to registered
// handlers. Multiple workers may run concurrently against the same table.
type Worker struct {
	db           *gorm.DB
	workerID     string
	pollInterval time.Duration
	handlers     map[string]Handler
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a worker with a unique claim identity
func NewWorker(db *gorm.DB) *Worker {
	return &Worker{
		db:           db,
		workerID:     uuid.New().String()[:8],
		pollInterval: defaultPollInterval,
		handlers:     make(map[string]Handler),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (w *Worker) Register(jobType string, handler Handler) {
	w.handlers[jobType] = handler
}

// Start runs the polling loop in a goroutine
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[JOBS] Worker %s starting, poll interval %s", w.workerID, w.pollInterval)
	go w.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight job to finish
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("[JOBS] Worker %s stopped", w.workerID)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneChan)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		// Drain runnable jobs before sleeping again.
		for {
			processed, err := w.RunOnce(ctx)
			if err != nil {
				log.Printf("[JOBS] Worker %s poll error: %v", w.workerID, err)
				break
			}
			if !processed {
				break
			}
		}
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims and processes at most one job. Returns whether a job was
// processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.claim()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	handler, ok := w.handlers[job.JobType]
	if !ok {
		// No handler registered in this build. Release the claim and push the
		// job out so another build can pick it up.
		log.Printf("[JOBS] No handler for job type %s (job %s)", job.JobType, job.ID)
		return true, w.reschedule(job, fmt.Errorf("no handler for job type %s", job.JobType))
	}

	log.Printf("[JOBS] Worker %s running %s job %s (%s)", w.workerID, job.JobType, job.ID, job.Description)
	if err := handler(ctx, job); err != nil {
		log.Printf("[JOBS] Job %s failed: %v", job.ID, err)
		return true, w.reschedule(job, err)
	}

	if err := w.db.Delete(&models.Job{}, "id = ?", job.ID).Error; err != nil {
		return true, fmt.Errorf("failed to delete completed job: %w", err)
	}
	return true, nil
}

// claim picks the oldest runnable job and takes it with an optimistic update.
// A zero-row update means another worker got there first; the caller just
// polls again.
func (w *Worker) claim() (*models.Job, error) {
	now := time.Now()
	staleBefore := now.Add(-staleLockAfter)

	var job models.Job
	err := w.db.
		Where("run_at <= ? AND (locked_at IS NULL OR locked_at < ?)", now, staleBefore).
		Order("run_at ASC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find runnable job: %w", err)
	}

	res := w.db.Model(&models.Job{}).
		Where("id = ? AND (locked_at IS NULL OR locked_at < ?)", job.ID, staleBefore).
		Updates(map[string]interface{}{
			"locked_at": now,
			"locked_by": w.workerID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	job.LockedAt = &now
	job.LockedBy = &w.workerID
	return &job, nil
}

// reschedule releases the claim and pushes the job out with exponential
// backoff, recording the failure on the row.
func (w *Worker) reschedule(job *models.Job, cause error) error {
	now := time.Now()
	backoff := time.Duration(math.Pow(2, float64(job.ErrorCount))) * 30 * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	msg := cause.Error()
	err := w.db.Model(&models.Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"locked_at":          nil,
			"locked_by":          nil,
			"run_at":             now.Add(backoff),
			"error_count":        gorm.Expr("error_count + 1"),
			"last_error_message": msg,
			"last_failed_at":     now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return nil
}
