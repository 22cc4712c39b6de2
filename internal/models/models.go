package models

import (
	"time"

	"gorm.io/gorm"
)

// Default rating parameters for new leaderboard entries.
const (
	DefaultMu    = 25.0
	DefaultSigma = 25.0 / 3.0
)

// User represents an arena account that owns snakes
type User struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	IsAdmin      bool      `gorm:"column:is_admin;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// Snake represents a registered remote snake server
type Snake struct {
	ID        string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;type:varchar(36);not null;index:idx_snake_user" json:"user_id"`
	Name      string         `gorm:"column:name;type:varchar(100);not null" json:"name"`
	URL       string         `gorm:"column:url;type:varchar(500);not null" json:"url"`
	IsPublic  bool           `gorm:"column:is_public;default:false" json:"is_public"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// TableName specifies the table name for Snake model
func (Snake) TableName() string {
	return "snakes"
}

// Leaderboard represents a named competitive context with its own rating pool.
// Leaderboards are created manually and never deleted; disabling hides a
// leaderboard from the matchmaker.
type Leaderboard struct {
	ID         string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"column:name;type:varchar(100);uniqueIndex;not null" json:"name"`
	DisabledAt *time.Time `gorm:"column:disabled_at" json:"disabled_at,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Leaderboard model
func (Leaderboard) TableName() string {
	return "leaderboards"
}

// LeaderboardEntry is one snake's enrollment in one leaderboard and carries
// its rating. Duplicate entries per (leaderboard, snake) are tolerated; all
// rating updates key on the entry ID.
//
// Invariants maintained by the rating engine:
//
//	games_played = first_place_finishes + non_first_finishes
//	display_score = mu - 3*sigma
type LeaderboardEntry struct {
	ID                  string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	LeaderboardID       string     `gorm:"column:leaderboard_id;type:varchar(36);not null;index:idx_entry_leaderboard" json:"leaderboard_id"`
	SnakeID             string     `gorm:"column:snake_id;type:varchar(36);not null;index:idx_entry_snake" json:"snake_id"`
	Mu                  float64    `gorm:"column:mu;default:25" json:"mu"`
	Sigma               float64    `gorm:"column:sigma;default:8.333333333333334" json:"sigma"`
	DisplayScore        float64    `gorm:"column:display_score;default:0" json:"display_score"`
	GamesPlayed         int        `gorm:"column:games_played;default:0" json:"games_played"`
	FirstPlaceFinishes  int        `gorm:"column:first_place_finishes;default:0" json:"first_place_finishes"`
	NonFirstFinishes    int        `gorm:"column:non_first_finishes;default:0" json:"non_first_finishes"`
	DisabledAt          *time.Time `gorm:"column:disabled_at" json:"disabled_at,omitempty"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for LeaderboardEntry model
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}

// Game statuses
const (
	GameStatusWaiting  = "waiting"
	GameStatusRunning  = "running"
	GameStatusFinished = "finished"
)

// Game represents one match between MatchSize snakes
type Game struct {
	ID         string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	BoardSize  int        `gorm:"column:board_size;not null" json:"board_size"`
	RulesName  string     `gorm:"column:rules_name;type:varchar(50);not null" json:"rules_name"`
	Status     string     `gorm:"column:status;type:varchar(20);default:waiting;index:idx_game_status" json:"status"`
	EnqueuedAt *time.Time `gorm:"column:enqueued_at" json:"enqueued_at,omitempty"`
	StartedAt  *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Game model
func (Game) TableName() string {
	return "games"
}

// GameSnake is the join row between a game and a participant. New rows carry
// the leaderboard entry ID; SnakeID alone appears only on rows created before
// the entry ID column existed, and readers must fall back to it.
type GameSnake struct {
	ID                 int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GameID             string  `gorm:"column:game_id;type:varchar(36);not null;index:idx_game_snake" json:"game_id"`
	LeaderboardEntryID *string `gorm:"column:leaderboard_entry_id;type:varchar(36)" json:"leaderboard_entry_id,omitempty"`
	SnakeID            *string `gorm:"column:snake_id;type:varchar(36)" json:"snake_id,omitempty"`
	Placement          *int    `gorm:"column:placement" json:"placement,omitempty"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GameSnake model
func (GameSnake) TableName() string {
	return "game_snakes"
}

// GameTurn is one persisted frame of a game. Turns are written in strictly
// increasing order and committed before the next turn begins, so a crashed
// game leaves a consistent prefix a restart can resume from.
type GameTurn struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GameID    string    `gorm:"column:game_id;type:varchar(36);not null;uniqueIndex:unique_game_turn" json:"game_id"`
	Turn      int       `gorm:"column:turn;not null;uniqueIndex:unique_game_turn" json:"turn"`
	Snakes    string    `gorm:"column:snakes;type:json" json:"snakes"`
	Food      string    `gorm:"column:food;type:json" json:"food"`
	Hazards   string    `gorm:"column:hazards;type:json" json:"hazards"`
	Latencies string    `gorm:"column:latencies;type:json" json:"latencies"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GameTurn model
func (GameTurn) TableName() string {
	return "game_turns"
}

// LeaderboardGame links a game to a leaderboard. Its existence is what makes
// a game rated; the rating engine ignores games without a link row.
type LeaderboardGame struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	LeaderboardID string    `gorm:"column:leaderboard_id;type:varchar(36);not null;index:idx_lg_leaderboard" json:"leaderboard_id"`
	GameID        string    `gorm:"column:game_id;type:varchar(36);not null;index:idx_lg_game" json:"game_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for LeaderboardGame model
func (LeaderboardGame) TableName() string {
	return "leaderboard_games"
}

// LeaderboardGameResult is the per-snake rating change audit row. The unique
// index on (leaderboard_game_id, leaderboard_entry_id) is the storage-level
// idempotency guard for the rating engine.
type LeaderboardGameResult struct {
	ID                 string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	LeaderboardGameID  string    `gorm:"column:leaderboard_game_id;type:varchar(36);not null;uniqueIndex:unique_game_entry" json:"leaderboard_game_id"`
	LeaderboardEntryID string    `gorm:"column:leaderboard_entry_id;type:varchar(36);not null;uniqueIndex:unique_game_entry" json:"leaderboard_entry_id"`
	Placement          int       `gorm:"column:placement;not null" json:"placement"`
	MuBefore           float64   `gorm:"column:mu_before;not null" json:"mu_before"`
	MuAfter            float64   `gorm:"column:mu_after;not null" json:"mu_after"`
	SigmaBefore        float64   `gorm:"column:sigma_before;not null" json:"sigma_before"`
	SigmaAfter         float64   `gorm:"column:sigma_after;not null" json:"sigma_after"`
	DisplayScoreChange float64   `gorm:"column:display_score_change;not null" json:"display_score_change"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for LeaderboardGameResult model
func (LeaderboardGameResult) TableName() string {
	return "leaderboard_game_results"
}

// Job is a row in the durable job queue
type Job struct {
	ID               string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	JobType          string     `gorm:"column:job_type;type:varchar(50);not null;index:idx_job_type" json:"job_type"`
	Payload          string     `gorm:"column:payload;type:json" json:"payload"`
	Description      string     `gorm:"column:description;type:varchar(255)" json:"description"`
	RunAt            time.Time  `gorm:"column:run_at;not null;index:idx_job_run_at" json:"run_at"`
	LockedAt         *time.Time `gorm:"column:locked_at" json:"locked_at,omitempty"`
	LockedBy         *string    `gorm:"column:locked_by;type:varchar(64)" json:"locked_by,omitempty"`
	ErrorCount       int        `gorm:"column:error_count;default:0" json:"error_count"`
	LastErrorMessage *string    `gorm:"column:last_error_message;type:text" json:"last_error_message,omitempty"`
	LastFailedAt     *time.Time `gorm:"column:last_failed_at" json:"last_failed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Job model
func (Job) TableName() string {
	return "jobs"
}
