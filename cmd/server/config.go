package main

import (
	"os"
	"strconv"
	"time"

	"snake-arena/backend/internal/db"
	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/redis"
)

// Config is the full server configuration, read from the environment
type Config struct {
	Env       string
	Port      string
	JWTSecret string

	DB    db.Config
	Redis redis.Config

	// Matchmaking. The interval drives both the tick schedule and the
	// per-tick game quota.
	MatchmakerInterval time.Duration
	MatchSize          int
	GamesPerDay        int
	MinGamesForRanking int

	// Game execution.
	SnakeMoveTimeout time.Duration
	WorkerCount      int
}

// LoadConfig reads configuration from environment variables with defaults
func LoadConfig() Config {
	return Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "secret"),

		DB: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "snake_arena"),
		},
		Redis: redis.Config{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		MatchmakerInterval: time.Duration(getEnvInt("MATCHMAKER_INTERVAL_SECS", 900)) * time.Second,
		MatchSize:          getEnvInt("MATCH_SIZE", leaderboard.DefaultMatchSize),
		GamesPerDay:        getEnvInt("GAMES_PER_DAY", leaderboard.DefaultGamesPerDay),
		MinGamesForRanking: getEnvInt("MIN_GAMES_FOR_RANKING", leaderboard.DefaultMinGamesForRanking),

		SnakeMoveTimeout: time.Duration(getEnvInt("SNAKE_MOVE_TIMEOUT_MS", 500)) * time.Millisecond,
		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
