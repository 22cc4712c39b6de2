package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"snake-arena/backend/internal/auth"
	"snake-arena/backend/internal/db"
	"snake-arena/backend/internal/jobs"
	"snake-arena/backend/internal/locks"
	"snake-arena/backend/internal/matchmaker"
	"snake-arena/backend/internal/models"
	"snake-arena/backend/internal/ratings"
	"snake-arena/backend/internal/redis"
	"snake-arena/backend/internal/runner"
	"snake-arena/backend/internal/server/events"
	"snake-arena/backend/internal/snakeclient"
)

func main() {
	godotenv.Load()
	cfg := LoadConfig()

	database, err := db.New(cfg.DB)
	if err != nil {
		log.Fatal("Database connection failed:", err)
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database connection:", err)
	}
	defer sqlDB.Close()

	// Redis is optional: without it the matchmaker runs unguarded, which is
	// fine for a single server instance.
	var lockMgr *locks.LockManager
	if cfg.Redis.Host != "" {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		defer redisClient.Close()
		lockMgr = locks.NewLockManager(redisClient.Client)
	} else {
		log.Println("[MAIN] REDIS_HOST not set, running without distributed locks")
	}

	authService := auth.NewService(cfg.JWTSecret)
	hub := events.NewHub()
	client := snakeclient.New()
	gameRunner := runner.New(database.DB, client, hub, cfg.SnakeMoveTimeout)
	ratingEngine := ratings.NewEngine(database.DB)

	ctx := context.Background()

	for i := 0; i < cfg.WorkerCount; i++ {
		worker := jobs.NewWorker(database.DB)
		worker.Register(jobs.JobTypeRunGame, func(ctx context.Context, job *models.Job) error {
			var args jobs.RunGameArgs
			if err := jobs.DecodePayload(job, &args); err != nil {
				return err
			}
			return gameRunner.Run(ctx, args.GameID)
		})
		worker.Register(jobs.JobTypeUpdateRatings, func(ctx context.Context, job *models.Job) error {
			var args jobs.UpdateRatingsArgs
			if err := jobs.DecodePayload(job, &args); err != nil {
				return err
			}
			return ratingEngine.UpdateRatings(ctx, args.LeaderboardGameID)
		})
		worker.Start(ctx)
	}

	mm := matchmaker.New(database.DB, lockMgr, matchmaker.Config{
		Interval:    cfg.MatchmakerInterval,
		MatchSize:   cfg.MatchSize,
		GamesPerDay: cfg.GamesPerDay,
	})
	mm.Start(ctx)

	r := buildRouter(cfg, database.DB, authService, hub)

	log.Printf("[MAIN] Server starting on port %s", cfg.Port)
	log.Fatal(r.Run(":" + cfg.Port))
}
