package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"snake-arena/backend/internal/auth"
	"snake-arena/backend/internal/server/events"
	"snake-arena/backend/internal/server/handlers"
)

// buildRouter wires all HTTP routes
func buildRouter(cfg Config, database *gorm.DB, authService *auth.Service, hub *events.Hub) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
	r.Use(cors.New(corsConfig))

	// Public routes.
	r.POST("/api/auth/register", func(c *gin.Context) { handlers.HandleRegister(c, database, authService) })
	r.POST("/api/auth/login", func(c *gin.Context) { handlers.HandleLogin(c, database, authService) })

	r.GET("/api/leaderboards", func(c *gin.Context) { handlers.HandleListLeaderboards(c, database) })
	r.GET("/api/leaderboards/:id", func(c *gin.Context) { handlers.HandleGetLeaderboard(c, database, cfg.MinGamesForRanking) })
	r.GET("/api/leaderboards/:id/activity", func(c *gin.Context) { handlers.HandleGetActivityFeed(c, database) })
	r.GET("/api/leaderboards/:id/status", func(c *gin.Context) { handlers.HandleGetLeaderboardStatus(c, database) })
	r.GET("/api/entries/:entry_id/history", func(c *gin.Context) { handlers.HandleGetEntryHistory(c, database, cfg.MinGamesForRanking) })

	r.GET("/api/games", func(c *gin.Context) { handlers.HandleListRecentGames(c, database) })
	r.GET("/api/games/:id", func(c *gin.Context) { handlers.HandleGetGame(c, database) })
	r.GET("/api/games/:id/turns", func(c *gin.Context) { handlers.HandleGetGameTurns(c, database) })

	// Protected routes.
	authorized := r.Group("/")
	authorized.Use(handlers.AuthMiddleware(authService))
	{
		authorized.GET("/api/user", func(c *gin.Context) { handlers.HandleGetCurrentUser(c, database) })

		authorized.GET("/api/snakes", func(c *gin.Context) { handlers.HandleListSnakes(c, database) })
		authorized.POST("/api/snakes", func(c *gin.Context) { handlers.HandleCreateSnake(c, database) })
		authorized.PUT("/api/snakes/:id", func(c *gin.Context) { handlers.HandleUpdateSnake(c, database) })
		authorized.DELETE("/api/snakes/:id", func(c *gin.Context) { handlers.HandleDeleteSnake(c, database) })

		authorized.POST("/api/leaderboards/:id/join", func(c *gin.Context) { handlers.HandleOptIn(c, database) })
		authorized.POST("/api/entries/:entry_id/leave", func(c *gin.Context) { handlers.HandleOptOut(c, database) })
	}

	// Admin routes.
	admin := r.Group("/api/admin")
	admin.Use(handlers.AuthMiddleware(authService), handlers.AdminMiddleware(database))
	{
		admin.POST("/leaderboards", func(c *gin.Context) { handlers.HandleCreateLeaderboard(c, database) })
		admin.POST("/leaderboards/:id/disable", func(c *gin.Context) { handlers.HandleDisableLeaderboard(c, database) })
	}

	// WebSocket spectator endpoint.
	r.GET("/ws", hub.HandleWebSocket)

	return r
}
