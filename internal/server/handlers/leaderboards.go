package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/models"
	"snake-arena/backend/internal/validation"
)

const defaultPerPage = 25

// HandleListLeaderboards returns all active leaderboards
func HandleListLeaderboards(c *gin.Context, db *gorm.DB) {
	boards, err := leaderboard.GetActiveLeaderboards(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, boards)
}

// HandleGetLeaderboard returns a leaderboard's ranked and placement entries.
// Entries below the ranking threshold appear in the placement list instead
// of the standings.
func HandleGetLeaderboard(c *gin.Context, db *gorm.DB, minGames int) {
	leaderboardID := c.Param("id")
	page := intQuery(c, "page", 0)
	perPage := intQuery(c, "per_page", defaultPerPage)

	var board models.Leaderboard
	if err := db.Where("id = ?", leaderboardID).First(&board).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Leaderboard not found"})
		return
	}

	ranked, err := leaderboard.GetRankedEntries(db, leaderboardID, minGames, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	placement, err := leaderboard.GetPlacementEntries(db, leaderboardID, minGames, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":        board,
		"ranked":             ranked,
		"placement":          placement,
		"min_games_for_rank": minGames,
		"page":               page,
		"per_page":           perPage,
	})
}

// HandleGetActivityFeed returns a leaderboard's recent rating changes
func HandleGetActivityFeed(c *gin.Context, db *gorm.DB) {
	leaderboardID := c.Param("id")
	limit := intQuery(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	feed, err := leaderboard.GetActivityFeed(db, leaderboardID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// HandleGetLeaderboardStatus returns match volume info for a leaderboard
func HandleGetLeaderboardStatus(c *gin.Context, db *gorm.DB) {
	leaderboardID := c.Param("id")

	status, err := leaderboard.GetStatus(db, leaderboardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleGetEntryHistory returns an entry's rated game history with its
// current rank
func HandleGetEntryHistory(c *gin.Context, db *gorm.DB, minGames int) {
	entryID := c.Param("entry_id")
	page := intQuery(c, "page", 0)
	perPage := intQuery(c, "per_page", defaultPerPage)

	var entry models.LeaderboardEntry
	if err := db.Where("id = ?", entryID).First(&entry).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}

	history, err := leaderboard.GetGameHistoryForEntry(db, entryID, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	rank, err := leaderboard.GetRankForEntry(db, entry.LeaderboardID, entry.DisplayScore, entry.GamesPlayed, minGames)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry":   entry,
		"rank":    rank,
		"history": history,
	})
}

// HandleCreateLeaderboard creates a leaderboard. Admin only.
func HandleCreateLeaderboard(c *gin.Context, db *gorm.DB) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := validation.ValidateLeaderboardName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	board := models.Leaderboard{
		ID:   uuid.New().String(),
		Name: req.Name,
	}
	if err := db.Create(&board).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Leaderboard name already exists"})
		return
	}
	c.JSON(http.StatusCreated, board)
}

// HandleDisableLeaderboard hides a leaderboard from the matchmaker. Admin
// only. Leaderboards are never deleted.
func HandleDisableLeaderboard(c *gin.Context, db *gorm.DB) {
	leaderboardID := c.Param("id")

	var board models.Leaderboard
	if err := db.Where("id = ?", leaderboardID).First(&board).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Leaderboard not found"})
		return
	}

	now := time.Now()
	if err := db.Model(&board).Update("disabled_at", &now).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
