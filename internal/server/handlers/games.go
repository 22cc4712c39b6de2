package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"snake-arena/backend/internal/models"
)

// GameParticipant is a participant row enriched with snake info
type GameParticipant struct {
	LeaderboardEntryID *string `json:"leaderboard_entry_id,omitempty"`
	SnakeID            *string `json:"snake_id,omitempty"`
	SnakeName          string  `json:"snake_name"`
	OwnerUsername      string  `json:"owner_username"`
	Placement          *int    `json:"placement,omitempty"`
}

// HandleGetGame returns a game with its participants and placements
func HandleGetGame(c *gin.Context, db *gorm.DB) {
	gameID := c.Param("id")

	var game models.Game
	if err := db.Where("id = ?", gameID).First(&game).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	var participants []GameParticipant
	err := db.
		Table("game_snakes gs").
		Select(`gs.leaderboard_entry_id, gs.snake_id, s.name as snake_name,
			u.username as owner_username, gs.placement`).
		Joins("LEFT JOIN leaderboard_entries le ON gs.leaderboard_entry_id = le.id").
		Joins("JOIN snakes s ON COALESCE(le.snake_id, gs.snake_id) = s.id").
		Joins("JOIN users u ON s.user_id = u.id").
		Where("gs.game_id = ?", gameID).
		Order("gs.id ASC").
		Scan(&participants).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game":         game,
		"participants": participants,
	})
}

// HandleGetGameTurns returns a range of persisted frames for replay
func HandleGetGameTurns(c *gin.Context, db *gorm.DB) {
	gameID := c.Param("id")
	from := intQuery(c, "from", 0)
	limit := intQuery(c, "limit", 100)
	if limit > 500 {
		limit = 500
	}

	var turns []models.GameTurn
	err := db.
		Where("game_id = ? AND turn >= ?", gameID, from).
		Order("turn ASC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, turns)
}

// HandleListRecentGames returns recently finished games, newest first
func HandleListRecentGames(c *gin.Context, db *gorm.DB) {
	limit := intQuery(c, "limit", 25)
	if limit > 100 {
		limit = 100
	}

	var games []models.Game
	err := db.
		Where("status = ?", models.GameStatusFinished).
		Order("finished_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, games)
}
