package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"snake-arena/backend/internal/leaderboard"
	"snake-arena/backend/internal/models"
	"snake-arena/backend/internal/validation"
)

// SnakeRequest is the body for creating or updating a snake
type SnakeRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	IsPublic bool   `json:"is_public"`
}

// HandleListSnakes returns the caller's snakes
func HandleListSnakes(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")

	var snakes []models.Snake
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&snakes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, snakes)
}

// HandleCreateSnake registers a new snake server
func HandleCreateSnake(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")

	var req SnakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := validation.ValidateSnakeName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateSnakeURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snake := models.Snake{
		ID:       uuid.New().String(),
		UserID:   userID,
		Name:     req.Name,
		URL:      req.URL,
		IsPublic: req.IsPublic,
	}
	if err := db.Create(&snake).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create snake"})
		return
	}
	c.JSON(http.StatusCreated, snake)
}

// HandleUpdateSnake updates a snake the caller owns
func HandleUpdateSnake(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")
	snakeID := c.Param("id")

	var snake models.Snake
	if err := db.Where("id = ? AND user_id = ?", snakeID, userID).First(&snake).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snake not found"})
		return
	}

	var req SnakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := validation.ValidateSnakeName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateSnakeURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := db.Model(&snake).Updates(map[string]interface{}{
		"name":      req.Name,
		"url":       req.URL,
		"is_public": req.IsPublic,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update snake"})
		return
	}
	c.JSON(http.StatusOK, snake)
}

// HandleDeleteSnake soft-deletes a snake and pauses its leaderboard entries.
// Past games keep referencing the snake through the soft-deleted row.
func HandleDeleteSnake(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")
	snakeID := c.Param("id")

	var snake models.Snake
	if err := db.Where("id = ? AND user_id = ?", snakeID, userID).First(&snake).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snake not found"})
		return
	}

	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&snake).Error; err != nil {
			return err
		}
		return tx.Model(&models.LeaderboardEntry{}).
			Where("snake_id = ? AND disabled_at IS NULL", snakeID).
			Update("disabled_at", &now).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete snake"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// HandleOptIn enrolls one of the caller's snakes in a leaderboard
func HandleOptIn(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")
	leaderboardID := c.Param("id")

	var req struct {
		SnakeID string `json:"snake_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var snake models.Snake
	if err := db.Where("id = ? AND user_id = ?", req.SnakeID, userID).First(&snake).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snake not found"})
		return
	}

	var board models.Leaderboard
	if err := db.Where("id = ? AND disabled_at IS NULL", leaderboardID).First(&board).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Leaderboard not found"})
		return
	}

	entry, err := leaderboard.CreateEntry(db, leaderboardID, snake.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join leaderboard"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// HandleOptOut pauses one of the caller's leaderboard entries. The entry and
// its history stay; the matchmaker just stops selecting it.
func HandleOptOut(c *gin.Context, db *gorm.DB) {
	userID := c.GetString("user_id")
	entryID := c.Param("entry_id")

	var entry models.LeaderboardEntry
	err := db.
		Joins("JOIN snakes s ON leaderboard_entries.snake_id = s.id").
		Where("leaderboard_entries.id = ? AND s.user_id = ?", entryID, userID).
		First(&entry).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}

	now := time.Now()
	if err := leaderboard.SetEntryDisabled(db, entry.ID, &now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}
