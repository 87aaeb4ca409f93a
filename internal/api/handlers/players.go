package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/models"
)

// GetProfile returns a player's profile and balance.
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile models.Profile
		err := db.Get(&profile,
			`SELECT id, username, balance_usd, created_at, updated_at FROM profiles WHERE id=$1`,
			c.Param("id"))
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// RecentGames returns a page of the player's finished games, newest first,
// with the opponent's username and the signed balance change per game.
func RecentGames(store *accounts.SQLStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
		if limit < 1 || limit > 50 {
			limit = 5
		}
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if offset < 0 {
			offset = 0
		}

		games, err := store.RecentGames(c.Request.Context(), c.Param("userId"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if games == nil {
			games = []models.GameSummary{}
		}
		c.JSON(http.StatusOK, gin.H{"games": games})
	}
}
