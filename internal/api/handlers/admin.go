package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/admin"
	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/middleware"
)

// AdminLogin exchanges a username + token for a session JWT.
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Token    string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and token required"})
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and token required"})
			return
		}

		account, err := admin.ValidateAdminCredentials(db, username, req.Token)
		if err != nil {
			admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "login", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := middleware.IssueAdminToken(cfg, account.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "login", nil, true)
		c.JSON(http.StatusOK, gin.H{
			"token":        token,
			"display_name": account.DisplayName,
		})
	}
}

// AdminUpdateBalance sets a player's balance directly. Every call lands in
// the audit log with both the old and new figure.
func AdminUpdateBalance(db *sqlx.DB, store *accounts.SQLStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     string  `json:"userId"`
			BalanceUSD float64 `json:"balanceUsd"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId and balanceUsd required"})
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" || req.BalanceUSD < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId and a non-negative balanceUsd required"})
			return
		}

		adminUser := c.GetString("admin_user")
		ctx := c.Request.Context()

		previous, err := store.GetBalanceUSD(ctx, userID)
		if err != nil {
			admin.LogAdminAction(db, adminUser, c.ClientIP(), c.FullPath(), "update_balance",
				map[string]interface{}{"user_id": userID, "error": err.Error()}, false)
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}

		if err := store.SetBalanceUSD(ctx, userID, req.BalanceUSD); err != nil {
			admin.LogAdminAction(db, adminUser, c.ClientIP(), c.FullPath(), "update_balance",
				map[string]interface{}{"user_id": userID, "error": err.Error()}, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update balance"})
			return
		}

		admin.LogAdminAction(db, adminUser, c.ClientIP(), c.FullPath(), "update_balance",
			map[string]interface{}{"user_id": userID, "previous": previous, "next": req.BalanceUSD}, true)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "balanceUsd": req.BalanceUSD, "previousUsd": previous})
	}
}

// AdminAuditLogs returns recent admin actions with pagination.
func AdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if offset < 0 {
			offset = 0
		}

		logs, err := admin.GetAdminAuditLogs(db, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
