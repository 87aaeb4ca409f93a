package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/api/handlers"
	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/middleware"
	"github.com/platinumchess/backend/internal/payment"
	"github.com/platinumchess/backend/internal/ws"
)

// SetupRoutes configures all HTTP routes. The realtime gateway rides on
// the same server under /ws.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, store *accounts.SQLStore, gateway *ws.Gateway, pf *payment.Client, fx *payment.FXClient, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ws", gateway.HandleWebSocket)

	router.GET("/fx/usd-zar", handlers.GetUSDZARRate(fx))

	payments := router.Group("/payments")
	{
		payments.POST("/deposit/form", handlers.DepositForm(pf, fx, cfg))
		payments.POST("/payfast/notify", handlers.PayFastNotify(db, store, pf))
		payments.GET("/payfast/return", handlers.PayFastReturn(cfg))
		payments.GET("/payfast/cancel", handlers.PayFastCancel(cfg))
	}

	players := router.Group("/players")
	{
		players.GET("/:id", handlers.GetProfile(db))
	}
	router.GET("/games/recent/:userId", handlers.RecentGames(store))

	adminGroup := router.Group("/admin")
	{
		adminGroup.POST("/login", handlers.AdminLogin(db, cfg))

		guarded := adminGroup.Group("", middleware.AdminAuth(cfg))
		guarded.POST("/players/balance", handlers.AdminUpdateBalance(db, store))
		guarded.GET("/audit", handlers.AdminAuditLogs(db))
	}
}
