package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/platinumchess/backend/internal/accounts"
	"github.com/platinumchess/backend/internal/api"
	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/database"
	"github.com/platinumchess/backend/internal/game"
	"github.com/platinumchess/backend/internal/migrations"
	"github.com/platinumchess/backend/internal/payment"
	"github.com/platinumchess/backend/internal/redis"
	"github.com/platinumchess/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	store := accounts.NewSQLStore(db)

	// Realtime hub and game engine
	hub := ws.NewHub()
	go hub.Run()
	svc := game.NewService(store, hub, cfg.MinStakeUSD)
	gateway := ws.NewGateway(hub, svc)

	// Redis is optional: it carries the cross-node broadcast mirror and
	// the FX rate cache. Without it the server runs single-node.
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("[REDIS] Not available (%v) - running single-node", err)
		rdb = nil
	} else {
		defer rdb.Close()
		mirror := ws.NewMirror(rdb)
		hub.SetMirror(mirror)
		mirror.StartSubscriber(context.Background(), hub)
	}

	// PayFast client (if configured)
	pf := payment.NewClient(cfg)
	if pf != nil {
		log.Printf("[PAYMENT] PayFast client initialized (process=%s)", pf.ProcessURL())
	}
	fx := payment.NewFXClient(rdb, cfg.FXProviderURL)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, db, store, gateway, pf, fx, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlatinumChess server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
