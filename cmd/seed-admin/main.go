package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/platinumchess/backend/internal/admin"
	"github.com/platinumchess/backend/internal/config"
	"github.com/platinumchess/backend/internal/database"
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

	// Seed admin account
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
		log.Printf("Using default admin username: %s", username)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	displayName := os.Getenv("ADMIN_DISPLAY_NAME")
	if displayName == "" {
		displayName = "Admin"
	}

	if err := admin.CreateAdminAccount(db, username, displayName, adminToken); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("✓ Admin account created/updated successfully")
	log.Printf("  Username: %s", username)
	log.Printf("  Display Name: %s", displayName)
	log.Println("\nYou can now login at /admin/login with:")
	log.Printf("  Username: %s", username)
	log.Printf("  Token: %s", adminToken)
}
