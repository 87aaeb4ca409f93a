package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis (optional: cross-node broadcast mirror and FX cache)
	RedisURL string

	// Server
	Port          string
	FrontendURL   string
	PublicBaseURL string

	// Stakes
	MinStakeUSD   float64
	MinDepositUSD float64

	// PayFast
	PayFastMerchantID  string
	PayFastMerchantKey string
	PayFastPassphrase  string
	PayFastProcessURL  string

	// FX
	FXProviderURL string

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/platinumchess?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:          getEnv("APP_PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		// Stakes
		MinStakeUSD:   getEnvFloat("MIN_STAKE_USD", 0.25),
		MinDepositUSD: getEnvFloat("MIN_DEPOSIT_USD", 5),

		// PayFast
		PayFastMerchantID:  getEnv("PAYFAST_MERCHANT_ID", ""),
		PayFastMerchantKey: getEnv("PAYFAST_MERCHANT_KEY", ""),
		PayFastPassphrase:  getEnv("PAYFAST_PASSPHRASE", ""),
		PayFastProcessURL:  getEnv("PAYFAST_PROCESS_URL", "https://sandbox.payfast.co.za/eng/process"),

		// FX
		FXProviderURL: getEnv("FX_PROVIDER_URL", ""),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
