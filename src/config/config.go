package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Bank API settings
	BankAPIBaseURL      string
	BankAPITokenURL     string
	BankAPIClientID     string
	BankAPIClientSecret string
	BankWebhookSecret   string
	WebhookPublicURL    string

	// Sync settings
	SyncRequestDelay time.Duration
	SyncChunkMaxDays int
	SyncFromDate     *time.Time
	SyncInterval     time.Duration

	// Gateway client tuning
	BankAPITimeout       time.Duration
	BankAPIRatePerSecond int

	// Webhook ingestion
	AccountCacheTTL time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	bankAPIBaseURL := getEnv("BANK_API_BASE_URL", "")
	bankAPITokenURL := getEnv("BANK_API_TOKEN_URL", strings.TrimSuffix(bankAPIBaseURL, "/")+"/oauth/token")

	requestDelayMs := getEnvAsInt("SYNC_REQUEST_DELAY_MS", 1500)
	if requestDelayMs < 0 {
		log.Printf("WARNING: Negative SYNC_REQUEST_DELAY_MS (%d), using 0.", requestDelayMs)
		requestDelayMs = 0
	}

	// 30 half-open days per request; the bank's 31-day window limit counts
	// both endpoint dates.
	chunkMaxDays := getEnvAsInt("SYNC_CHUNK_MAX_DAYS", 30)
	if chunkMaxDays <= 0 {
		log.Fatalf("FATAL: SYNC_CHUNK_MAX_DAYS must be positive, got %d.", chunkMaxDays)
	}

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./banksync.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Bank API
		BankAPIBaseURL:      bankAPIBaseURL,
		BankAPITokenURL:     bankAPITokenURL,
		BankAPIClientID:     getEnv("BANK_API_CLIENT_ID", ""),
		BankAPIClientSecret: getEnv("BANK_API_CLIENT_SECRET", ""),
		BankWebhookSecret:   getEnv("BANK_WEBHOOK_SECRET", ""),
		WebhookPublicURL:    getEnv("WEBHOOK_PUBLIC_URL", ""),

		// Sync
		SyncRequestDelay: time.Duration(requestDelayMs) * time.Millisecond,
		SyncChunkMaxDays: chunkMaxDays,
		SyncFromDate:     getEnvAsDate("SYNC_FROM_DATE"),
		SyncInterval:     getEnvAsDuration("SYNC_INTERVAL", 0),

		// Gateway client tuning
		BankAPITimeout:       getEnvAsDuration("BANK_API_TIMEOUT", 30*time.Second),
		BankAPIRatePerSecond: getEnvAsInt("BANK_API_RATE_PER_SECOND", 2),

		// Webhook ingestion
		AccountCacheTTL: getEnvAsDuration("ACCOUNT_CACHE_TTL", 5*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, BankAPI=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.BankAPIBaseURL)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsDate retrieves an environment variable as a YYYY-MM-DD date, or nil when unset.
func getEnvAsDate(key string) *time.Time {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return nil
	}
	value, err := time.Parse("2006-01-02", valueStr)
	if err != nil {
		log.Fatalf("FATAL: Invalid date for %s ('%s'), expected YYYY-MM-DD: %v", key, valueStr, err)
	}
	return &value
}
