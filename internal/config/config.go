package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Reaper configuration
	Reaper ReaperConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds Cashfree gateway configuration
type PaymentConfig struct {
	Environment   string // "sandbox" or "production"
	AppID         string // Cashfree client ID
	SecretKey     string // Cashfree client secret (SECRET - never expose)
	WebhookSecret string // Shared secret for webhook signature verification
	ReturnURL     string // URL the gateway redirects to after payment
	Currency      string // Settlement currency for orders
}

// ReaperConfig holds abandoned-booking sweep configuration
type ReaperConfig struct {
	AgeMinutes int    // pending bookings older than this are cancelled
	Schedule   string // cron expression for the in-process sweep
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Payment: PaymentConfig{
			Environment:   getEnv("CASHFREE_ENVIRONMENT", "sandbox"),
			AppID:         getEnv("CASHFREE_APP_ID", ""),
			SecretKey:     getEnv("CASHFREE_SECRET_KEY", ""),
			WebhookSecret: getEnv("CASHFREE_WEBHOOK_SECRET", ""),
			ReturnURL:     getEnv("CASHFREE_RETURN_URL", ""),
			Currency:      getEnv("SETTLEMENT_CURRENCY", "INR"),
		},
		Reaper: ReaperConfig{
			AgeMinutes: getEnvAsInt("REAPER_AGE_MINUTES", 30),
			Schedule:   getEnv("REAPER_SCHEDULE", "0 */5 * * * *"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Reaper.AgeMinutes <= 0 {
		return fmt.Errorf("REAPER_AGE_MINUTES must be positive")
	}

	// Gateway credentials are required only in production
	if c.Server.Environment == "production" {
		if c.Payment.AppID == "" {
			return fmt.Errorf("CASHFREE_APP_ID is required in production")
		}
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("CASHFREE_SECRET_KEY is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("CASHFREE_WEBHOOK_SECRET is required in production")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
