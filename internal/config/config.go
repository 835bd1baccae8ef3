package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port                 string
	DatabaseURL          string
	Version              string
	LogLevel             string
	OpenAIKey            string
	OpenAIModel          string // Chat model used for offer extraction
	OpenAITimeout        int    // OpenAI API timeout in seconds
	GoogleClientID       string // OAuth client for the Gmail API
	GoogleClientSecret   string
	GoogleRefreshToken   string // Long-lived refresh token for the purchasing mailbox
	GmailUser            string // Mailbox being watched (default: "me")
	PubSubTopic          string // Fully qualified topic Gmail pushes notifications to
	CandidateLimit       int    // Max open quotations considered when matching a reply
	HistoryPageSize      int    // Max history events resolved per notification
	WatchRenewHours      int    // Gmail watch renewal interval in hours (expires after ~7 days)
	SendGridAPIKey       string // SendGrid API key for sending quotation requests
	PurchasingEmail      string // From address on outbound quotation requests
	PurchasingName       string // Display name on outbound quotation requests
	QuotationCacheTTLSec int    // TTL for the cached quotation listing in seconds
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Version:              getEnv("VERSION", "1.0.0"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout:        getEnvInt("OPENAI_TIMEOUT", 45),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken:   os.Getenv("GOOGLE_REFRESH_TOKEN"),
		GmailUser:            getEnv("GMAIL_USER", "me"),
		PubSubTopic:          os.Getenv("PUBSUB_TOPIC"),
		CandidateLimit:       getEnvInt("CANDIDATE_LIMIT", 50),
		HistoryPageSize:      getEnvInt("HISTORY_PAGE_SIZE", 100),
		WatchRenewHours:      getEnvInt("WATCH_RENEW_HOURS", 144), // 6 days, watch expires after 7
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		PurchasingEmail:      getEnv("PURCHASING_EMAIL", "compras@cotador.app"),
		PurchasingName:       getEnv("PURCHASING_NAME", "Cotador Compras"),
		QuotationCacheTTLSec: getEnvInt("QUOTATION_CACHE_TTL_SECONDS", 30),
	}

	return config
}

// HasGmailCredentials reports whether the Gmail OAuth credentials are configured
func (c *Config) HasGmailCredentials() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRefreshToken != ""
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	// Configure zerolog to output JSON without newlines
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Create logger with JSON output to stdout
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "cotador").
		Str("version", c.Version).
		Logger()

	// Set log level based on configuration
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
