package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Sheets  SheetsConfig
	Stripe  StripeConfig
	Session SessionConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// SheetsConfig holds the Google Sheets ledger configuration
type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
}

// StripeConfig holds the payment gateway configuration
type StripeConfig struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
}

// SessionConfig holds login session and payment polling configuration
type SessionConfig struct {
	Secret       string
	IdleTimeout  time.Duration
	PollInterval time.Duration
}

// LoadConfig loads the configuration from environment variables. A .env file
// in the working directory is loaded first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Sheets: SheetsConfig{
			CredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ".credentials/service_account.json"),
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		},
		Stripe: StripeConfig{
			SecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
			Currency:   getEnv("STRIPE_CURRENCY", "eur"),
			SuccessURL: getEnv("STRIPE_SUCCESS_URL", "https://example.com/success"),
			CancelURL:  getEnv("STRIPE_CANCEL_URL", "https://example.com/cancel"),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", "honesty-tab-dev-secret"),
			IdleTimeout:  getEnvAsDuration("SESSION_IDLE_TIMEOUT", 120*time.Second),
			PollInterval: getEnvAsDuration("PAYMENT_POLL_INTERVAL", time.Second),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
