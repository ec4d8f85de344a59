package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis (optional, enables contact notifications)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort        string
	ServiceApiPort string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool
	EmailLogFile    string
	ContactNotifyTo string
	DefaultLocale   string

	// App Defaults
	AppName string
}

// NotificationsEnabled reports whether saved contact messages should be
// forwarded to the site owner.
func (c *Config) NotificationsEnabled() bool {
	return c.RedisAddr != "" && c.ContactNotifyTo != ""
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	// Empty values count as unset.
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
		return defaultValue
	}

	// The first key found wins; older deployments used MONGODB_URI and PORT.
	getRequiredEnv := func(keys ...string) (string, error) {
		for _, key := range keys {
			if value, exists := os.LookupEnv(key); exists && value != "" {
				return value, nil
			}
		}
		return "", fmt.Errorf("missing required environment variable: %s", keys[0])
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI", "MONGODB_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "bookmarket")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", getEnv("PORT", "3000"))
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@bookmarket.example.com")
	cfg.EmailLogFile = getEnv("EMAIL_LOG_FILE", "")
	cfg.ContactNotifyTo = getEnv("CONTACT_NOTIFY_TO", "")
	cfg.DefaultLocale = getEnv("DEFAULT_LOCALE", "en-US")
	cfg.AppName = getEnv("APP_NAME", "Book Market")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.MockServices, err = strconv.ParseBool(getEnv("MOCK_SERVICES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_SERVICES: %w", err)
	}

	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		return nil, fmt.Errorf("invalid run mode: %q", cfg.RunMode)
	}
	if cfg.RunMode == "bg" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("run mode 'bg' requires REDIS_ADDR")
	}

	return cfg, nil
}
