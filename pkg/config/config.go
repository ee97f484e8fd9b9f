// Package config loads the bot configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ListenAddr is the address the webhook HTTP listener binds to.
	ListenAddr string
	// WebhookURL is the externally reachable callback URL registered with
	// the platform.
	WebhookURL string
	// APIURL is the chat platform's REST API base URL.
	APIURL string
	// Token is the platform access token.
	Token string
	// AbortToModify makes an abort during a modify flow return to the
	// modify menu.
	AbortToModify bool

	Database DatabaseConfig
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Ignore a missing .env; the environment may be fully populated already.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:    ":" + getEnv("PORT", "3000"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		APIURL:        os.Getenv("CHAT_API_URL"),
		Token:         os.Getenv("CHAT_TOKEN"),
		AbortToModify: getEnvBool("ABORT_TO_MODIFY"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "registerbot"),
			User:     getEnv("DB_USER", "registerbot"),
			Password: os.Getenv("DB_PASSWORD"),
		},
	}

	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("CHAT_API_URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("CHAT_TOKEN is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && value
}
