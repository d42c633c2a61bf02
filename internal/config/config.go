package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gastos/internal/currency"
)

// Modes of operation. Personal collapses all data onto one implicit
// owner and skips login; corporate requires a session login.
const (
	ModePersonal  = "personal"
	ModeCorporate = "corporate"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// Operation mode
	Mode string

	// Currency
	DefaultCountry string
	RateAPIURL     string
	RateRefreshTTL time.Duration

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		Mode: getEnv("MODE", ModePersonal),

		DefaultCountry: getEnv("DEFAULT_COUNTRY", currency.DefaultCountry),
		RateAPIURL:     getEnv("RATE_API_URL", currency.DefaultAPIURL),
		RateRefreshTTL: getEnvDuration("RATE_REFRESH_TTL", currency.DefaultRefreshTTL),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.Mode != ModePersonal && c.Mode != ModeCorporate {
		errors = append(errors, fmt.Sprintf("invalid mode '%s': must be '%s' or '%s'", c.Mode, ModePersonal, ModeCorporate))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if _, ok := currency.Countries[c.DefaultCountry]; !ok {
		errors = append(errors, fmt.Sprintf("unknown default country '%s'", c.DefaultCountry))
	}

	if c.RateAPIURL != "" {
		if parsed, err := url.Parse(c.RateAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate API URL '%s': %v", c.RateAPIURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rate API URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
	}

	if c.RateRefreshTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate refresh TTL %v: must be at least 1 minute", c.RateRefreshTTL))
	} else if c.RateRefreshTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rate refresh TTL %v: must be at most 168 hours", c.RateRefreshTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
