package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DataBackend  string
	SQLiteDBPath string

	// LLM
	GeminiModel string

	// Dialogue routing
	ConfidenceThreshold float64
	HistoryLimit        int

	// AMQP (dialogue event stream for the logging sidecar)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring-transaction worker
	RecurringSchedule string
	RecurringBatch    int

	// Conversation history cache
	HistoryCacheSize int
	HistoryCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/jarvis.db"),

		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.6),
		HistoryLimit:        getEnvInt("HISTORY_LIMIT", 5),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "jarvis"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dialogue_events"),

		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "@daily"),
		RecurringBatch:    getEnvInt("RECURRING_BATCH", 50),

		HistoryCacheSize: getEnvInt("HISTORY_CACHE_SIZE", 1000),
		HistoryCacheTTL:  getEnvDuration("HISTORY_CACHE_TTL", 30*time.Minute),
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

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "sqlite backend requires SQLITE_DB_PATH")
	}

	if strings.TrimSpace(c.GeminiModel) == "" {
		errors = append(errors, "gemini model must not be empty")
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid confidence threshold %v: must be in [0,1]", c.ConfidenceThreshold))
	}

	if c.HistoryLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid history limit %d: must be >= 0", c.HistoryLimit))
	}

	if c.RecurringBatch < 1 {
		errors = append(errors, fmt.Sprintf("invalid recurring batch %d: must be >= 1", c.RecurringBatch))
	}

	if c.HistoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid history cache size %d: must be >= 1", c.HistoryCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
