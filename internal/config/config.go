// Package config centralises configuration parsing for the activities service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration values for the activities service.
type Config struct {
	HTTPAddress            string
	CORSAllowedOrigins     []string
	MetricsEnabled         bool
	SeedFile               string // Empty selects the embedded catalog.
	DefaultLocale          string
	KafkaBrokers           []string // Empty disables participant events.
	ParticipantEventsTopic string
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxQueueSize        int
	ConsumerGroupID        string
	MetricsAddress         string // Consumer metrics listener.
	ShutdownTimeout        time.Duration
}

// Load reads environment variables into Config, applying defaults for local dev.
// Variables from the given dotenv files (or ./.env when none are given) fill in
// anything not already set in the environment.
func Load(envFiles ...string) Config {
	// .env is optional when variables come from the environment (Docker, CI).
	_ = godotenv.Load(envFiles...)

	return Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8000"),
		CORSAllowedOrigins:     splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MetricsEnabled:         getBoolEnv("METRICS_ENABLED", true),
		SeedFile:               getEnv("SEED_FILE", ""),
		DefaultLocale:          getEnv("DEFAULT_LOCALE", "en"),
		KafkaBrokers:           splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		ParticipantEventsTopic: getEnv("PARTICIPANT_EVENTS_TOPIC", "participant_events"),
		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 50),
		OutboxQueueSize:        getIntEnv("OUTBOX_QUEUE_SIZE", 1024),
		ConsumerGroupID:        getEnv("CONSUMER_GROUP_ID", "participant-audit"),
		MetricsAddress:         getEnv("METRICS_ADDRESS", ":9102"),
		ShutdownTimeout:        getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// EventsEnabled reports whether a Kafka broker list was configured.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
