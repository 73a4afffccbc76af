// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pnr_parser/internal/storage"
)

// Config holds all configuration for the CLI, API server and worker.
type Config struct {
	// Logging
	LogLevel string

	// Server
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AuthEnabled  bool
	APIKeys      []string
	CORSOrigins  []string

	// Storage
	Storage storage.Config

	// NATS
	NATSURL        string
	InputSubject   string
	OutputSubject  string
	QueueGroup     string
	RequestTimeout time.Duration

	// Metrics
	MetricsNamespace string
}

// Load reads an optional .env file and then the environment. Values already
// set in the environment win over the file.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	defaults := storage.DefaultConfig()

	return &Config{
		LogLevel: getEnv("PNR_LOG_LEVEL", "info"),

		Port:         getEnvAsInt("PNR_PORT", 8080),
		ReadTimeout:  time.Duration(getEnvAsInt("PNR_READ_TIMEOUT", 15)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("PNR_WRITE_TIMEOUT", 15)) * time.Second,
		AuthEnabled:  getEnvAsBool("PNR_AUTH", false),
		APIKeys:      getEnvAsList("PNR_API_KEYS"),
		CORSOrigins:  getEnvAsList("PNR_CORS_ORIGINS"),

		Storage: storage.Config{
			Backend:    getEnv("PNR_STORAGE", storage.BackendNone),
			SQLitePath: getEnv("PNR_SQLITE_PATH", defaults.SQLitePath),
			Postgres: storage.PostgresConfig{
				Host:     getEnv("POSTGRES_HOST", defaults.Postgres.Host),
				Port:     getEnvAsInt("POSTGRES_PORT", defaults.Postgres.Port),
				Database: getEnv("POSTGRES_DATABASE", defaults.Postgres.Database),
				User:     getEnv("POSTGRES_USER", defaults.Postgres.User),
				Password: getEnv("POSTGRES_PASSWORD", defaults.Postgres.Password),
			},
			ClickHouse: storage.ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", defaults.ClickHouse.Host),
				Port:     getEnvAsInt("CLICKHOUSE_PORT", defaults.ClickHouse.Port),
				Database: getEnv("CLICKHOUSE_DATABASE", defaults.ClickHouse.Database),
				User:     getEnv("CLICKHOUSE_USER", defaults.ClickHouse.User),
				Password: getEnv("CLICKHOUSE_PASSWORD", defaults.ClickHouse.Password),
			},
		},

		NATSURL:        getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		InputSubject:   getEnv("PNR_INPUT_SUBJECT", "pnr.ocr.text"),
		OutputSubject:  getEnv("PNR_OUTPUT_SUBJECT", "pnr.parsed"),
		QueueGroup:     getEnv("PNR_QUEUE_GROUP", "pnr-parser"),
		RequestTimeout: time.Duration(getEnvAsInt("PNR_REQUEST_TIMEOUT", 10)) * time.Second,

		MetricsNamespace: getEnv("PNR_METRICS_NAMESPACE", "pnr_parser"),
	}
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
