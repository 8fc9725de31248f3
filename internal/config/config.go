package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN   string
	ClickhouseDSN string

	// Zero keeps the driver default.
	PostgresMaxConns     int
	PostgresConnLifetime time.Duration

	RecordsSQLitePath  string
	RecordsSQLiteTable string

	UseMemory     bool
	RunMigrations bool

	SampleLimit    int
	RequestTimeout time.Duration
	AlertInterval  time.Duration
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		PostgresMaxConns:     getEnvInt("POSTGRES_MAX_CONNS", 0),
		PostgresConnLifetime: getEnvDuration("POSTGRES_CONN_LIFETIME", 0),

		RecordsSQLitePath:  getEnv("RECORDS_SQLITE_PATH", ""),
		RecordsSQLiteTable: getEnv("RECORDS_SQLITE_TABLE", ""),

		UseMemory:     getEnvBool("USE_MEMORY", false),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", false),

		SampleLimit:    getEnvInt("SAMPLE_LIMIT", 5000),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		AlertInterval:  getEnvDuration("ALERT_INTERVAL", 5*time.Minute),
	}
}

// HasDatabase reports whether any database backend is configured.
func (c *Config) HasDatabase() bool {
	return c.PostgresDSN != "" || c.ClickhouseDSN != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n > 0 {
			return n
		}
		log.Printf("[config] invalid %s=%q, using %d", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
		log.Printf("[config] invalid %s=%q, using %t", key, val, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil && d > 0 {
			return d
		}
		log.Printf("[config] invalid %s=%q, using %s", key, val, fallback)
	}
	return fallback
}
