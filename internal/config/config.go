package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port     string
	BaseURL  string
	LogLevel string

	// Database
	DBDriver string // "sqlite", "sqlite-pure" or "postgres"
	DBPath   string // SQLite file path
	DBURL    string // PostgreSQL connection string

	// Catalog
	CatalogPath     string // JSON or lz4-compressed JSON
	ReloadSchedule  string // cron expression, empty disables reloads
	StatsCacheSize  int
	DefaultDistance float64 // hundreds of metres
	DefaultAccuracy bool    // correct TTK for accuracy unless the request says otherwise

	// Secrets
	EncryptionKey string

	// Rate limiting for calculation routes, per client IP
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBPath:          getEnv("DB_PATH", "./data/gsf-buildbot.db"),
		DBURL:           getEnv("DATABASE_URL", ""),
		CatalogPath:     getEnv("CATALOG_PATH", "./data/catalog.json"),
		ReloadSchedule:  getEnv("CATALOG_RELOAD_SCHEDULE", "*/15 * * * *"),
		StatsCacheSize:  getEnvInt("STATS_CACHE_SIZE", 512),
		DefaultDistance: getEnvFloat("DEFAULT_DISTANCE", 30),
		DefaultAccuracy: getEnvBool("TTK_ACCURACY_DEFAULT", false),
		EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	val = strings.ToLower(val)
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}
