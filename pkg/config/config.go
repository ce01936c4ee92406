package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Source (mse.mk)
	MSE MSEConfig

	// Pipeline stages
	Sync     SyncConfig
	Analysis AnalysisConfig
	Sink     SinkConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds the price store configuration
type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	URL        string
	SQLitePath string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MSEConfig holds Macedonian Stock Exchange source configuration
type MSEConfig struct {
	BaseURL    string
	Language   string // en, mk
	Transport  string // http, async, browser
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  float64 // requests per second, 0 = unlimited
	AsyncLimit int     // concurrent chunk fetches per issuer (async transport)
	UserAgent  string
	Headless   bool
}

// SyncConfig holds synchronization coordinator configuration
type SyncConfig struct {
	Workers       int
	ChunkDays     int
	LookbackYears int
	Schedule      string
	Reformat      bool // run the re-format pass after each merge
}

// AnalysisConfig holds analysis coordinator configuration
type AnalysisConfig struct {
	Workers    int
	ParamsFile string
	Schedule   string
}

// SinkConfig holds result sink configuration
type SinkConfig struct {
	Kinds       []string // csv, api, db
	OutputDir   string
	APIURL      string
	IncludeHold bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			URL:             getEnv("DATABASE_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "macedonian_stock_exchange.db"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MSE: MSEConfig{
			BaseURL:    getEnv("MSE_BASE_URL", "https://www.mse.mk"),
			Language:   getEnv("MSE_LANGUAGE", "en"),
			Transport:  getEnv("MSE_TRANSPORT", "http"),
			Timeout:    getEnvAsDuration("MSE_TIMEOUT", "30s"),
			MaxRetries: getEnvAsInt("MSE_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("MSE_RETRY_DELAY", "1s"),
			RateLimit:  getEnvAsFloat("MSE_RATE_LIMIT", 20),
			AsyncLimit: getEnvAsInt("MSE_ASYNC_LIMIT", 4),
			UserAgent:  getEnv("MSE_USER_AGENT", "Mozilla/5.0"),
			Headless:   getEnvAsBool("MSE_HEADLESS", true),
		},

		Sync: SyncConfig{
			Workers:       getEnvAsInt("SYNC_WORKERS", 100),
			ChunkDays:     getEnvAsInt("SYNC_CHUNK_DAYS", 340),
			LookbackYears: getEnvAsInt("SYNC_LOOKBACK_YEARS", 10),
			Schedule:      getEnv("SYNC_SCHEDULE", "0 0 18 * * MON-FRI"),
			Reformat:      getEnvAsBool("SYNC_REFORMAT", true),
		},

		Analysis: AnalysisConfig{
			Workers:    getEnvAsInt("ANALYSIS_WORKERS", 4),
			ParamsFile: getEnv("ANALYSIS_PARAMS_FILE", ""),
			Schedule:   getEnv("ANALYSIS_SCHEDULE", "0 30 18 * * MON-FRI"),
		},

		Sink: SinkConfig{
			Kinds:       getEnvAsList("SINK_KINDS", "csv"),
			OutputDir:   getEnv("SINK_OUTPUT_DIR", "analysis_results"),
			APIURL:      getEnv("SINK_API_URL", ""),
			IncludeHold: getEnvAsBool("SINK_INCLUDE_HOLD", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: postgres, sqlite")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.MSE.Transport {
	case "http", "async", "browser":
	default:
		return fmt.Errorf("MSE_TRANSPORT must be one of: http, async, browser")
	}

	if c.MSE.Language != "en" && c.MSE.Language != "mk" {
		return fmt.Errorf("MSE_LANGUAGE must be one of: en, mk")
	}

	for _, kind := range c.Sink.Kinds {
		switch kind {
		case "csv":
		case "db":
			if c.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required for the db sink")
			}
		case "api":
			if c.Sink.APIURL == "" {
				return fmt.Errorf("SINK_API_URL is required for the api sink")
			}
		default:
			return fmt.Errorf("unknown sink kind: %s (valid: csv, api, db)", kind)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)

	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
