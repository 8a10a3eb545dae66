package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL     string
	ServerPort      string
	BaseURL         string
	FrontendURL     string
	EnableHSTS      bool
	RedisURL        string
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string

	// Remote emissions estimator
	ClimatiqAPIKey      string
	ClimatiqBaseURL     string
	ClimatiqContract    string
	ClimatiqRegion      string
	ClimatiqDataVersion string
	EstimatorTimeout    time.Duration
	EmissionFactorsFile string

	DefaultUserID    string
	RateLimitDefault string
	RequestTimeout   time.Duration
	MaxRequestBytes  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		ClimatiqAPIKey:      getEnv("CLIMATIQ_API_KEY", ""),
		ClimatiqBaseURL:     getEnv("CLIMATIQ_BASE_URL", "https://api.climatiq.io"),
		ClimatiqContract:    strings.ToLower(getEnv("CLIMATIQ_CONTRACT", "data_v1")),
		ClimatiqRegion:      getEnv("CLIMATIQ_REGION", ""),
		ClimatiqDataVersion: getEnv("CLIMATIQ_DATA_VERSION", ""),
		EstimatorTimeout:    getEnvDuration("ESTIMATOR_TIMEOUT", 5*time.Second),
		EmissionFactorsFile: getEnv("EMISSION_FACTORS_FILE", ""),

		DefaultUserID:    getEnv("DEFAULT_USER_ID", "default-user"),
		RateLimitDefault: getEnv("RATE_LIMIT_DEFAULT", "10-S"),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBytes:  getEnvInt("MAX_REQUEST_BYTES", 1<<20),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EstimatorTimeout <= 0 {
		return nil, fmt.Errorf("ESTIMATOR_TIMEOUT must be positive")
	}

	return cfg, nil
}

// LoadEstimator loads only the settings needed to run the emissions estimator, so
// offline tooling works without a database.
func LoadEstimator() *Config {
	return &Config{
		ClimatiqAPIKey:      getEnv("CLIMATIQ_API_KEY", ""),
		ClimatiqBaseURL:     getEnv("CLIMATIQ_BASE_URL", "https://api.climatiq.io"),
		ClimatiqContract:    strings.ToLower(getEnv("CLIMATIQ_CONTRACT", "data_v1")),
		ClimatiqRegion:      getEnv("CLIMATIQ_REGION", ""),
		ClimatiqDataVersion: getEnv("CLIMATIQ_DATA_VERSION", ""),
		EstimatorTimeout:    getEnvDuration("ESTIMATOR_TIMEOUT", 5*time.Second),
		EmissionFactorsFile: getEnv("EMISSION_FACTORS_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("750ms") or plain seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
