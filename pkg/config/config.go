package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Remote        RemoteConfig
	Import        ImportConfig
	Notify        NotifyConfig
	Observability ObservabilityConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type RemoteConfig struct {
	BaseURL            string
	ImportPath         string
	Timeout            time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	SigningKey         string
	Issuer             string
	Audience           string
}

type ImportConfig struct {
	MaxFileBytes       int64
	AcceptedExtensions []string
	SpreadsheetEnabled bool
	DetectDelimiter    bool
	SessionIdleTimeout time.Duration
	SweepSchedule      string
}

type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
		},
		Remote: RemoteConfig{
			BaseURL:            getEnv("REMOTE_IMPORT_URL", ""),
			ImportPath:         getEnv("REMOTE_IMPORT_PATH", "/api/billing-schedules/import"),
			Timeout:            getEnvAsDuration("REMOTE_TIMEOUT", 60*time.Second),
			RateLimitPerSecond: getEnvAsFloat("REMOTE_RATE_LIMIT_PER_SECOND", 5),
			RateLimitBurst:     getEnvAsInt("REMOTE_RATE_LIMIT_BURST", 10),
			SigningKey:         getEnv("REMOTE_SIGNING_KEY", ""),
			Issuer:             getEnv("REMOTE_TOKEN_ISSUER", "schedule-importer"),
			Audience:           getEnv("REMOTE_TOKEN_AUDIENCE", ""),
		},
		Import: ImportConfig{
			MaxFileBytes:       int64(getEnvAsInt("IMPORT_MAX_FILE_BYTES", 5242880)),
			AcceptedExtensions: getEnvAsList("IMPORT_ACCEPTED_EXTENSIONS", []string{".csv", ".xlsx", ".xls"}),
			SpreadsheetEnabled: getEnvAsBool("IMPORT_SPREADSHEET_ENABLED", true),
			DetectDelimiter:    getEnvAsBool("IMPORT_DETECT_DELIMITER", false),
			SessionIdleTimeout: getEnvAsDuration("IMPORT_SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepSchedule:      getEnv("IMPORT_SWEEP_SCHEDULE", "*/5 * * * *"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Remote.BaseURL == "" {
		return nil, errors.New("REMOTE_IMPORT_URL is required")
	}

	if cfg.Import.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("IMPORT_MAX_FILE_BYTES must be positive, got %d", cfg.Import.MaxFileBytes)
	}

	return cfg, nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
