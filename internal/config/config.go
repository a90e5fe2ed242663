package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults;
// a .env file in the working directory is loaded first when present.
//
// Environment Variables:
// Server:
// - PORT: HTTP listen port (default: 8080)
//
// Storage:
// - DOWNLOAD_DIR: directory downloaded files are written to (default: downloads)
// - RETENTION_HOURS: hours a file is kept before the sweeper deletes it (default: 24)
// - CLEANUP_CRON: schedule for the recurring sweep (default: "0 0 * * *", local midnight)
//
// Extractor:
// - YTDLP_PATH: extraction tool executable (default: yt-dlp)
//
// Logging:
// - LOG_LEVEL: debug|info|warn|error (default: info)
// - LOG_PRETTY: human-readable console output (default: true)
// - LOG_FILE: rotated log file path, empty disables file logging (default: logs/tubedl.log)
type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Tool    ToolConfig    `json:"tool"`
	Logging LoggingConfig `json:"logging"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type StorageConfig struct {
	DownloadDir    string `json:"download_dir"`
	RetentionHours int    `json:"retention_hours"`
	CleanupCron    string `json:"cleanup_cron"`
}

// ToolConfig holds the configuration for the external extraction tool.
type ToolConfig struct {
	Path string `json:"path"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Pretty     bool   `json:"pretty"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// New loads .env (if any) and builds a Config from the environment.
func New(opts ...Option) (*Config, error) {
	_ = godotenv.Load()
	return NewFromEnv(opts...)
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Storage: StorageConfig{
			DownloadDir:    getEnvString("DOWNLOAD_DIR", "downloads"),
			RetentionHours: getEnvInt("RETENTION_HOURS", 24),
			CleanupCron:    getEnvString("CLEANUP_CRON", "0 0 * * *"),
		},
		Tool: ToolConfig{
			Path: getEnvString("YTDLP_PATH", "yt-dlp"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Pretty:     getEnvBool("LOG_PRETTY", true),
			File:       getEnvString("LOG_FILE", "logs/tubedl.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Storage.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Storage.RetentionHours <= 0 {
		return fmt.Errorf("RETENTION_HOURS must be positive, got %d", c.Storage.RetentionHours)
	}
	if c.Tool.Path == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
