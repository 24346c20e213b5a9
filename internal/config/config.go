package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BackupConfig controls the remote snap-cache backup
type BackupConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// Config is the application configuration. Values come from an optional
// YAML file (CONFIG_PATH) with environment variables taking precedence.
type Config struct {
	Port                 string       `yaml:"port" validate:"required"`
	DBPath               string       `yaml:"dbPath" validate:"required"`
	SnapCacheDir         string       `yaml:"snapCacheDir" validate:"required"`
	SnapAPIKey           string       `yaml:"snapApiKey"`
	SnapBaseURL          string       `yaml:"snapBaseUrl"`
	FlushIntervalSeconds int          `yaml:"flushIntervalSeconds" validate:"gte=0"`
	Backup               BackupConfig `yaml:"backup"`
}

func defaults() *Config {
	return &Config{
		Port:                 ":8080",
		DBPath:               "./data/replay.db",
		SnapCacheDir:         "./data/snapcache",
		FlushIntervalSeconds: 60,
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if cfg.Port != "" && cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dir := os.Getenv("SNAP_CACHE_DIR"); dir != "" {
		cfg.SnapCacheDir = dir
	}
	if key := os.Getenv("SNAP_API_KEY"); key != "" {
		cfg.SnapAPIKey = key
	}
	if url := os.Getenv("SNAP_BASE_URL"); url != "" {
		cfg.SnapBaseURL = url
	}
	if interval := os.Getenv("SNAP_FLUSH_INTERVAL_SECONDS"); interval != "" {
		n, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SNAP_FLUSH_INTERVAL_SECONDS: %w", err)
		}
		cfg.FlushIntervalSeconds = n
	}
	if bucket := os.Getenv("BACKUP_BUCKET"); bucket != "" {
		cfg.Backup.Enabled = true
		cfg.Backup.Bucket = bucket
	}
	if region := os.Getenv("BACKUP_REGION"); region != "" {
		cfg.Backup.Region = region
	}
	if prefix := os.Getenv("BACKUP_PREFIX"); prefix != "" {
		cfg.Backup.Prefix = prefix
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Backup.Enabled && (cfg.Backup.Bucket == "" || cfg.Backup.Region == "") {
		return nil, fmt.Errorf("backup enabled but bucket or region missing")
	}

	return cfg, nil
}
