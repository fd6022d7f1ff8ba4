// Package config loads the vibeboard configuration from YAML, .env files,
// and environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings.
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Projects maps project ids to local repository paths.
	Projects map[string]string `yaml:"projects" mapstructure:"projects"`

	// Git subprocess settings
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// Ingestion settings
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`

	// Session correlation settings
	Correlate CorrelateConfig `yaml:"correlate" mapstructure:"correlate"`

	// Logging settings
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "postgres", "sqlite"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

type GitConfig struct {
	CommandTimeout    time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
	CommandsPerSecond float64       `yaml:"commands_per_second" mapstructure:"commands_per_second"`
}

type IngestConfig struct {
	BatchSize     int  `yaml:"batch_size" mapstructure:"batch_size"`
	DefaultLimit  int  `yaml:"default_limit" mapstructure:"default_limit"`
	IncludeBinary bool `yaml:"include_binary" mapstructure:"include_binary"`
}

type CorrelateConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	AuthorMatcher       string  `yaml:"author_matcher" mapstructure:"author_matcher"` // "none", "email"
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text", "json"
}

// Default returns default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".vibeboard", "local.db"),
		},
		Projects: map[string]string{},
		Git: GitConfig{
			CommandTimeout:    30 * time.Second,
			CommandsPerSecond: 10,
		},
		Ingest: IngestConfig{
			BatchSize:    50,
			DefaultLimit: 500,
		},
		Correlate: CorrelateConfig{
			ConfidenceThreshold: 0.3,
			AuthorMatcher:       "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file, falling back to standard locations
// when path is empty.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("git", cfg.Git)
	v.SetDefault("ingest", cfg.Ingest)
	v.SetDefault("correlate", cfg.Correlate)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("VIBEBOARD")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".vibeboard")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".vibeboard"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	for id, path := range cfg.Projects {
		cfg.Projects[id] = expandPath(path)
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".vibeboard", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	if timeout := os.Getenv("GIT_COMMAND_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Git.CommandTimeout = d
		}
	}
	if rate := os.Getenv("GIT_COMMANDS_PER_SECOND"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Git.CommandsPerSecond = f
		}
	}

	if size := os.Getenv("INGEST_BATCH_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			cfg.Ingest.BatchSize = n
		}
	}

	if threshold := os.Getenv("CORRELATE_CONFIDENCE_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.Correlate.ConfidenceThreshold = f
		}
	}
	if matcher := os.Getenv("CORRELATE_AUTHOR_MATCHER"); matcher != "" {
		cfg.Correlate.AuthorMatcher = matcher
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
}

// Validate checks the configuration for obvious mistakes before any
// component is wired up.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q (want sqlite or postgres)", c.Storage.Type)
	}

	switch c.Correlate.AuthorMatcher {
	case "", "none", "email":
	default:
		return fmt.Errorf("unknown author matcher %q (want none or email)", c.Correlate.AuthorMatcher)
	}

	if c.Correlate.ConfidenceThreshold < 0 || c.Correlate.ConfidenceThreshold > 1 {
		return fmt.Errorf("correlate.confidence_threshold must be in [0,1]")
	}

	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
