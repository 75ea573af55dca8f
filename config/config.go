// Package config loads foodmatch settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"foodmatch/matcher"
	"foodmatch/similarity"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "FOODMATCH_CONFIG"

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"foodmatch.yaml",
	"foodmatch.yml",
}

// Config is the full application configuration
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Matching MatchingConfig `koanf:"matching"`
	Logging  LoggingConfig  `koanf:"logging"`
	Import   ImportConfig   `koanf:"import"`
}

// DatabaseConfig locates the SQLite ledger
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// StorageConfig locates stored photos
type StorageConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// MatchingConfig holds the match thresholds and the history window
type MatchingConfig struct {
	MaxHashDistance        int     `koanf:"max_hash_distance" validate:"gte=0,lte=192"`
	MinHistogramSimilarity float64 `koanf:"min_histogram_similarity" validate:"gte=0,lte=1"`
	HistoryWindow          int     `koanf:"history_window" validate:"gt=0"`
}

// LoggingConfig selects log level, format and the optional debug file
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=console json"`
	File   string `koanf:"file"`
}

// ImportConfig tunes folder import
type ImportConfig struct {
	// Workers of 0 means one per usable CPU
	Workers int  `koanf:"workers" validate:"gte=0"`
	UseExif bool `koanf:"use_exif"`
}

// Thresholds converts the matching section to scorer thresholds
func (m MatchingConfig) Thresholds() similarity.Thresholds {
	return similarity.Thresholds{
		MaxHashDistance:        m.MaxHashDistance,
		MinHistogramSimilarity: m.MinHistogramSimilarity,
	}
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "foodlog.db"},
		Storage:  StorageConfig{Dir: "photos"},
		Matching: MatchingConfig{
			MaxHashDistance:        similarity.DefaultMaxHashDistance,
			MinHistogramSimilarity: similarity.DefaultMinHistogramSimilarity,
			HistoryWindow:          matcher.DefaultWindow,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Import: ImportConfig{
			Workers: 0,
			UseExif: true,
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration. An explicit path must exist; otherwise the
// config file is optional and looked up via FOODMATCH_CONFIG and
// DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// FOODMATCH_MAX_HASH_DISTANCE -> matching.max_hash_distance
	if err := k.Load(env.Provider("FOODMATCH_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every section against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps FOODMATCH_* variables to config keys. Unknown
// variables are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "FOODMATCH_"))

	envMappings := map[string]string{
		"database":                 "database.path",
		"database_path":            "database.path",
		"storage_dir":              "storage.dir",
		"max_hash_distance":        "matching.max_hash_distance",
		"min_histogram_similarity": "matching.min_histogram_similarity",
		"history_window":           "matching.history_window",
		"log_level":                "logging.level",
		"log_format":               "logging.format",
		"log_file":                 "logging.file",
		"import_workers":           "import.workers",
		"import_use_exif":          "import.use_exif",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
