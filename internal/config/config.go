// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Sync     SyncConfig     `toml:"sync"`
	Download DownloadConfig `toml:"download"`
}

// ServerConfig points at the remote fetch service.
type ServerConfig struct {
	URL      string `toml:"url"`
	APIKey   string `toml:"api_key"`
	Quality  string `toml:"quality"`
	LogLevel string `toml:"log_level"`
}

type StorageConfig struct {
	Database         string `toml:"database"`
	DownloadDir      string `toml:"download_dir"`
	PlaylistSnapshot string `toml:"playlist_snapshot"`
}

type SyncConfig struct {
	Interval     Duration `toml:"interval"`
	AutoDownload bool     `toml:"auto_download"`
	WifiOnly     bool     `toml:"wifi_only"`
	PlaylistID   string   `toml:"playlist_id"`
}

type DownloadConfig struct {
	MaxRetries     int      `toml:"max_retries"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	QueueWaitCap   Duration `toml:"queue_wait_cap"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	if cfg.Server.URL == "" {
		cfg.Server.URL = "http://127.0.0.1:8000"
	}
	if cfg.Server.Quality == "" {
		cfg.Server.Quality = "1080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = "./data/offtube.db"
	}
	if cfg.Storage.DownloadDir == "" {
		cfg.Storage.DownloadDir = "./videos"
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = Duration(30 * time.Minute)
	}
	if cfg.Download.MaxRetries == 0 {
		cfg.Download.MaxRetries = 3
	}
	if cfg.Download.InitialBackoff == 0 {
		cfg.Download.InitialBackoff = Duration(5 * time.Second)
	}
	if cfg.Download.MaxBackoff == 0 {
		cfg.Download.MaxBackoff = Duration(90 * time.Second)
	}
	if cfg.Download.QueueWaitCap == 0 {
		cfg.Download.QueueWaitCap = Duration(300 * time.Second)
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and reports the names it could not resolve. Supports ${VAR:-default} for
// fallback values and ${VAR:?message} for required variables; for both,
// an empty value counts as unset.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1] // Strip ${ and }

		if name, def, ok := strings.Cut(expr, ":-"); ok {
			if value := os.Getenv(name); value != "" {
				return value
			}
			return def
		}
		if name, msg, ok := strings.Cut(expr, ":?"); ok {
			if value := os.Getenv(name); value != "" {
				return value
			}
			missing = append(missing, name+": "+msg)
			return match
		}

		if value, ok := os.LookupEnv(expr); ok {
			return value
		}
		missing = append(missing, expr)
		return match
	})
	return out, missing
}

// ConfigError collects everything wrong with a config file in one error:
// unresolved environment variables and validation failures.
type ConfigError struct {
	Path    string
	Missing []string
	Errors  []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		parts = append(parts, "validation failed:")
		for _, msg := range e.Errors {
			parts = append(parts, "  - "+msg)
		}
	}
	return strings.Join(parts, "\n")
}

func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

//go:embed default_config.toml
var defaultConfig string

// WriteDefault writes the annotated starter config to path, creating
// parent directories as needed.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

// Write serializes the current config as TOML to path.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
