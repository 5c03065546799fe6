package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Config is the root configuration for modwatch.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Workshop  Workshop  `toml:"workshop"`
	Scheduler Scheduler `toml:"scheduler"`
	Verify    Verify    `toml:"verify"`
	Logging   Logging   `toml:"logging"`
}

// Paths holds filesystem locations used by the store and logger.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Workshop configures the marketplace search client.
type Workshop struct {
	BaseURL         string `toml:"base_url"`
	SearchMaxPages  int    `toml:"search_max_pages"`
	CatalogMaxPages int    `toml:"catalog_max_pages"`
}

// Scheduler configures request pacing and retry behavior.
type Scheduler struct {
	RequestFloorMS int `toml:"request_floor_ms"`
	InitialRetryMS int `toml:"initial_retry_ms"`
	RetryMS        int `toml:"retry_ms"`
	MaxRetries     int `toml:"max_retries"`
}

// Verify configures the external verification tool endpoint.
type Verify struct {
	BaseURL        string `toml:"base_url"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "modwatch", "config.toml")
	}
	return filepath.Join(home, ".config", "modwatch", "config.toml")
}

// Load reads configuration from path, or from the default location when
// path is empty. It returns the config, the path actually used, and
// whether a file was found there. A missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	expanded, err := ExpandPath(resolved)
	if err != nil {
		return nil, resolved, false, err
	}

	cfg := Default()
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := cfg.normalize(); err != nil {
				return nil, expanded, false, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, expanded, false, err
			}
			return cfg, expanded, false, nil
		}
		return nil, expanded, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, expanded, true, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, expanded, true, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, expanded, true, err
	}
	return cfg, expanded, true, nil
}

// ExpandPath resolves ~ prefixes and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}

// CreateSample writes the annotated sample configuration to path.
// It refuses to overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
