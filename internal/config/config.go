// Package config loads macrology settings from a TOML file and the
// environment.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// MACROLOGY_* environment variables, then command-line flags (applied by the
// CLI).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load.
const (
	EnvDataDir  = "MACROLOGY_DATA_DIR"
	EnvDatabase = "MACROLOGY_DB"
	EnvLibrary  = "MACROLOGY_LIBRARY"
	EnvTick     = "MACROLOGY_TICK"
	EnvLogLevel = "MACROLOGY_LOG_LEVEL"
	EnvSink     = "MACROLOGY_SINK"
)

// Sink kinds.
const (
	SinkStdout = "stdout"
	SinkLua    = "lua"
)

const (
	// DefaultTickInterval is how often the CLI driver calls OnTick.
	DefaultTickInterval = 50 * time.Millisecond

	// FileName is the config file looked up in the data directory.
	FileName = "config.toml"
)

// Config holds every setting the CLI needs.
type Config struct {
	DataDir      string     `toml:"data_dir"`
	Database     string     `toml:"database"`
	Library      string     `toml:"library"`
	TickInterval Duration   `toml:"tick_interval"`
	LogLevel     string     `toml:"log_level"`
	Sink         SinkConfig `toml:"sink"`
}

// SinkConfig selects where delivered commands go.
type SinkConfig struct {
	// Kind is "stdout" or "lua".
	Kind string `toml:"kind"`
	// Script is the Lua file for the lua kind.
	Script string `toml:"script"`
	// Prefix is written before each command by the stdout kind.
	Prefix string `toml:"prefix"`
}

// Duration is a time.Duration written as a Go duration string ("50ms").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings rooted at ~/.macrology.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate home directory: %w", err)
	}
	return &Config{
		DataDir:      filepath.Join(home, ".macrology"),
		TickInterval: Duration{DefaultTickInterval},
		LogLevel:     "info",
		Sink:         SinkConfig{Kind: SinkStdout},
	}, nil
}

// Load builds the configuration. If path is empty, config.toml in the data
// directory is used when it exists. An explicit path must exist.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		dataDir := getEnv(EnvDataDir, c.DataDir)
		path = filepath.Join(dataDir, FileName)
	}

	if err := c.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.fillPaths()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// mergeFile decodes the TOML file at path over c. Unknown keys are errors.
func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strict.String())
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnv(EnvDataDir, c.DataDir)
	c.Database = getEnv(EnvDatabase, c.Database)
	c.Library = getEnv(EnvLibrary, c.Library)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.Sink.Kind = getEnv(EnvSink, c.Sink.Kind)

	if v, ok := os.LookupEnv(EnvTick); ok {
		if err := c.TickInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvTick, err)
		}
	}
	return nil
}

// fillPaths derives the database and library paths from the data directory
// when they were not set.
func (c *Config) fillPaths() {
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "macrology.db")
	}
	if c.Library == "" {
		c.Library = filepath.Join(c.DataDir, "library")
	}
}

// Validate checks the settings for values the CLI cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.TickInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval.Duration))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Sink.Kind {
	case SinkStdout:
	case SinkLua:
		if c.Sink.Script == "" {
			errs = append(errs, errors.New("sink.script is required for the lua sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink kind %q", c.Sink.Kind))
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
