package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears every MACROLOGY_* variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{EnvDataDir, EnvDatabase, EnvLibrary, EnvTick, EnvLogLevel, EnvSink} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return home
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	c, err := Load("")
	require.NoError(t, err)

	dataDir := filepath.Join(home, ".macrology")
	assert.Equal(t, dataDir, c.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "macrology.db"), c.Database)
	assert.Equal(t, filepath.Join(dataDir, "library"), c.Library)
	assert.Equal(t, DefaultTickInterval, c.TickInterval.Duration)
	assert.Equal(t, SinkStdout, c.Sink.Kind)

	level, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_DefaultFileInDataDir(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".macrology", FileName), `
tick_interval = "20ms"
log_level = "debug"

[sink]
prefix = "> "
`)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, c.TickInterval.Duration)
	assert.Equal(t, "> ", c.Sink.Prefix)

	level, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	writeConfig(t, path, `
data_dir = "`+filepath.ToSlash(dir)+`"
library = "/srv/macros"

[sink]
kind = "lua"
script = "sink.lua"
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(dir), c.DataDir)
	assert.Equal(t, "/srv/macros", c.Library)
	assert.Equal(t, filepath.Join(filepath.ToSlash(dir), "macrology.db"), c.Database, "database follows the data dir")
	assert.Equal(t, SinkLua, c.Sink.Kind)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeConfig(t, path, `tick = "10ms"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "c.toml")
	writeConfig(t, path, `
tick_interval = "20ms"
log_level = "warn"
`)

	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvTick, "5ms")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvDatabase, filepath.Join(dir, "other.db"))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, c.TickInterval.Duration)
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, filepath.Join(dir, "other.db"), c.Database)
	assert.Equal(t, filepath.Join(dir, "library"), c.Library)
}

func TestLoad_BadEnvTick(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTick, "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTick)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero tick", func(c *Config) { c.TickInterval = Duration{} }, "tick_interval"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown sink", func(c *Config) { c.Sink.Kind = "chat" }, "unknown sink kind"},
		{"lua without script", func(c *Config) { c.Sink.Kind = SinkLua }, "sink.script"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			c, err := Default()
			require.NoError(t, err)
			tt.mutate(c)

			err = c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1.5s")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("fast")))
}

func TestEnsureDataDir(t *testing.T) {
	isolate(t)
	c := &Config{DataDir: filepath.Join(t.TempDir(), "a", "b")}

	require.NoError(t, c.EnsureDataDir())
	info, err := os.Stat(c.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
