package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	DataDir  string `toml:"data_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Reaper contains connection settings for the REAPER web-remote endpoint.
type Reaper struct {
	BaseURL                string `toml:"base_url"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	RetryAttempts          int    `toml:"retry_attempts"`
	RetryDelayMillis       int    `toml:"retry_delay_ms"`
	PollIntervalMillis     int    `toml:"poll_interval_ms"`
	ReconnectDelaySeconds  int    `toml:"reconnect_delay_seconds"`
	MaxReconnectAttempts   int    `toml:"max_reconnect_attempts"`
	ExtStateSection        string `toml:"ext_state_section"`
}

// Transport contains navigation and count-in behavior settings.
type Transport struct {
	CountInBars       int  `toml:"count_in_bars"`
	SettleDelayMillis int  `toml:"settle_delay_ms"`
	SeekEpsilonMillis int  `toml:"seek_epsilon_ms"`
	Autoplay          bool `toml:"autoplay"`
	CountIn           bool `toml:"count_in"`
}

// Clock contains local position extrapolation settings.
type Clock struct {
	TickIntervalMillis      int `toml:"tick_interval_ms"`
	SeekJumpThresholdMillis int `toml:"seek_jump_threshold_ms"`
}

// MIDIMapping binds a note number to a named action.
type MIDIMapping struct {
	Note   int    `toml:"note"`
	Action string `toml:"action"`
	Region string `toml:"region,omitempty"`
}

// MIDI contains MIDI input configuration.
type MIDI struct {
	Enabled        bool          `toml:"enabled"`
	PortName       string        `toml:"port_name"`
	DebounceMillis int           `toml:"debounce_ms"`
	Mappings       []MIDIMapping `toml:"mappings"`
}

// History contains performance history store configuration.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Reaper    Reaper    `toml:"reaper"`
	Transport Transport `toml:"transport"`
	Clock     Clock     `toml:"clock"`
	MIDI      MIDI      `toml:"midi"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stagepilot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stagepilot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-request timeout for REAPER calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Reaper.RequestTimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed delay between request retry attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Reaper.RetryDelayMillis) * time.Millisecond
}

// PollInterval returns the transport poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Reaper.PollIntervalMillis) * time.Millisecond
}

// ReconnectDelay returns the pause between reconnect attempts.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Reaper.ReconnectDelaySeconds) * time.Second
}

// SettleDelay returns the pause inserted between pause/seek/resume steps.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Transport.SettleDelayMillis) * time.Millisecond
}

// SeekEpsilon returns the offset added past a region start when seeking.
func (c *Config) SeekEpsilon() time.Duration {
	return time.Duration(c.Transport.SeekEpsilonMillis) * time.Millisecond
}

// ClockTick returns the local extrapolation tick interval.
func (c *Config) ClockTick() time.Duration {
	return time.Duration(c.Clock.TickIntervalMillis) * time.Millisecond
}

// SeekJumpThreshold returns the authoritative-position jump treated as a seek.
func (c *Config) SeekJumpThreshold() time.Duration {
	return time.Duration(c.Clock.SeekJumpThresholdMillis) * time.Millisecond
}

// MIDIDebounce returns the per-note dispatch cooldown.
func (c *Config) MIDIDebounce() time.Duration {
	return time.Duration(c.MIDI.DebounceMillis) * time.Millisecond
}

// HistoryDBPath returns the SQLite path for the performance history store.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
