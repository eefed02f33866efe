package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReaper()
	c.normalizeTransport()
	c.normalizeClock()
	c.normalizeMIDI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeReaper() {
	c.Reaper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Reaper.BaseURL), "/")
	if c.Reaper.BaseURL == "" {
		c.Reaper.BaseURL = defaultReaperBaseURL
	}
	if !strings.Contains(c.Reaper.BaseURL, "://") {
		c.Reaper.BaseURL = "http://" + c.Reaper.BaseURL
	}
	if c.Reaper.RequestTimeoutSeconds <= 0 {
		c.Reaper.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Reaper.RetryAttempts <= 0 {
		c.Reaper.RetryAttempts = defaultRetryAttempts
	}
	if c.Reaper.RetryDelayMillis <= 0 {
		c.Reaper.RetryDelayMillis = defaultRetryDelayMillis
	}
	if c.Reaper.PollIntervalMillis <= 0 {
		c.Reaper.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Reaper.ReconnectDelaySeconds <= 0 {
		c.Reaper.ReconnectDelaySeconds = defaultReconnectDelaySeconds
	}
	if c.Reaper.MaxReconnectAttempts <= 0 {
		c.Reaper.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	c.Reaper.ExtStateSection = strings.TrimSpace(c.Reaper.ExtStateSection)
	if c.Reaper.ExtStateSection == "" {
		c.Reaper.ExtStateSection = defaultExtStateSection
	}
}

func (c *Config) normalizeTransport() {
	if c.Transport.CountInBars <= 0 {
		c.Transport.CountInBars = defaultCountInBars
	}
	if c.Transport.SettleDelayMillis <= 0 {
		c.Transport.SettleDelayMillis = defaultSettleDelayMillis
	}
	if c.Transport.SeekEpsilonMillis <= 0 {
		c.Transport.SeekEpsilonMillis = defaultSeekEpsilonMillis
	}
}

func (c *Config) normalizeClock() {
	if c.Clock.TickIntervalMillis <= 0 {
		c.Clock.TickIntervalMillis = defaultTickIntervalMillis
	}
	if c.Clock.SeekJumpThresholdMillis <= 0 {
		c.Clock.SeekJumpThresholdMillis = defaultSeekJumpThresholdMillis
	}
}

func (c *Config) normalizeMIDI() {
	c.MIDI.PortName = strings.TrimSpace(c.MIDI.PortName)
	if c.MIDI.DebounceMillis <= 0 {
		c.MIDI.DebounceMillis = defaultMIDIDebounceMillis
	}
	for i := range c.MIDI.Mappings {
		c.MIDI.Mappings[i].Action = strings.ToLower(strings.TrimSpace(c.MIDI.Mappings[i].Action))
		c.MIDI.Mappings[i].Region = strings.TrimSpace(c.MIDI.Mappings[i].Region)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
