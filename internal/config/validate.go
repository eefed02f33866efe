package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReaper(); err != nil {
		return err
	}
	if err := c.validateMIDI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateReaper() error {
	parsed, err := url.Parse(c.Reaper.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("reaper.base_url %q is not a valid URL", c.Reaper.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("reaper.base_url scheme %q is not supported", parsed.Scheme)
	}
	if c.Reaper.RetryAttempts > 10 {
		return errors.New("reaper.retry_attempts must be 10 or fewer")
	}
	return nil
}

// knownMIDIActions mirrors the action names the midi dispatcher accepts.
// The set lives here because the dispatcher package imports config.
var knownMIDIActions = map[string]bool{
	"toggle_play":       true,
	"next_region":       true,
	"previous_region":   true,
	"seek_region_start": true,
	"seek_region":       true,
}

func (c *Config) validateMIDI() error {
	seen := make(map[int]struct{}, len(c.MIDI.Mappings))
	for _, mapping := range c.MIDI.Mappings {
		if mapping.Note < 0 || mapping.Note > 127 {
			return fmt.Errorf("midi.mappings: note %d is outside 0-127", mapping.Note)
		}
		if !knownMIDIActions[mapping.Action] {
			return fmt.Errorf("midi.mappings: note %d has unknown action %q", mapping.Note, mapping.Action)
		}
		if mapping.Action == "seek_region" && mapping.Region == "" {
			return fmt.Errorf("midi.mappings: note %d maps seek_region without a region name", mapping.Note)
		}
		if _, dup := seen[mapping.Note]; dup {
			return fmt.Errorf("midi.mappings: note %d is mapped twice", mapping.Note)
		}
		seen[mapping.Note] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
