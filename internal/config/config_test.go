package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("reported an absent file as existing")
	}
	if cfg.Reaper.BaseURL != defaultReaperBaseURL {
		t.Errorf("base url = %q, want default", cfg.Reaper.BaseURL)
	}
	if cfg.Reaper.PollIntervalMillis != defaultPollIntervalMillis {
		t.Errorf("poll interval = %d, want default", cfg.Reaper.PollIntervalMillis)
	}
}

func TestLoadNormalizesBaseURL(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[reaper]
base_url = "studio-mac.local:8080/"
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reaper.BaseURL != "http://studio-mac.local:8080" {
		t.Errorf("base url = %q, want scheme added and slash trimmed", cfg.Reaper.BaseURL)
	}
}

func TestLoadNormalizesMIDIActionCase(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[[midi.mappings]]
note = 36
action = "Toggle_Play"
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.MIDI.Mappings[0].Action; got != "toggle_play" {
		t.Errorf("action = %q, want lowercased", got)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(cfg *Config)
		want   string
	}{
		{
			name:   "bad base url scheme",
			mutate: func(cfg *Config) { cfg.Reaper.BaseURL = "ftp://127.0.0.1" },
			want:   "scheme",
		},
		{
			name: "unknown midi action",
			mutate: func(cfg *Config) {
				cfg.MIDI.Mappings = []MIDIMapping{{Note: 36, Action: "warp_drive"}}
			},
			want: "unknown action",
		},
		{
			name: "seek_region without region",
			mutate: func(cfg *Config) {
				cfg.MIDI.Mappings = []MIDIMapping{{Note: 36, Action: "seek_region"}}
			},
			want: "without a region",
		},
		{
			name: "duplicate note",
			mutate: func(cfg *Config) {
				cfg.MIDI.Mappings = []MIDIMapping{
					{Note: 36, Action: "toggle_play"},
					{Note: 36, Action: "next_region"},
				}
			},
			want: "mapped twice",
		},
		{
			name:   "note out of range",
			mutate: func(cfg *Config) { cfg.MIDI.Mappings = []MIDIMapping{{Note: 128, Action: "toggle_play"}} },
			want:   "outside 0-127",
		},
		{
			name:   "bad log format",
			mutate: func(cfg *Config) { cfg.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, sampleConfig)
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
