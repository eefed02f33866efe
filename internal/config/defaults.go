package config

const (
	defaultLogDir                  = "~/.local/share/stagepilot/logs"
	defaultDataDir                 = "~/.local/share/stagepilot/data"
	defaultAPIBind                 = "127.0.0.1:7389"
	defaultReaperBaseURL           = "http://127.0.0.1:8080"
	defaultRequestTimeoutSeconds   = 2
	defaultRetryAttempts           = 3
	defaultRetryDelayMillis        = 500
	defaultPollIntervalMillis      = 1000
	defaultReconnectDelaySeconds   = 2
	defaultMaxReconnectAttempts    = 5
	defaultExtStateSection         = "stagepilot"
	defaultCountInBars             = 2
	defaultSettleDelayMillis       = 150
	defaultSeekEpsilonMillis       = 5
	defaultTickIntervalMillis      = 100
	defaultSeekJumpThresholdMillis = 500
	defaultMIDIDebounceMillis      = 200
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Reaper: Reaper{
			BaseURL:               defaultReaperBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			RetryAttempts:         defaultRetryAttempts,
			RetryDelayMillis:      defaultRetryDelayMillis,
			PollIntervalMillis:    defaultPollIntervalMillis,
			ReconnectDelaySeconds: defaultReconnectDelaySeconds,
			MaxReconnectAttempts:  defaultMaxReconnectAttempts,
			ExtStateSection:       defaultExtStateSection,
		},
		Transport: Transport{
			CountInBars:       defaultCountInBars,
			SettleDelayMillis: defaultSettleDelayMillis,
			SeekEpsilonMillis: defaultSeekEpsilonMillis,
			Autoplay:          true,
			CountIn:           false,
		},
		Clock: Clock{
			TickIntervalMillis:      defaultTickIntervalMillis,
			SeekJumpThresholdMillis: defaultSeekJumpThresholdMillis,
		},
		MIDI: MIDI{
			Enabled:        true,
			DebounceMillis: defaultMIDIDebounceMillis,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
