package midiact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"stagepilot/internal/config"
	"stagepilot/internal/logging"
)

// Virtual and loopback ports that must never be auto-connected.
var excludedPortPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const rescanInterval = time.Second

// Watcher maintains a connection to a MIDI input device, reconnecting
// through hot-plug and hot-unplug. Note events feed the mapper while a
// device is connected.
type Watcher struct {
	logger   *slog.Logger
	portName string
	onNote   func(on bool, note, velocity int)

	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time
}

// NewWatcher initializes the rtmidi driver. Call Close when done. The
// configured port name, when set, is matched as a case-insensitive
// substring; otherwise any single available device is used.
func NewWatcher(cfg *config.Config, logger *slog.Logger, onNote func(on bool, note, velocity int)) (*Watcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Watcher{
		logger:   logging.NewComponentLogger(logger, component),
		portName: strings.TrimSpace(cfg.MIDI.PortName),
		onNote:   onNote,
		drv:      drv,
	}, nil
}

// Close shuts down the active connection and the rtmidi driver.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	w.drv.Close()
}

// Run drives periodic rescans until the context ends. Hot-plug events from
// the udev monitor force an immediate rescan through RequestRescan.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}

// RequestRescan clears the rescan backoff so the next tick scans
// immediately.
func (w *Watcher) RequestRescan() {
	w.mu.Lock()
	w.lastRescanAt = time.Time{}
	w.mu.Unlock()
	w.Tick()
}

// Connected reports whether an input device is currently attached.
func (w *Watcher) Connected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName, w.connected
}

// Tick scans for devices, connects to a matching one, and detects
// disappearances.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < rescanInterval {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		for _, name := range inputs {
			if name == w.selectedName {
				return
			}
		}
		w.logger.Warn("midi device disappeared", logging.String("device", w.selectedName))
		w.closeConn()
		w.lastRescanAt = time.Time{}
		return
	}

	if len(inputs) == 0 {
		return
	}
	candidate, ok := w.pickCandidate(inputs)
	if !ok {
		return
	}
	if err := w.openByName(candidate); err != nil {
		w.logger.Error("midi connect failed",
			logging.String("device", candidate),
			logging.Error(err))
	}
}

func (w *Watcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.logger.Error("midi input listing failed", logging.Error(err))
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pattern := range excludedPortPatterns {
			if containsFold(name, pattern) {
				excluded = true
				break
			}
		}
		if !excluded {
			names = append(names, name)
		}
	}
	return names
}

func (w *Watcher) pickCandidate(inputs []string) (string, bool) {
	if w.portName != "" {
		for _, name := range inputs {
			if containsFold(name, w.portName) {
				return name, true
			}
		}
		return "", false
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			w.onNote(true, int(key), int(vel))
		} else if msg.GetNoteEnd(&ch, &key) {
			w.onNote(false, int(key), 0)
		}
	}, midi.HandleError(func(listenErr error) {
		w.logger.Warn("midi listener error",
			logging.String("device", name),
			logging.Error(listenErr))
		// closeConn must not run on the listener goroutine.
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.logger.Info("midi device connected", logging.String("device", name))
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
