package midiact

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"stagepilot/internal/logging"
)

// HotplugMonitor listens for udev netlink events on the sound subsystem
// and forces an immediate device rescan when a controller is plugged or
// unplugged. The watcher's periodic rescan remains the fallback when the
// netlink socket is unavailable.
type HotplugMonitor struct {
	logger  *slog.Logger
	watcher *Watcher

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugMonitor builds a monitor bound to the watcher.
func NewHotplugMonitor(logger *slog.Logger, watcher *Watcher) *HotplugMonitor {
	return &HotplugMonitor{
		logger:  logging.NewComponentLogger(logger, "midi-hotplug"),
		watcher: watcher,
	}
}

// Start begins listening for udev events. A failed netlink connect is
// non-fatal; hot-plug detection then rides on the periodic rescan alone.
func (m *HotplugMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink connect failed; relying on periodic rescan",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon can access netlink sockets"),
			logging.String(logging.FieldImpact, "device hot-plug detection delayed up to one rescan interval"))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("midi hotplug monitor started")
	return nil
}

// Stop shuts the monitor down.
func (m *HotplugMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("midi hotplug monitor stopped")
}

// Running reports whether the monitor is active.
func (m *HotplugMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *HotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.logger.Debug("sound subsystem event",
				logging.String("action", string(uevent.Action)),
				logging.String("kobj", uevent.KObj))
			m.watcher.RequestRescan()
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "hot-plug detection may be delayed"))
		}
	}
}

// buildMatcher matches add/remove/change events on the sound subsystem,
// which is where ALSA raw MIDI endpoints appear.
func (m *HotplugMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}
