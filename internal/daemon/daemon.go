package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"stagepilot/internal/api"
	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/faults"
	"stagepilot/internal/history"
	"stagepilot/internal/logging"
	"stagepilot/internal/midiact"
	"stagepilot/internal/model"
	"stagepilot/internal/nav"
	"stagepilot/internal/playclock"
	"stagepilot/internal/reaper"
	"stagepilot/internal/setlist"
)

// Daemon owns every background component and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	bus       *events.Bus
	catalog   *model.Catalog
	connector *reaper.Connector
	setlists  *setlist.Service
	engine    *nav.Engine
	clock     *playclock.Clock

	historyStore *history.Store
	recorder     *history.Recorder

	mapper  *midiact.Mapper
	watcher *midiact.Watcher
	hotplug *midiact.HotplugMonitor

	hub *hub
	api *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	doer reaper.HTTPDoer
}

// WithHTTPDoer substitutes the HTTP transport used to reach REAPER.
func WithHTTPDoer(doer reaper.HTTPDoer) Option {
	return func(o *options) { o.doer = doer }
}

// New wires the full component graph. Nothing starts running until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	settings := options{doer: &http.Client{Timeout: cfg.RequestTimeout()}}
	for _, opt := range opts {
		opt(&settings)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	bus := events.New()
	catalog := model.NewCatalog()

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		catalog:  catalog,
		lockPath: filepath.Join(cfg.Paths.LogDir, "stagepilotd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.connector = reaper.NewConnector(cfg, logger, settings.doer, bus, catalog)
	d.setlists = setlist.NewService(logger, d.connector, bus, catalog)
	d.engine = nav.NewEngine(cfg, logger, d.connector, d.setlists, catalog, bus)
	d.clock = playclock.NewClock(cfg, logger, catalog, d.connector)

	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		d.historyStore = store
		d.recorder = history.NewRecorder(logger, store, catalog)
	}

	if cfg.MIDI.Enabled {
		d.mapper = midiact.NewMapper(cfg, logger, &transportActions{daemon: d}, bus)
		watcher, err := midiact.NewWatcher(cfg, logger, d.mapper.HandleNote)
		if err != nil {
			logger.Warn("midi unavailable, continuing without it",
				logging.Error(err),
				logging.String(logging.FieldImpact, "midi mappings will not fire"))
		} else {
			d.watcher = watcher
			d.hotplug = midiact.NewHotplugMonitor(logger, watcher)
		}
	}

	d.hub = newHub(logger, catalog, d.clock)

	bus.Subscribe(d.clock)
	bus.Subscribe(&projectSync{daemon: d})
	if d.recorder != nil {
		bus.Subscribe(d.recorder)
	}
	bus.Subscribe(d.hub)

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the instance lock and launches every component.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stagepilot daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	go d.hub.run(d.ctx)
	d.connector.Start(d.ctx)
	go d.clock.Run(d.ctx)

	if d.watcher != nil {
		go d.watcher.Run(d.ctx)
		if d.hotplug != nil {
			if err := d.hotplug.Start(d.ctx); err != nil {
				d.logger.Warn("hotplug monitor unavailable",
					logging.Error(err),
					logging.String(logging.FieldImpact, "midi devices detected only by periodic rescan"))
			}
		}
	}

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.stopComponents()
			_ = d.lock.Unlock()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("stagepilot daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts everything down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopComponents()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("stagepilot daemon stopped")
}

func (d *Daemon) stopComponents() {
	if d.api != nil {
		d.api.stop()
	}
	if d.hotplug != nil {
		d.hotplug.Stop()
	}
	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.connector.Stop()
}

// Close stops the daemon and releases persistent resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.historyStore != nil {
		return d.historyStore.Close()
	}
	return nil
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API listener address, empty until Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status collects the live snapshot served by GET /api/status.
func (d *Daemon) Status() api.StatusResponse {
	status := api.StatusResponse{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Connection:   d.connector.Status(),
		Playback:     d.connector.Playback(),
		ProjectID:    d.connector.ProjectIdentity(),
		AtHardStop:   d.clock.AtHardStop(),
		LockFilePath: d.lockPath,
	}
	if d.watcher != nil {
		status.MIDIDevice, status.MIDIConnected = d.watcher.Connected()
	}
	return status
}

// runCtx returns a context for bus-driven work, falling back to
// Background before Start or after Stop.
func (d *Daemon) runCtx() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// projectSync reloads setlists whenever the project identity appears or
// changes.
type projectSync struct {
	daemon *Daemon
}

func (p *projectSync) ProjectID(id string) {
	p.reload(id)
}

func (p *projectSync) ProjectChanged(_, current string) {
	p.daemon.setlists.Reset()
	// The previous project's selection has no meaning in the new one.
	p.daemon.connector.SelectSetlist("")
	p.reload(current)
}

func (p *projectSync) reload(id string) {
	ctx, cancel := context.WithTimeout(p.daemon.runCtx(), 10*time.Second)
	defer cancel()
	if err := p.daemon.setlists.Load(ctx, id); err != nil {
		p.daemon.logger.Warn("setlist reload failed",
			logging.Error(err),
			logging.String(logging.FieldProjectID, id))
	}
}

// transportActions adapts the connector, navigation engine, and catalog
// to the action surface MIDI mappings dispatch against.
type transportActions struct {
	daemon *Daemon
}

func (a *transportActions) TogglePlay(ctx context.Context) error {
	return a.daemon.connector.TogglePlay(ctx)
}

func (a *transportActions) NextRegion(ctx context.Context) error {
	return a.daemon.engine.NextRegion(ctx)
}

func (a *transportActions) PreviousRegion(ctx context.Context) error {
	return a.daemon.engine.PreviousRegion(ctx)
}

func (a *transportActions) SeekToCurrentRegionStart(ctx context.Context) error {
	return a.daemon.engine.SeekToCurrentRegionStart(ctx)
}

func (a *transportActions) SeekToRegionByName(ctx context.Context, name string) error {
	region, ok := a.daemon.catalog.RegionByName(name)
	if !ok {
		return faults.Wrap(faults.ErrNotFound, "daemon", "seek region by name", fmt.Sprintf("no region named %q", name), nil)
	}
	return a.daemon.engine.SeekToRegionAndPlay(ctx, region.ID, nil, nil)
}
