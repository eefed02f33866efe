package reaper

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/faults"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
	"stagepilot/internal/protocol"
)

// projectIDKey is the extended-state key carrying the project identity
// stamp. Projects that have never been seen get stamped on first contact.
const projectIDKey = "project-id"

// State identifies the connector's position in the connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	// StateExhausted is terminal until an explicit reconnect request
	// resets the attempt counter.
	StateExhausted State = "exhausted"
)

// Connector maintains the link to REAPER. It owns the single mutable
// PlaybackState and ConnectionStatus; collaborators receive copies through
// the event bus or the snapshot accessors.
type Connector struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *Client
	codec   *protocol.Codec
	bus     *events.Bus
	catalog *model.Catalog

	// sleep is injectable so tests can run the retry and reconnect
	// cycles without real delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	state     State
	status    model.ConnectionStatus
	playback  model.PlaybackState
	projectID string

	reconnectCh chan struct{}
	degradedCh  chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewConnector builds a connector. Autoplay and count-in start from their
// configured defaults; everything else is learned from REAPER.
func NewConnector(cfg *config.Config, logger *slog.Logger, doer HTTPDoer, bus *events.Bus, catalog *model.Catalog) *Connector {
	return &Connector{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, component),
		client:  NewClient(cfg, doer),
		codec:   protocol.NewCodec(logger),
		bus:     bus,
		catalog: catalog,
		sleep:   sleepContext,
		state:   StateDisconnected,
		status:  model.ConnectionStatus{Status: string(StateDisconnected)},
		playback: model.PlaybackState{
			AutoplayEnabled: cfg.Transport.Autoplay,
			CountInEnabled:  cfg.Transport.CountIn,
		},
		reconnectCh: make(chan struct{}, 1),
		degradedCh:  make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Start launches the connection lifecycle and the poll loop. It returns
// immediately; connection progress is published on the bus.
func (c *Connector) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.run(runCtx)
}

// Stop terminates the poll loop and marks the connector disconnected.
func (c *Connector) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-c.done
	c.transition(StateDisconnected, model.ReasonDisconnected, 0)
}

// RequestReconnect resets the attempt counter and schedules a fresh
// connection cycle. It is the only way out of the exhausted state.
func (c *Connector) RequestReconnect() {
	c.logger.Info("reconnect requested")
	select {
	case c.reconnectCh <- struct{}{}:
	default:
	}
}

func (c *Connector) run(ctx context.Context) {
	defer close(c.done)

	c.establish(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.reconnectCh:
			c.establish(ctx)
		case <-c.degradedCh:
			if c.CurrentState() == StateReconnecting {
				c.reconnectLoop(ctx)
			}
		case <-ticker.C:
			if c.CurrentState() != StateConnected {
				continue
			}
			if err := c.poll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("poll failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the web remote is reachable"))
				if c.CurrentState() == StateReconnecting {
					c.reconnectLoop(ctx)
				}
			}
		}
	}
}

// establish runs the initial connection handshake: a bounded-retry probe
// followed by a full project snapshot. Failure begins the reconnect cycle.
func (c *Connector) establish(ctx context.Context) {
	c.transition(StateConnecting, "", 0)
	if _, err := c.request(ctx, protocol.GetTransport()); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("initial connection failed", logging.Error(err))
		c.transition(StateReconnecting, model.ReasonConnectionFailed, 0)
		c.reconnectLoop(ctx)
		return
	}
	c.markConnected(ctx)
}

// reconnectLoop attempts to restore the connection up to the configured
// maximum. Polling is suspended while it runs. Exhausting every attempt
// parks the connector in the terminal exhausted state.
func (c *Connector) reconnectLoop(ctx context.Context) {
	maxAttempts := c.cfg.Reaper.MaxReconnectAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.sleep(ctx, c.cfg.ReconnectDelay()); err != nil {
			return
		}
		c.transition(StateReconnecting, model.ReasonReconnecting, attempt)
		c.logger.Info("reconnect attempt",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", maxAttempts))
		if _, err := c.client.Command(ctx, protocol.GetTransport()); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("reconnect attempt failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err))
			continue
		}
		c.markConnected(ctx)
		return
	}
	c.logger.Error("reconnect attempts exhausted",
		logging.Int(logging.FieldAttempt, maxAttempts),
		logging.String(logging.FieldErrorHint, "request a reconnect once REAPER is back"))
	c.transition(StateExhausted, model.ReasonMaxReconnectAttempts, maxAttempts)
}

func (c *Connector) markConnected(ctx context.Context) {
	c.transition(StateConnected, "", 0)
	if err := c.refreshProject(ctx); err != nil {
		c.logger.Warn("initial project refresh failed", logging.Error(err))
	}
}

// transition updates the connection state and publishes the new status.
func (c *Connector) transition(state State, reason string, attempts int) {
	c.mu.Lock()
	c.state = state
	c.status.Connected = state == StateConnected
	c.status.Status = string(state)
	c.status.Reason = reason
	c.status.Attempts = attempts
	status := c.status
	c.mu.Unlock()

	c.logger.Info("connection state changed",
		logging.String("state", string(state)),
		logging.String("reason", reason))
	c.bus.PublishConnection(status)
}

// CurrentState returns the connection lifecycle state.
func (c *Connector) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a connection status snapshot.
func (c *Connector) Status() model.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Playback returns a playback state snapshot.
func (c *Connector) Playback() model.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

// ProjectIdentity returns the last known project identity stamp.
func (c *Connector) ProjectIdentity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// request executes commands with the bounded retry budget. Every attempt
// failure sleeps the fixed retry delay before the next try. Exhausting the
// budget surfaces the error to the caller and degrades the connection.
func (c *Connector) request(ctx context.Context, commands ...string) (protocol.Records, error) {
	attempts := c.cfg.Reaper.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		body, err := c.client.Command(ctx, commands...)
		if err == nil {
			c.observeLatency(time.Since(start))
			return c.codec.Decode(body), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			c.logger.Debug("request attempt failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err))
			if serr := c.sleep(ctx, c.cfg.RetryDelay()); serr != nil {
				break
			}
		}
	}
	err := faults.Wrap(faults.ErrExhausted, component, "request", "retry budget exhausted", lastErr)
	if ctx.Err() == nil {
		c.escalate()
	}
	return protocol.Records{}, err
}

// escalate moves a connected connector into the reconnect cycle. Every
// exhausted retry budget degrades the connection status, whether the
// failing request was a poll tick or a user command.
func (c *Connector) escalate() {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return
	}
	c.transition(StateReconnecting, model.ReasonConnectionError, 0)
	select {
	case c.degradedCh <- struct{}{}:
	default:
	}
}

func (c *Connector) observeLatency(latency time.Duration) {
	c.mu.Lock()
	c.status.PingLatency = latency
	c.mu.Unlock()
}

// poll performs one transport poll: transport, tempo, and the project
// identity stamp in a single round trip.
func (c *Connector) poll(ctx context.Context) error {
	records, err := c.request(ctx,
		protocol.GetTransport(),
		protocol.GetTempo(),
		protocol.GetExtState(c.cfg.Reaper.ExtStateSection, projectIDKey))
	if err != nil {
		return err
	}
	c.applyRecords(records)
	if err := c.reconcileProject(ctx, records); err != nil {
		c.logger.Warn("project identity check failed", logging.Error(err))
	}
	return nil
}

// applyRecords merges decoded records into the playback state. Records a
// response did not carry leave the previous values untouched. The merged
// snapshot is published only when something changed.
func (c *Connector) applyRecords(records protocol.Records) {
	c.mu.Lock()
	previous := c.playback
	if records.Transport != nil {
		c.playback.IsPlaying = records.Transport.Playing
		c.playback.Position = records.Transport.Position
		if region, ok := c.catalog.RegionAt(records.Transport.Position); ok {
			c.playback.CurrentRegionID = region.ID
		} else {
			c.playback.CurrentRegionID = ""
		}
	}
	if records.Tempo != nil {
		c.playback.BPM = records.Tempo.BPM
		c.playback.TimeSignature = records.Tempo.TimeSignature
	}
	snapshot := c.playback
	c.mu.Unlock()

	if snapshot != previous {
		c.bus.PublishPlayback(snapshot)
	}
}

// reconcileProject compares the polled identity stamp with the last known
// one. An unstamped project gets a fresh stamp written back; a changed
// identity forces a full refresh so stale regions never drive navigation.
func (c *Connector) reconcileProject(ctx context.Context, records protocol.Records) error {
	identity := ""
	for _, ext := range records.ExtStates {
		if ext.Key == projectIDKey {
			identity = ext.Value
		}
	}
	if identity == "" {
		identity = uuid.NewString()
		if err := c.writeExtState(ctx, projectIDKey, identity); err != nil {
			return err
		}
		c.logger.Info("stamped project identity", logging.String(logging.FieldProjectID, identity))
	}

	c.mu.Lock()
	previous := c.projectID
	changed := previous != identity
	c.projectID = identity
	c.mu.Unlock()

	if !changed {
		return nil
	}
	if previous == "" {
		c.bus.PublishProjectID(identity)
		return c.refreshRegionsAndMarkers(ctx)
	}
	c.logger.Info("project changed",
		logging.String("previous", previous),
		logging.String(logging.FieldProjectID, identity))
	c.bus.PublishProjectChanged(previous, identity)
	return c.refreshRegionsAndMarkers(ctx)
}

// refreshProject loads the full project snapshot: transport, tempo,
// identity, regions, and markers.
func (c *Connector) refreshProject(ctx context.Context) error {
	if err := c.refreshRegionsAndMarkers(ctx); err != nil {
		return err
	}
	return c.poll(ctx)
}

// RefreshRegionsAndMarkers re-reads the region and marker lists on demand.
func (c *Connector) RefreshRegionsAndMarkers(ctx context.Context) error {
	return c.refreshRegionsAndMarkers(ctx)
}

func (c *Connector) refreshRegionsAndMarkers(ctx context.Context) error {
	records, err := c.request(ctx, protocol.GetRegions(), protocol.GetMarkers())
	if err != nil {
		return err
	}
	c.catalog.ReplaceRegions(records.Regions)
	c.catalog.ReplaceMarkers(records.Markers)
	c.bus.PublishRegions(records.Regions)
	c.bus.PublishMarkers(records.Markers)
	c.refreshCurrentRegion()
	return nil
}

// refreshCurrentRegion recomputes the current region after the catalog
// changed underneath the last known position.
func (c *Connector) refreshCurrentRegion() {
	c.mu.Lock()
	previous := c.playback
	if region, ok := c.catalog.RegionAt(c.playback.Position); ok {
		c.playback.CurrentRegionID = region.ID
	} else {
		c.playback.CurrentRegionID = ""
	}
	snapshot := c.playback
	c.mu.Unlock()
	if snapshot != previous {
		c.bus.PublishPlayback(snapshot)
	}
}

// command sends the given commands followed by an authoritative transport
// read in the same round trip, then merges the response.
func (c *Connector) command(ctx context.Context, commands ...string) error {
	joined := append(commands, protocol.GetTransport())
	records, err := c.request(ctx, joined...)
	if err != nil {
		return err
	}
	c.applyRecords(records)
	return nil
}

// TogglePlay flips the transport. The local state flips optimistically so
// the UI reacts immediately; the authoritative read in the same request
// corrects any divergence.
func (c *Connector) TogglePlay(ctx context.Context) error {
	c.mu.Lock()
	c.playback.IsPlaying = !c.playback.IsPlaying
	snapshot := c.playback
	c.mu.Unlock()
	c.bus.PublishPlayback(snapshot)
	return c.command(ctx, protocol.Action(actionPlayPause))
}

// Play starts playback.
func (c *Connector) Play(ctx context.Context) error {
	return c.command(ctx, protocol.Action(actionPlay))
}

// Pause pauses playback without moving the edit cursor.
func (c *Connector) Pause(ctx context.Context) error {
	return c.command(ctx, protocol.Action(actionPause))
}

// StopPlayback stops playback.
func (c *Connector) StopPlayback(ctx context.Context) error {
	return c.command(ctx, protocol.Action(actionStop))
}

// SeekToPosition moves the play position to an absolute time in seconds.
func (c *Connector) SeekToPosition(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return c.command(ctx, protocol.SetPos(seconds))
}

// PauseAndSeek pauses, then seeks, in a single round trip. Used by the
// navigation engine when a settle delay between the steps is not needed.
func (c *Connector) PauseAndSeek(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return c.command(ctx, protocol.Action(actionPause), protocol.SetPos(seconds))
}

// NextMarkerFallback advances using REAPER's own next-marker action. The
// navigation engine falls back to it when it has no region list to plan
// against.
func (c *Connector) NextMarkerFallback(ctx context.Context) error {
	return c.command(ctx, protocol.Action(actionNextMarker))
}

// PreviousMarkerFallback rewinds using REAPER's own previous-marker action.
func (c *Connector) PreviousMarkerFallback(ctx context.Context) error {
	return c.command(ctx, protocol.Action(actionPrevMarker))
}

// SetRecordingArmed toggles record arming when the desired state differs
// from the last known one. REAPER only exposes a toggle, so the local
// state is the record of truth for arming.
func (c *Connector) SetRecordingArmed(ctx context.Context, armed bool) error {
	c.mu.Lock()
	changed := c.playback.RecordingArmed != armed
	if changed {
		c.playback.RecordingArmed = armed
	}
	snapshot := c.playback
	c.mu.Unlock()
	if !changed {
		return nil
	}
	c.bus.PublishPlayback(snapshot)
	return c.command(ctx, protocol.Action(actionRecordToggle))
}

// SetAutoplay flips the local autoplay preference. Purely local; no
// command is issued.
func (c *Connector) SetAutoplay(enabled bool) {
	c.mu.Lock()
	c.playback.AutoplayEnabled = enabled
	snapshot := c.playback
	c.mu.Unlock()
	c.bus.PublishPlayback(snapshot)
}

// SetCountIn flips the local count-in preference.
func (c *Connector) SetCountIn(enabled bool) {
	c.mu.Lock()
	c.playback.CountInEnabled = enabled
	snapshot := c.playback
	c.mu.Unlock()
	c.bus.PublishPlayback(snapshot)
}

// SelectSetlist records the active setlist selection on the playback state.
func (c *Connector) SelectSetlist(id string) {
	c.mu.Lock()
	c.playback.SelectedSetlistID = id
	snapshot := c.playback
	c.mu.Unlock()
	c.bus.PublishPlayback(snapshot)
}

// AdvancePosition applies a locally extrapolated position between polls.
// Ignored unless playback is live so a stale timer can never move a
// paused transport.
func (c *Connector) AdvancePosition(position float64) {
	c.mu.Lock()
	if !c.playback.IsPlaying || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.playback.Position = position
	if region, ok := c.catalog.RegionAt(position); ok {
		c.playback.CurrentRegionID = region.ID
	} else {
		c.playback.CurrentRegionID = ""
	}
	snapshot := c.playback
	c.mu.Unlock()
	c.bus.PublishPlayback(snapshot)
}

// ExtState reads one extended-state value from the project. A missing key
// returns an empty string, not an error.
func (c *Connector) ExtState(ctx context.Context, key string) (string, error) {
	records, err := c.request(ctx, protocol.GetExtState(c.cfg.Reaper.ExtStateSection, key))
	if err != nil {
		return "", faults.Wrap(faults.ErrPersistence, component, "ext state read", key, err)
	}
	for _, ext := range records.ExtStates {
		if ext.Key == key {
			return ext.Value, nil
		}
	}
	return "", nil
}

// SetExtState writes one extended-state value into the project. An empty
// value clears the key.
func (c *Connector) SetExtState(ctx context.Context, key, value string) error {
	return c.writeExtState(ctx, key, value)
}

func (c *Connector) writeExtState(ctx context.Context, key, value string) error {
	if _, err := c.request(ctx, protocol.SetExtState(c.cfg.Reaper.ExtStateSection, key, value)); err != nil {
		return faults.Wrap(faults.ErrPersistence, component, "ext state write", key, err)
	}
	return nil
}

// RunAction executes a raw action id. MIDI mappings configured with custom
// ids go through here.
func (c *Connector) RunAction(ctx context.Context, id int) error {
	if id <= 0 {
		return faults.Wrap(faults.ErrValidation, component, "run action", "action id must be positive: "+strconv.Itoa(id), nil)
	}
	return c.command(ctx, protocol.Action(id))
}
