// Package playclock extrapolates the playback position between transport
// polls. Polling is coarse, roughly one second, so a local timer carries
// the displayed position forward on a short tick and freezes it at a
// region's hard-stop boundary.
package playclock

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

const component = "playclock"

// PositionSink accepts locally extrapolated positions. The connector
// implements it and ignores pushes while paused or disconnected.
type PositionSink interface {
	AdvancePosition(position float64)
}

// Clock tracks the local timer state. It consumes authoritative playback
// snapshots off the bus and pushes extrapolated positions back through the
// sink on its own tick.
type Clock struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *model.Catalog
	sink    PositionSink

	now func() time.Time

	mu            sync.Mutex
	useLocalTimer bool
	atHardStop    bool
	timerStart    time.Time
	timerStartPos float64
	localPosition float64
	lastPushed    float64
	hasPushed     bool
	playback      model.PlaybackState
	seen          bool
}

// NewClock builds a clock.
func NewClock(cfg *config.Config, logger *slog.Logger, catalog *model.Catalog, sink PositionSink) *Clock {
	return &Clock{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, component),
		catalog: catalog,
		sink:    sink,
		now:     time.Now,
	}
}

// Run drives the extrapolation tick until the context ends.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ClockTick())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// AtHardStop reports whether the display position is frozen at a hard-stop
// boundary.
func (c *Clock) AtHardStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atHardStop
}

// Position returns the current display position: the local extrapolation
// while the timer runs, the last authoritative position otherwise.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.useLocalTimer {
		return c.localPosition
	}
	return c.playback.Position
}

// PlaybackChanged ingests an authoritative snapshot. Echoes of the clock's
// own pushed positions are ignored so extrapolation never feeds itself.
func (c *Clock) PlaybackChanged(state model.PlaybackState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPushed && state.Position == c.lastPushed && state.IsPlaying == c.playback.IsPlaying {
		c.playback = state
		return
	}

	previous := c.playback
	hadState := c.seen
	c.playback = state
	c.seen = true

	if c.atHardStop && state.IsPlaying && !previous.IsPlaying {
		c.atHardStop = false
	}

	// A large jump is a seek, and a region change means the old timer
	// anchor is meaningless either way. While extrapolating, the display
	// position is the reference; the last poll is already stale.
	reference := previous.Position
	if c.useLocalTimer {
		reference = c.localPosition
	}
	jump := hadState && math.Abs(state.Position-reference) > c.cfg.SeekJumpThreshold().Seconds()
	regionChanged := hadState && state.CurrentRegionID != previous.CurrentRegionID
	if jump || regionChanged {
		c.stopTimerLocked()
		c.atHardStop = false
	}

	region, ok := c.catalog.RegionAt(state.Position)
	if !ok {
		c.stopTimerLocked()
		c.atHardStop = false
		return
	}
	markers := c.catalog.Markers()

	if marker, _, hasLength := model.LengthMarker(region, markers); hasLength {
		if state.IsPlaying && state.Position >= marker.Position {
			if !c.useLocalTimer {
				c.useLocalTimer = true
				c.timerStart = c.now()
				c.timerStartPos = state.Position
				c.localPosition = state.Position
				c.logger.Debug("local timer engaged",
					logging.String(logging.FieldRegionID, region.ID),
					logging.Float64("position", state.Position))
			}
		} else if !state.IsPlaying {
			c.stopTimerLocked()
		}
		return
	}

	// No length tag: a hard stop is detected directly against the region's
	// natural end, only while not playing.
	if !state.IsPlaying && model.HasHardStop(region, markers) {
		remaining := region.End - state.Position
		progressed := state.Position - region.Start
		if remaining <= 0.5 || progressed >= region.Length()*0.99 {
			c.atHardStop = true
		}
	}
}

// Tick advances the local timer one step. No-op unless extrapolating.
func (c *Clock) Tick() {
	c.mu.Lock()
	if !c.useLocalTimer || !c.playback.IsPlaying {
		c.mu.Unlock()
		return
	}

	position := c.timerStartPos + c.now().Sub(c.timerStart).Seconds()

	region, ok := c.catalog.RegionAt(c.timerStartPos)
	if ok {
		markers := c.catalog.Markers()
		if model.HasHardStop(region, markers) {
			boundary := region.Start + model.EffectiveLength(region, markers)
			if position >= boundary {
				position = boundary
				if !c.atHardStop {
					c.atHardStop = true
					c.logger.Info("hard stop reached",
						logging.String(logging.FieldRegionID, region.ID),
						logging.Float64("position", boundary))
				}
			}
		}
	}

	c.localPosition = position
	c.lastPushed = position
	c.hasPushed = true
	c.mu.Unlock()

	c.sink.AdvancePosition(position)
}

// stopTimerLocked halts extrapolation. The hard-stop flag is left alone;
// only a resume, a seek, or a region change clears it.
func (c *Clock) stopTimerLocked() {
	c.useLocalTimer = false
}
