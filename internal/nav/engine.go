// Package nav plans and executes region transitions. Every transition,
// whether it comes from the API, a MIDI action, or auto-advance, funnels
// through SeekToRegionAndPlay so the pause/seek/resume choreography and
// count-in math live in exactly one place.
package nav

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/faults"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

const component = "nav"

// Transport is the slice of the connector the engine drives.
type Transport interface {
	Playback() model.PlaybackState
	Pause(ctx context.Context) error
	TogglePlay(ctx context.Context) error
	Play(ctx context.Context) error
	SeekToPosition(ctx context.Context, seconds float64) error
	NextMarkerFallback(ctx context.Context) error
	PreviousMarkerFallback(ctx context.Context) error
	RefreshRegionsAndMarkers(ctx context.Context) error
}

// Setlists resolves the selected setlist during traversal.
type Setlists interface {
	Get(id string) (model.Setlist, error)
}

// Engine executes region navigation. Transitions are serialized by a
// per-engine mutex so one transition's pause/seek/resume steps never
// interleave with another's.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	transport Transport
	setlists  Setlists
	catalog   *model.Catalog
	bus       *events.Bus

	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	bpmOverride float64
}

// NewEngine builds a navigation engine.
func NewEngine(cfg *config.Config, logger *slog.Logger, transport Transport, setlists Setlists, catalog *model.Catalog, bus *events.Bus) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, component),
		transport: transport,
		setlists:  setlists,
		catalog:   catalog,
		bus:       bus,
		sleep:     sleepContext,
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

// RegionBPM returns the tempo in effect for count-in math: the region's
// bpm override from the most recent transition when one was found, else
// zero.
func (e *Engine) RegionBPM() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bpmOverride
}

// SeekToRegionAndPlay moves the transport to the region's start. Nil
// autoplay and countIn fall back to the current global settings. Seeking
// while playing produces an inconsistent transport in REAPER, so a live
// transport is paused and given a settle delay before the seek.
func (e *Engine) SeekToRegionAndPlay(ctx context.Context, regionID string, autoplay, countIn *bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	region, ok := e.catalog.RegionByID(regionID)
	if !ok {
		return e.reject(ctx, "seek to region", "no region "+regionID)
	}
	return e.transitionLocked(ctx, region, autoplay, countIn)
}

func (e *Engine) transitionLocked(ctx context.Context, region model.Region, autoplay, countIn *bool) error {
	playback := e.transport.Playback()

	wantAutoplay := playback.AutoplayEnabled
	if autoplay != nil {
		wantAutoplay = *autoplay
	}
	wantCountIn := playback.CountInEnabled
	if countIn != nil {
		wantCountIn = *countIn
	}

	bpm := playback.BPM
	if override, ok := model.BPMOverride(region, e.catalog.Markers()); ok {
		bpm = override
	}
	e.bpmOverride = bpm

	wasPlaying := playback.IsPlaying
	if wasPlaying {
		if err := e.transport.Pause(ctx); err != nil {
			return e.rejectErr(ctx, "seek to region", err)
		}
		if err := e.sleep(ctx, e.cfg.SettleDelay()); err != nil {
			return err
		}
	}

	target := e.seekTarget(region, playback.TimeSignature, bpm, wantCountIn)
	if err := e.transport.SeekToPosition(ctx, target); err != nil {
		return e.rejectErr(ctx, "seek to region", err)
	}

	explicit := autoplay != nil && *autoplay
	if (wasPlaying || explicit) && wantAutoplay {
		if err := e.sleep(ctx, e.cfg.SettleDelay()); err != nil {
			return err
		}
		if wantCountIn {
			if err := e.transport.Play(ctx); err != nil {
				return e.rejectErr(ctx, "resume after seek", err)
			}
		} else if err := e.transport.TogglePlay(ctx); err != nil {
			return e.rejectErr(ctx, "resume after seek", err)
		}
	}

	e.logger.Info("region transition",
		logging.String(logging.FieldRegionID, region.ID),
		logging.String("region", region.Name),
		logging.Float64("target", target),
		logging.Bool("count_in", wantCountIn))
	return nil
}

// seekTarget computes where to land. Without count-in the target sits an
// epsilon past the boundary so the position resolves inside the region
// rather than exactly on it. With count-in the target backs up the
// configured number of bars, clamped at zero.
func (e *Engine) seekTarget(region model.Region, signature model.TimeSignature, bpm float64, countIn bool) float64 {
	if !countIn {
		return region.Start + e.cfg.SeekEpsilon().Seconds()
	}
	preRoll := float64(e.cfg.Transport.CountInBars) * signature.BarDuration(bpm).Seconds()
	target := region.Start - preRoll
	if target < 0 {
		target = 0
	}
	return target
}

// NextRegion advances to the following region: setlist order when a
// setlist is selected, chronological order otherwise. No wraparound at
// either boundary.
func (e *Engine) NextRegion(ctx context.Context) error {
	return e.step(ctx, 1)
}

// PreviousRegion steps back to the preceding region.
func (e *Engine) PreviousRegion(ctx context.Context) error {
	return e.step(ctx, -1)
}

func (e *Engine) step(ctx context.Context, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	playback := e.transport.Playback()
	if playback.SelectedSetlistID != "" {
		return e.stepSetlistLocked(ctx, playback, delta)
	}
	return e.stepChronologicalLocked(ctx, playback, delta)
}

func (e *Engine) stepSetlistLocked(ctx context.Context, playback model.PlaybackState, delta int) error {
	sl, err := e.setlists.Get(playback.SelectedSetlistID)
	if err != nil {
		e.logger.Warn("selected setlist unavailable, using transport fallback",
			logging.String(logging.FieldSetlistID, playback.SelectedSetlistID),
			logging.Error(err))
		return e.fallback(ctx, delta)
	}
	current, ok := sl.ItemByRegion(playback.CurrentRegionID)
	if !ok {
		e.logger.Warn("current region not in setlist, using transport fallback",
			logging.String(logging.FieldRegionID, playback.CurrentRegionID))
		return e.fallback(ctx, delta)
	}
	next, ok := sl.ItemAt(current.Position + delta)
	if !ok {
		return e.reject(ctx, "setlist step", "no adjacent setlist item")
	}
	region, ok := e.catalog.RegionByID(next.RegionID)
	if !ok {
		return e.reject(ctx, "setlist step", "setlist references missing region "+next.RegionID)
	}
	return e.transitionLocked(ctx, region, nil, nil)
}

func (e *Engine) stepChronologicalLocked(ctx context.Context, playback model.PlaybackState, delta int) error {
	regions := e.catalog.Regions()
	index := -1
	for i, region := range regions {
		if region.ID == playback.CurrentRegionID {
			index = i
			break
		}
	}
	if index < 0 {
		e.logger.Warn("current region unknown, using transport fallback",
			logging.Float64("position", playback.Position))
		return e.fallback(ctx, delta)
	}
	target := index + delta
	if target < 0 || target >= len(regions) {
		return e.reject(ctx, "region step", "no adjacent region")
	}
	return e.transitionLocked(ctx, regions[target], nil, nil)
}

// fallback hands the step to REAPER's own marker navigation when the
// engine has no reliable list position to plan against.
func (e *Engine) fallback(ctx context.Context, delta int) error {
	if delta > 0 {
		return e.transport.NextMarkerFallback(ctx)
	}
	return e.transport.PreviousMarkerFallback(ctx)
}

// PlayWithCountIn backs the transport up by the count-in pre-roll from the
// current region's start and starts playback, regardless of the global
// autoplay and count-in settings.
func (e *Engine) PlayWithCountIn(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	playback := e.transport.Playback()
	region, ok := e.catalog.RegionByID(playback.CurrentRegionID)
	if !ok {
		if region, ok = e.catalog.RegionAt(playback.Position); !ok {
			return e.reject(ctx, "play with count-in", "no current region")
		}
	}
	withCountIn := true
	return e.transitionLocked(ctx, region, &withCountIn, &withCountIn)
}

// SeekToCurrentRegionStart restarts the current region from its start with
// no count-in.
func (e *Engine) SeekToCurrentRegionStart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	playback := e.transport.Playback()
	region, ok := e.catalog.RegionByID(playback.CurrentRegionID)
	if !ok {
		if region, ok = e.catalog.RegionAt(playback.Position); !ok {
			return e.reject(ctx, "seek to region start", "no current region")
		}
	}
	noCountIn := false
	return e.transitionLocked(ctx, region, nil, &noCountIn)
}

// reject refuses the operation, warns the user, and kicks off a region
// refresh so subsequent attempts plan against fresh data. It never
// retries on its own.
func (e *Engine) reject(ctx context.Context, operation, detail string) error {
	err := faults.Wrap(faults.ErrNotFound, component, operation, detail, nil)
	e.logger.Warn("navigation rejected",
		logging.String("operation", operation),
		logging.Error(err))
	e.bus.PublishStatus(events.StatusWarning, detail)
	if refreshErr := e.transport.RefreshRegionsAndMarkers(ctx); refreshErr != nil {
		e.logger.Warn("post-rejection refresh failed", logging.Error(refreshErr))
	}
	return err
}

func (e *Engine) rejectErr(ctx context.Context, operation string, cause error) error {
	e.logger.Warn("navigation command failed",
		logging.String("operation", operation),
		logging.Error(cause))
	e.bus.PublishStatus(events.StatusWarning, "navigation command failed")
	if refreshErr := e.transport.RefreshRegionsAndMarkers(ctx); refreshErr != nil {
		e.logger.Warn("post-rejection refresh failed", logging.Error(refreshErr))
	}
	return cause
}
