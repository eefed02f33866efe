package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/faults"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

type fakeTransport struct {
	mu       sync.Mutex
	playback model.PlaybackState
	ops      []string
	seeks    []float64
	refreshed int
	failSeek bool
}

func (f *fakeTransport) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeTransport) Playback() model.PlaybackState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playback
}

func (f *fakeTransport) Pause(context.Context) error      { f.record("pause"); return nil }
func (f *fakeTransport) TogglePlay(context.Context) error { f.record("toggle"); return nil }
func (f *fakeTransport) Play(context.Context) error       { f.record("play"); return nil }

func (f *fakeTransport) SeekToPosition(_ context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSeek {
		return errors.New("seek refused")
	}
	f.ops = append(f.ops, fmt.Sprintf("seek %.3f", seconds))
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeTransport) NextMarkerFallback(context.Context) error {
	f.record("fallback next")
	return nil
}

func (f *fakeTransport) PreviousMarkerFallback(context.Context) error {
	f.record("fallback previous")
	return nil
}

func (f *fakeTransport) RefreshRegionsAndMarkers(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return nil
}

type fakeSetlists struct {
	setlist model.Setlist
	err     error
}

func (f *fakeSetlists) Get(string) (model.Setlist, error) {
	return f.setlist, f.err
}

func boolPtr(v bool) *bool { return &v }

func regionsFixture() []model.Region {
	return []model.Region{
		{ID: "1", Name: "Opener", Start: 0, End: 30},
		{ID: "2", Name: "Ballad", Start: 30, End: 60},
		{ID: "3", Name: "Closer", Start: 60, End: 120},
	}
}

func newTestEngine(t *testing.T, transport *fakeTransport, setlists Setlists) *Engine {
	t.Helper()
	cfg := config.Default()
	catalog := model.NewCatalog()
	catalog.ReplaceRegions(regionsFixture())
	if setlists == nil {
		setlists = &fakeSetlists{}
	}
	engine := NewEngine(&cfg, logging.NewNop(), transport, setlists, catalog, events.New())
	engine.sleep = func(context.Context, time.Duration) error { return nil }
	return engine
}

func TestSeekWithoutCountInLandsEpsilonPastStart(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		BPM:           120,
		TimeSignature: model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.SeekToRegionAndPlay(context.Background(), "2", nil, boolPtr(false)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if len(transport.seeks) != 1 {
		t.Fatalf("expected one seek, got %v", transport.ops)
	}
	want := 30.0 + defaultSeekEpsilon().Seconds()
	if transport.seeks[0] != want {
		t.Fatalf("expected target %v, got %v", want, transport.seeks[0])
	}
}

func TestCountInSeekBacksUpTwoBars(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		BPM:           120,
		TimeSignature: model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, nil)

	// 2 bars of 4/4 at 120 BPM is 4 seconds, so a region at 60s lands
	// the pre-roll at 56s.
	if err := engine.SeekToRegionAndPlay(context.Background(), "3", nil, boolPtr(true)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if transport.seeks[0] != 56.0 {
		t.Fatalf("expected count-in target 56.0, got %v", transport.seeks[0])
	}

	// A region near zero clamps instead of going negative.
	if err := engine.SeekToRegionAndPlay(context.Background(), "1", nil, boolPtr(true)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if transport.seeks[1] != 0 {
		t.Fatalf("expected clamp to 0, got %v", transport.seeks[1])
	}
}

func TestPlayingTransportPausesBeforeSeekAndResumes(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		IsPlaying:       true,
		AutoplayEnabled: true,
		BPM:             120,
		TimeSignature:   model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.SeekToRegionAndPlay(context.Background(), "2", nil, boolPtr(false)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	want := []string{"pause", fmt.Sprintf("seek %.3f", 30.0+defaultSeekEpsilon().Seconds()), "toggle"}
	if len(transport.ops) != len(want) {
		t.Fatalf("expected ops %v, got %v", want, transport.ops)
	}
	for i := range want {
		if transport.ops[i] != want[i] {
			t.Fatalf("expected ops %v, got %v", want, transport.ops)
		}
	}
}

func TestExplicitAutoplayStartsPausedTransport(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		AutoplayEnabled: true,
		BPM:             120,
		TimeSignature:   model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.SeekToRegionAndPlay(context.Background(), "2", boolPtr(true), boolPtr(true)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	last := transport.ops[len(transport.ops)-1]
	if last != "play" {
		t.Fatalf("expected count-in resume via play, ops %v", transport.ops)
	}

	// Without an explicit request a paused transport stays paused.
	quiet := &fakeTransport{playback: model.PlaybackState{AutoplayEnabled: true, BPM: 120,
		TimeSignature: model.TimeSignature{Numerator: 4, Denominator: 4}}}
	engine2 := newTestEngine(t, quiet, nil)
	if err := engine2.SeekToRegionAndPlay(context.Background(), "2", nil, boolPtr(false)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	for _, op := range quiet.ops {
		if op == "toggle" || op == "play" {
			t.Fatalf("paused transport must not resume, ops %v", quiet.ops)
		}
	}
}

func TestBPMOverrideDrivesCountInMath(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		BPM:           120,
		TimeSignature: model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	cfg := config.Default()
	catalog := model.NewCatalog()
	catalog.ReplaceRegions(regionsFixture())
	catalog.ReplaceMarkers([]model.Marker{{ID: "m1", Name: "!bpm:60", Position: 65}})
	engine := NewEngine(&cfg, logging.NewNop(), transport, &fakeSetlists{}, catalog, events.New())
	engine.sleep = func(context.Context, time.Duration) error { return nil }

	// 2 bars of 4/4 at the overridden 60 BPM is 8 seconds.
	if err := engine.SeekToRegionAndPlay(context.Background(), "3", nil, boolPtr(true)); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if transport.seeks[0] != 52.0 {
		t.Fatalf("expected override-based target 52.0, got %v", transport.seeks[0])
	}
	if engine.RegionBPM() != 60 {
		t.Fatalf("expected region bpm 60, got %v", engine.RegionBPM())
	}
}

func TestSetlistOrderWinsOverChronology(t *testing.T) {
	t.Parallel()

	// Setlist plays the regions backwards relative to the timeline.
	sl := model.Setlist{
		ID: "sl", Name: "Backwards",
		Items: []model.SetlistItem{
			{ID: "a", RegionID: "3", Position: 0},
			{ID: "b", RegionID: "2", Position: 1},
			{ID: "c", RegionID: "1", Position: 2},
		},
	}
	transport := &fakeTransport{playback: model.PlaybackState{
		CurrentRegionID:   "2",
		SelectedSetlistID: "sl",
		BPM:               120,
		TimeSignature:     model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, &fakeSetlists{setlist: sl})

	if err := engine.NextRegion(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	// Setlist-next from region 2 is region 1, which starts at 0.
	if transport.seeks[0] != defaultSeekEpsilon().Seconds() {
		t.Fatalf("expected seek into region 1, got %v", transport.seeks[0])
	}

	chrono := &fakeTransport{playback: model.PlaybackState{
		CurrentRegionID: "2",
		BPM:             120,
		TimeSignature:   model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine2 := newTestEngine(t, chrono, nil)
	if err := engine2.NextRegion(context.Background()); err != nil {
		t.Fatalf("chronological next: %v", err)
	}
	// Chronological next from region 2 is region 3 at 60s.
	if chrono.seeks[0] != 60.0+defaultSeekEpsilon().Seconds() {
		t.Fatalf("expected seek into region 3, got %v", chrono.seeks[0])
	}
}

func TestStepStopsAtBoundaries(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{CurrentRegionID: "3"}}
	engine := newTestEngine(t, transport, nil)

	err := engine.NextRegion(context.Background())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected boundary rejection, got %v", err)
	}
	if len(transport.seeks) != 0 {
		t.Fatalf("boundary step must not seek, got %v", transport.seeks)
	}
	if transport.refreshed == 0 {
		t.Fatal("rejection must trigger a region refresh")
	}
}

func TestLookupFailureFallsBackToTransport(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		CurrentRegionID:   "ghost",
		SelectedSetlistID: "sl",
	}}
	engine := newTestEngine(t, transport, &fakeSetlists{err: errors.New("unavailable")})

	if err := engine.NextRegion(context.Background()); err != nil {
		t.Fatalf("fallback next: %v", err)
	}
	if transport.ops[len(transport.ops)-1] != "fallback next" {
		t.Fatalf("expected transport fallback, ops %v", transport.ops)
	}
}

func TestPlayWithCountInBacksUpAndPlays(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		Position:        61,
		CurrentRegionID: "3",
		BPM:             120,
		TimeSignature:   model.TimeSignature{Numerator: 4, Denominator: 4},
		AutoplayEnabled: false,
	}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.PlayWithCountIn(context.Background()); err != nil {
		t.Fatalf("play with count-in: %v", err)
	}
	if len(transport.seeks) != 1 || transport.seeks[0] != 56.0 {
		t.Fatalf("expected pre-roll seek to 56.0, got %v", transport.ops)
	}
	last := transport.ops[len(transport.ops)-1]
	if last != "play" {
		t.Fatalf("expected playback to start even with autoplay off, ops %v", transport.ops)
	}
}

func TestPlayWithCountInWithoutCurrentRegion(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{Position: 500}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.PlayWithCountIn(context.Background()); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found outside any region, got %v", err)
	}
}

func TestSeekToCurrentRegionStart(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{playback: model.PlaybackState{
		CurrentRegionID: "2",
		Position:        45,
		CountInEnabled:  true,
		BPM:             120,
		TimeSignature:   model.TimeSignature{Numerator: 4, Denominator: 4},
	}}
	engine := newTestEngine(t, transport, nil)

	if err := engine.SeekToCurrentRegionStart(context.Background()); err != nil {
		t.Fatalf("seek to start: %v", err)
	}
	// Count-in never applies to a restart, even when globally enabled.
	want := 30.0 + defaultSeekEpsilon().Seconds()
	if transport.seeks[0] != want {
		t.Fatalf("expected restart at %v, got %v", want, transport.seeks[0])
	}
}

func defaultSeekEpsilon() time.Duration {
	cfg := config.Default()
	return cfg.SeekEpsilon()
}
