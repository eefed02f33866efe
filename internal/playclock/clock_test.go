package playclock

import (
	"sync"
	"testing"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

type sinkRecorder struct {
	mu        sync.Mutex
	positions []float64
}

func (s *sinkRecorder) AdvancePosition(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, position)
}

func (s *sinkRecorder) last() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.positions) == 0 {
		return 0, false
	}
	return s.positions[len(s.positions)-1], true
}

type clockFixture struct {
	clock *Clock
	sink  *sinkRecorder
	now   time.Time
	mu    sync.Mutex
}

func newFixture(t *testing.T, regions []model.Region, markers []model.Marker) *clockFixture {
	t.Helper()
	cfg := config.Default()
	catalog := model.NewCatalog()
	catalog.ReplaceRegions(regions)
	catalog.ReplaceMarkers(markers)
	f := &clockFixture{sink: &sinkRecorder{}, now: time.Unix(1000, 0)}
	f.clock = NewClock(&cfg, logging.NewNop(), catalog, f.sink)
	f.clock.now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	return f
}

func (f *clockFixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func playingAt(position float64, regionID string) model.PlaybackState {
	return model.PlaybackState{IsPlaying: true, Position: position, CurrentRegionID: regionID}
}

func TestTimerEngagesOnlyPastLengthMarker(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{{ID: "m", Name: "!length:10", Position: 35}})

	f.clock.PlaybackChanged(playingAt(34, "r"))
	f.advance(time.Second)
	f.clock.Tick()
	if _, pushed := f.sink.last(); pushed {
		t.Fatal("timer must not run before the length marker")
	}

	f.clock.PlaybackChanged(playingAt(36, "r"))
	f.advance(time.Second)
	f.clock.Tick()
	got, pushed := f.sink.last()
	if !pushed || got != 37 {
		t.Fatalf("expected extrapolated position 37, got %v (pushed=%v)", got, pushed)
	}
}

func TestHardStopClampsAndFreezes(t *testing.T) {
	t.Parallel()

	// Region [30,50] with !length:10 and !1008: effective length 10 puts
	// the hard-stop boundary at 40.
	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{
			{ID: "m1", Name: "!length:10", Position: 35},
			{ID: "m2", Name: "!1008", Position: 40},
		})

	f.clock.PlaybackChanged(playingAt(36, "r"))
	f.advance(3 * time.Second)
	f.clock.Tick()
	if got, _ := f.sink.last(); got != 39 {
		t.Fatalf("expected 39 before the boundary, got %v", got)
	}

	f.advance(5 * time.Second)
	f.clock.Tick()
	if got, _ := f.sink.last(); got != 40 {
		t.Fatalf("expected clamp at 40, got %v", got)
	}
	if !f.clock.AtHardStop() {
		t.Fatal("expected hard-stop flag at the boundary")
	}

	f.advance(10 * time.Second)
	f.clock.Tick()
	if got, _ := f.sink.last(); got != 40 {
		t.Fatalf("display must stay frozen at 40, got %v", got)
	}
	if f.clock.Position() != 40 {
		t.Fatalf("expected frozen position 40, got %v", f.clock.Position())
	}
}

func TestSeekJumpLeavesExtrapolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{
			{ID: "m1", Name: "!length:10", Position: 35},
			{ID: "m2", Name: "!1008", Position: 40},
		})

	f.clock.PlaybackChanged(playingAt(36, "r"))
	f.advance(10 * time.Second)
	f.clock.Tick()
	if !f.clock.AtHardStop() {
		t.Fatal("expected hard stop before the seek")
	}

	// An authoritative jump well past the threshold is a seek.
	f.clock.PlaybackChanged(playingAt(33, "r"))
	if f.clock.AtHardStop() {
		t.Fatal("seek must clear the hard-stop flag")
	}
	if f.clock.Position() != 33 {
		t.Fatalf("expected authoritative position 33, got %v", f.clock.Position())
	}
}

func TestResumeClearsHardStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{
			{ID: "m1", Name: "!length:10", Position: 35},
			{ID: "m2", Name: "!1008", Position: 40},
		})

	f.clock.PlaybackChanged(playingAt(36, "r"))
	f.advance(10 * time.Second)
	f.clock.Tick()
	if !f.clock.AtHardStop() {
		t.Fatal("expected hard stop")
	}

	paused := model.PlaybackState{IsPlaying: false, Position: 40, CurrentRegionID: "r"}
	f.clock.PlaybackChanged(paused)
	if !f.clock.AtHardStop() {
		t.Fatal("pause at the boundary must keep the flag")
	}

	f.clock.PlaybackChanged(playingAt(40.1, "r"))
	if f.clock.AtHardStop() {
		t.Fatal("resuming must clear the flag")
	}
}

func TestNaturalEndHardStopWithoutLengthTag(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{{ID: "m", Name: "!1008", Position: 49}})

	// While playing, nothing happens near the end.
	f.clock.PlaybackChanged(playingAt(49.8, "r"))
	if f.clock.AtHardStop() {
		t.Fatal("natural-end detection applies only while not playing")
	}

	stopped := model.PlaybackState{IsPlaying: false, Position: 49.8, CurrentRegionID: "r"}
	f.clock.PlaybackChanged(stopped)
	if !f.clock.AtHardStop() {
		t.Fatal("expected hard stop within 0.5s of the natural end")
	}
}

func TestOwnPushesAreIgnoredAsEchoes(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]model.Region{{ID: "r", Name: "Song", Start: 30, End: 50}},
		[]model.Marker{{ID: "m", Name: "!length:10", Position: 35}})

	f.clock.PlaybackChanged(playingAt(36, "r"))
	f.advance(time.Second)
	f.clock.Tick()
	pushed, _ := f.sink.last()

	// The push comes back around as a playback event and must not
	// restart or disturb the running timer.
	f.clock.PlaybackChanged(playingAt(pushed, "r"))
	f.advance(time.Second)
	f.clock.Tick()
	got, _ := f.sink.last()
	if got != 38 {
		t.Fatalf("echo disturbed the timer: expected 38, got %v", got)
	}
}
