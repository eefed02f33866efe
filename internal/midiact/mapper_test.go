package midiact

import (
	"context"
	"sync"
	"testing"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/logging"
)

type actionRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (a *actionRecorder) record(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, name)
}

func (a *actionRecorder) TogglePlay(context.Context) error     { a.record("toggle"); return nil }
func (a *actionRecorder) NextRegion(context.Context) error     { a.record("next"); return nil }
func (a *actionRecorder) PreviousRegion(context.Context) error { a.record("previous"); return nil }
func (a *actionRecorder) SeekToCurrentRegionStart(context.Context) error {
	a.record("restart")
	return nil
}
func (a *actionRecorder) SeekToRegionByName(_ context.Context, name string) error {
	a.record("seek " + name)
	return nil
}

type mapperFixture struct {
	mapper  *Mapper
	actions *actionRecorder
	now     time.Time
	mu      sync.Mutex
}

func newMapperFixture(t *testing.T, mappings []config.MIDIMapping) *mapperFixture {
	t.Helper()
	cfg := config.Default()
	cfg.MIDI.Mappings = mappings
	f := &mapperFixture{actions: &actionRecorder{}, now: time.Unix(2000, 0)}
	f.mapper = NewMapper(&cfg, logging.NewNop(), f.actions, events.New())
	f.mapper.now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	// Dispatch synchronously so tests observe calls deterministically.
	f.mapper.launch = func(mapping config.MIDIMapping) {
		_ = f.mapper.dispatch(context.Background(), mapping)
	}
	return f
}

func (f *mapperFixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *mapperFixture) callCount() int {
	f.actions.mu.Lock()
	defer f.actions.mu.Unlock()
	return len(f.actions.calls)
}

func TestEffectiveMappingsMergeAndOrder(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.MIDI.Mappings = []config.MIDIMapping{
		{Note: 60, Action: ActionSeekRegion, Region: "Encore"},
		{Note: 38, Action: ActionTogglePlay},
	}
	got := EffectiveMappings(&cfg)

	if len(got) != 5 {
		t.Fatalf("expected 5 mappings, got %d: %v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Note >= got[i].Note {
			t.Fatalf("mappings not sorted by note: %v", got)
		}
	}
	byNote := make(map[int]config.MIDIMapping, len(got))
	for _, mapping := range got {
		byNote[mapping.Note] = mapping
	}
	if byNote[38].Action != ActionTogglePlay {
		t.Fatalf("note 38 override not applied: %+v", byNote[38])
	}
	if byNote[60].Region != "Encore" {
		t.Fatalf("note 60 mapping missing region: %+v", byNote[60])
	}
	if byNote[36].Action != ActionTogglePlay || byNote[41].Action != ActionSeekRegionStart {
		t.Fatalf("defaults not preserved: %v", got)
	}
}

func TestDefaultMappingsDispatchTransportActions(t *testing.T) {
	t.Parallel()

	f := newMapperFixture(t, nil)
	notes := map[int]string{36: "toggle", 38: "next", 40: "previous", 41: "restart"}
	for note, want := range notes {
		f.mapper.HandleNote(true, note, 100)
		f.advance(time.Second)
		f.actions.mu.Lock()
		got := f.actions.calls[len(f.actions.calls)-1]
		f.actions.mu.Unlock()
		if got != want {
			t.Fatalf("note %d dispatched %q, want %q", note, got, want)
		}
	}
}

func TestConfiguredMappingOverridesDefault(t *testing.T) {
	t.Parallel()

	f := newMapperFixture(t, []config.MIDIMapping{
		{Note: 36, Action: ActionSeekRegion, Region: "Encore"},
	})
	f.mapper.HandleNote(true, 36, 100)
	f.actions.mu.Lock()
	defer f.actions.mu.Unlock()
	if len(f.actions.calls) != 1 || f.actions.calls[0] != "seek Encore" {
		t.Fatalf("expected override dispatch, got %v", f.actions.calls)
	}
}

func TestDebounceSuppressesRepeats(t *testing.T) {
	t.Parallel()

	f := newMapperFixture(t, nil)

	f.mapper.HandleNote(true, 36, 100)
	f.advance(50 * time.Millisecond)
	f.mapper.HandleNote(true, 36, 100)
	if f.callCount() != 1 {
		t.Fatalf("expected repeat within debounce window suppressed, got %d calls", f.callCount())
	}

	// A different note is not affected by note 36's cooldown.
	f.mapper.HandleNote(true, 38, 100)
	if f.callCount() != 2 {
		t.Fatalf("per-note cooldown leaked across notes, got %d calls", f.callCount())
	}

	f.advance(250 * time.Millisecond)
	f.mapper.HandleNote(true, 36, 100)
	if f.callCount() != 3 {
		t.Fatalf("expected dispatch after debounce window, got %d calls", f.callCount())
	}
}

func TestNoteOffAndZeroVelocityIgnored(t *testing.T) {
	t.Parallel()

	f := newMapperFixture(t, nil)
	f.mapper.HandleNote(false, 36, 100)
	f.mapper.HandleNote(true, 36, 0)
	if f.callCount() != 0 {
		t.Fatalf("expected no dispatches, got %d", f.callCount())
	}
}

func TestUnmappedNoteIgnored(t *testing.T) {
	t.Parallel()

	f := newMapperFixture(t, nil)
	f.mapper.HandleNote(true, 99, 100)
	if f.callCount() != 0 {
		t.Fatalf("expected no dispatch for unmapped note, got %d", f.callCount())
	}
}
