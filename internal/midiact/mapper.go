// Package midiact turns MIDI note input into transport and navigation
// actions. Input arrives from a hot-pluggable rtmidi device; dispatch is
// asynchronous and never propagates errors back into the input path.
package midiact

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/events"
	"stagepilot/internal/logging"
)

const component = "midi"

// Action names accepted in note mappings.
const (
	ActionTogglePlay      = "toggle_play"
	ActionNextRegion      = "next_region"
	ActionPreviousRegion  = "previous_region"
	ActionSeekRegionStart = "seek_region_start"
	ActionSeekRegion      = "seek_region"
)

const dispatchTimeout = 10 * time.Second

// Actions is the slice of the navigation engine and connector the mapper
// dispatches into.
type Actions interface {
	TogglePlay(ctx context.Context) error
	NextRegion(ctx context.Context) error
	PreviousRegion(ctx context.Context) error
	SeekToCurrentRegionStart(ctx context.Context) error
	SeekToRegionByName(ctx context.Context, name string) error
}

// Mapper resolves note numbers against the mapping table and debounces
// repeats per note.
type Mapper struct {
	logger   *slog.Logger
	actions  Actions
	bus      *events.Bus
	debounce time.Duration

	now    func() time.Time
	launch func(mapping config.MIDIMapping)

	mu           sync.Mutex
	table        map[int]config.MIDIMapping
	lastDispatch map[int]time.Time
}

// defaultMappings cover the core transport actions on the bottom drum-pad
// notes of most controllers.
func defaultMappings() []config.MIDIMapping {
	return []config.MIDIMapping{
		{Note: 36, Action: ActionTogglePlay},
		{Note: 38, Action: ActionNextRegion},
		{Note: 40, Action: ActionPreviousRegion},
		{Note: 41, Action: ActionSeekRegionStart},
	}
}

// EffectiveMappings resolves the active note table: configured mappings
// replace the built-in default for the same note, unmapped defaults stay
// active. Sorted by note for display surfaces.
func EffectiveMappings(cfg *config.Config) []config.MIDIMapping {
	table := make(map[int]config.MIDIMapping)
	for _, mapping := range defaultMappings() {
		table[mapping.Note] = mapping
	}
	for _, mapping := range cfg.MIDI.Mappings {
		table[mapping.Note] = mapping
	}
	out := make([]config.MIDIMapping, 0, len(table))
	for _, mapping := range table {
		out = append(out, mapping)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Note < out[j].Note })
	return out
}

// NewMapper builds a mapper over the effective note table.
func NewMapper(cfg *config.Config, logger *slog.Logger, actions Actions, bus *events.Bus) *Mapper {
	table := make(map[int]config.MIDIMapping)
	for _, mapping := range EffectiveMappings(cfg) {
		table[mapping.Note] = mapping
	}
	m := &Mapper{
		logger:       logging.NewComponentLogger(logger, component),
		actions:      actions,
		bus:          bus,
		debounce:     cfg.MIDIDebounce(),
		now:          time.Now,
		table:        table,
		lastDispatch: make(map[int]time.Time),
	}
	m.launch = m.launchAsync
	return m
}

// Mappings returns the active note table for display surfaces.
func (m *Mapper) Mappings() []config.MIDIMapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]config.MIDIMapping, 0, len(m.table))
	for _, mapping := range m.table {
		out = append(out, mapping)
	}
	return out
}

// HandleNote processes one note event. Only note-on with positive velocity
// dispatches; repeats of the same note inside the debounce window are
// suppressed.
func (m *Mapper) HandleNote(on bool, note, velocity int) {
	if !on || velocity <= 0 {
		return
	}

	m.mu.Lock()
	mapping, mapped := m.table[note]
	if !mapped {
		m.mu.Unlock()
		m.logger.Debug("unmapped note", logging.Int(logging.FieldNote, note))
		return
	}
	now := m.now()
	if last, seen := m.lastDispatch[note]; seen && now.Sub(last) < m.debounce {
		m.mu.Unlock()
		m.logger.Debug("note suppressed by debounce", logging.Int(logging.FieldNote, note))
		return
	}
	m.lastDispatch[note] = now
	m.mu.Unlock()

	m.bus.PublishMIDIActivity(events.MIDIActivity{
		Note:     note,
		Velocity: velocity,
		Action:   mapping.Action,
		Time:     now,
	})
	m.launch(mapping)
}

func (m *Mapper) launchAsync(mapping config.MIDIMapping) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := m.dispatch(ctx, mapping); err != nil {
			m.logger.Warn("midi action failed",
				logging.Int(logging.FieldNote, mapping.Note),
				logging.String(logging.FieldAction, mapping.Action),
				logging.Error(err))
		}
	}()
}

func (m *Mapper) dispatch(ctx context.Context, mapping config.MIDIMapping) error {
	switch mapping.Action {
	case ActionTogglePlay:
		return m.actions.TogglePlay(ctx)
	case ActionNextRegion:
		return m.actions.NextRegion(ctx)
	case ActionPreviousRegion:
		return m.actions.PreviousRegion(ctx)
	case ActionSeekRegionStart:
		return m.actions.SeekToCurrentRegionStart(ctx)
	case ActionSeekRegion:
		return m.actions.SeekToRegionByName(ctx, mapping.Region)
	default:
		m.logger.Warn("unknown midi action",
			logging.Int(logging.FieldNote, mapping.Note),
			logging.String(logging.FieldAction, mapping.Action))
		return nil
	}
}
