// Package events fans component state changes out to registered
// subscribers. Each event category has its own publish method and
// subscriber interface; there is no global bus and no implicit
// registration. Payloads are snapshots, never shared mutable state.
package events

import (
	"sync"
	"time"

	"stagepilot/internal/model"
)

// StatusLevel classifies user-visible status messages.
type StatusLevel string

const (
	StatusInfo    StatusLevel = "info"
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
)

// StatusMessage is a user-visible notice emitted by any component.
type StatusMessage struct {
	Level StatusLevel `json:"level"`
	Text  string      `json:"text"`
	Time  time.Time   `json:"time"`
}

// MIDIActivity describes one dispatched (or ignored) MIDI input.
type MIDIActivity struct {
	Note     int       `json:"note"`
	Velocity int       `json:"velocity"`
	Action   string    `json:"action,omitempty"`
	Time     time.Time `json:"time"`
}

// RegionSubscriber receives wholesale region list replacements.
type RegionSubscriber interface {
	RegionsUpdated(regions []model.Region)
}

// MarkerSubscriber receives wholesale marker list replacements.
type MarkerSubscriber interface {
	MarkersUpdated(markers []model.Marker)
}

// PlaybackSubscriber receives authoritative playback snapshots.
type PlaybackSubscriber interface {
	PlaybackChanged(state model.PlaybackState)
}

// ConnectionSubscriber receives connection transitions.
type ConnectionSubscriber interface {
	ConnectionChanged(status model.ConnectionStatus)
}

// ProjectSubscriber receives project identity updates. ProjectChanged fires
// only when the identity differs from the last known one.
type ProjectSubscriber interface {
	ProjectID(id string)
	ProjectChanged(previous, current string)
}

// SetlistSubscriber receives setlist collection and selection changes.
type SetlistSubscriber interface {
	SetlistsUpdated(setlists []model.Setlist)
	SetlistUpdated(setlist model.Setlist)
}

// StatusSubscriber receives user-visible status messages.
type StatusSubscriber interface {
	Status(message StatusMessage)
}

// MIDISubscriber receives MIDI activity notices.
type MIDISubscriber interface {
	MIDIActivity(activity MIDIActivity)
}

// Bus is the concrete fan-out point. The zero value is not usable; call New.
type Bus struct {
	mu          sync.RWMutex
	regions     []RegionSubscriber
	markers     []MarkerSubscriber
	playback    []PlaybackSubscriber
	connection  []ConnectionSubscriber
	project     []ProjectSubscriber
	setlists    []SetlistSubscriber
	status      []StatusSubscriber
	midi        []MIDISubscriber
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers the subscriber for every category interface it
// implements.
func (b *Bus) Subscribe(subscriber any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := subscriber.(RegionSubscriber); ok {
		b.regions = append(b.regions, s)
	}
	if s, ok := subscriber.(MarkerSubscriber); ok {
		b.markers = append(b.markers, s)
	}
	if s, ok := subscriber.(PlaybackSubscriber); ok {
		b.playback = append(b.playback, s)
	}
	if s, ok := subscriber.(ConnectionSubscriber); ok {
		b.connection = append(b.connection, s)
	}
	if s, ok := subscriber.(ProjectSubscriber); ok {
		b.project = append(b.project, s)
	}
	if s, ok := subscriber.(SetlistSubscriber); ok {
		b.setlists = append(b.setlists, s)
	}
	if s, ok := subscriber.(StatusSubscriber); ok {
		b.status = append(b.status, s)
	}
	if s, ok := subscriber.(MIDISubscriber); ok {
		b.midi = append(b.midi, s)
	}
}

// PublishRegions delivers a copy of the region list to every subscriber.
func (b *Bus) PublishRegions(regions []model.Region) {
	b.mu.RLock()
	subs := b.regions
	b.mu.RUnlock()
	for _, s := range subs {
		s.RegionsUpdated(copySlice(regions))
	}
}

// PublishMarkers delivers a copy of the marker list to every subscriber.
func (b *Bus) PublishMarkers(markers []model.Marker) {
	b.mu.RLock()
	subs := b.markers
	b.mu.RUnlock()
	for _, s := range subs {
		s.MarkersUpdated(copySlice(markers))
	}
}

// PublishPlayback delivers the playback snapshot.
func (b *Bus) PublishPlayback(state model.PlaybackState) {
	b.mu.RLock()
	subs := b.playback
	b.mu.RUnlock()
	for _, s := range subs {
		s.PlaybackChanged(state)
	}
}

// PublishConnection delivers a connection transition.
func (b *Bus) PublishConnection(status model.ConnectionStatus) {
	b.mu.RLock()
	subs := b.connection
	b.mu.RUnlock()
	for _, s := range subs {
		s.ConnectionChanged(status)
	}
}

// PublishProjectID announces the current project identity.
func (b *Bus) PublishProjectID(id string) {
	b.mu.RLock()
	subs := b.project
	b.mu.RUnlock()
	for _, s := range subs {
		s.ProjectID(id)
	}
}

// PublishProjectChanged announces a project identity switch.
func (b *Bus) PublishProjectChanged(previous, current string) {
	b.mu.RLock()
	subs := b.project
	b.mu.RUnlock()
	for _, s := range subs {
		s.ProjectChanged(previous, current)
	}
}

// PublishSetlists delivers the full setlist collection.
func (b *Bus) PublishSetlists(setlists []model.Setlist) {
	b.mu.RLock()
	subs := b.setlists
	b.mu.RUnlock()
	for _, s := range subs {
		out := make([]model.Setlist, len(setlists))
		for i := range setlists {
			out[i] = setlists[i].Clone()
		}
		s.SetlistsUpdated(out)
	}
}

// PublishSetlistUpdated delivers one changed setlist.
func (b *Bus) PublishSetlistUpdated(setlist model.Setlist) {
	b.mu.RLock()
	subs := b.setlists
	b.mu.RUnlock()
	for _, s := range subs {
		s.SetlistUpdated(setlist.Clone())
	}
}

// PublishStatus delivers a user-visible status message. The timestamp is
// filled in when the caller leaves it zero.
func (b *Bus) PublishStatus(level StatusLevel, text string) {
	message := StatusMessage{Level: level, Text: text, Time: time.Now()}
	b.mu.RLock()
	subs := b.status
	b.mu.RUnlock()
	for _, s := range subs {
		s.Status(message)
	}
}

// PublishMIDIActivity delivers a MIDI input notice.
func (b *Bus) PublishMIDIActivity(activity MIDIActivity) {
	if activity.Time.IsZero() {
		activity.Time = time.Now()
	}
	b.mu.RLock()
	subs := b.midi
	b.mu.RUnlock()
	for _, s := range subs {
		s.MIDIActivity(activity)
	}
}

func copySlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
