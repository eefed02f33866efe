// Package api defines the JSON surface shared by the daemon's HTTP server
// and the CLI client, plus the client itself.
package api

import (
	"stagepilot/internal/history"
	"stagepilot/internal/model"
)

// StatusResponse describes the daemon and its REAPER link.
type StatusResponse struct {
	Running       bool                   `json:"running"`
	PID           int                    `json:"pid"`
	Connection    model.ConnectionStatus `json:"connection"`
	Playback      model.PlaybackState    `json:"playback"`
	ProjectID     string                 `json:"projectId,omitempty"`
	AtHardStop    bool                   `json:"atHardStop"`
	MIDIDevice    string                 `json:"midiDevice,omitempty"`
	MIDIConnected bool                   `json:"midiConnected"`
	LockFilePath  string                 `json:"lockFilePath,omitempty"`
}

// RegionsResponse carries the visible region list.
type RegionsResponse struct {
	Regions []RegionView `json:"regions"`
}

// RegionView is a region with its derived annotation behavior resolved.
type RegionView struct {
	model.Region
	EffectiveLength float64  `json:"effectiveLength"`
	HardStop        bool     `json:"hardStop"`
	BPMOverride     *float64 `json:"bpmOverride,omitempty"`
}

// MarkersResponse carries the user-facing marker list, command-only
// markers excluded.
type MarkersResponse struct {
	Markers []model.Marker `json:"markers"`
}

// PlaybackResponse carries the playback snapshot and the local clock's
// hard-stop flag.
type PlaybackResponse struct {
	Playback   model.PlaybackState `json:"playback"`
	AtHardStop bool                `json:"atHardStop"`
}

// SetlistsResponse carries the setlist collection.
type SetlistsResponse struct {
	Setlists []model.Setlist `json:"setlists"`
}

// SetlistResponse carries one setlist.
type SetlistResponse struct {
	Setlist model.Setlist `json:"setlist"`
}

// HistoryResponse carries recent performance history entries.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// SeekRequest is an absolute transport seek.
type SeekRequest struct {
	Position float64 `json:"position"`
}

// SeekRegionRequest targets a region transition. Nil booleans fall back to
// the daemon's current global settings.
type SeekRegionRequest struct {
	RegionID string `json:"regionId"`
	Autoplay *bool  `json:"autoplay,omitempty"`
	CountIn  *bool  `json:"countIn,omitempty"`
}

// SettingsRequest updates playback preferences. Nil fields are untouched.
type SettingsRequest struct {
	Autoplay       *bool `json:"autoplay,omitempty"`
	CountIn        *bool `json:"countIn,omitempty"`
	RecordingArmed *bool `json:"recordingArmed,omitempty"`
}

// CreateSetlistRequest names a new setlist.
type CreateSetlistRequest struct {
	Name string `json:"name"`
}

// RenameSetlistRequest renames an existing setlist.
type RenameSetlistRequest struct {
	Name string `json:"name"`
}

// AddItemRequest appends a region to a setlist.
type AddItemRequest struct {
	RegionID string `json:"regionId"`
}

// MoveItemRequest relocates an item within its setlist.
type MoveItemRequest struct {
	Position int `json:"position"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is the websocket envelope: a type tag and the event payload.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Websocket event type tags.
const (
	EventRegions        = "regions"
	EventMarkers        = "markers"
	EventPlayback       = "playbackState"
	EventConnection     = "connectionChange"
	EventProjectID      = "projectId"
	EventProjectChanged = "projectChanged"
	EventSetlists       = "setlists"
	EventSetlistUpdated = "setlistUpdated"
	EventStatus         = "statusMessage"
	EventMIDIActivity   = "midiActivity"
)
