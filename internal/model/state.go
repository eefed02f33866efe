package model

import "time"

// TimeSignature is the project time signature reported by the TEMPO record.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// BarDuration returns the length of one bar at the given tempo. The tempo
// counts quarter notes, so the denominator scales the beat: a bar of 6/8
// is six eighth notes, half the length of six quarters. Zero or negative
// inputs yield zero so callers can clamp instead of dividing by zero
// mid-performance.
func (ts TimeSignature) BarDuration(bpm float64) time.Duration {
	if bpm <= 0 || ts.Numerator <= 0 || ts.Denominator <= 0 {
		return 0
	}
	beat := float64(time.Minute) / bpm * 4 / float64(ts.Denominator)
	return time.Duration(float64(ts.Numerator) * beat)
}

// PlaybackState is the authoritative transport snapshot. A single mutable
// instance is owned by the connector; everyone else sees copies.
type PlaybackState struct {
	IsPlaying         bool          `json:"isPlaying"`
	Position          float64       `json:"position"`
	CurrentRegionID   string        `json:"currentRegionId,omitempty"`
	SelectedSetlistID string        `json:"selectedSetlistId,omitempty"`
	BPM               float64       `json:"bpm"`
	TimeSignature     TimeSignature `json:"timeSignature"`
	AutoplayEnabled   bool          `json:"autoplayEnabled"`
	CountInEnabled    bool          `json:"countInEnabled"`
	RecordingArmed    bool          `json:"isRecordingArmed"`
}

// ConnectionStatus describes the connector's link to REAPER. Transient,
// recomputed on every state transition.
type ConnectionStatus struct {
	Connected   bool          `json:"connected"`
	Reason      string        `json:"reason,omitempty"`
	Status      string        `json:"status,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	PingLatency time.Duration `json:"pingLatency,omitempty"`
}

// Connection change reason codes surfaced to collaborators.
const (
	ReasonConnectionFailed     = "connection_failed"
	ReasonReconnecting         = "reconnecting"
	ReasonMaxReconnectAttempts = "max_reconnect_attempts"
	ReasonConnectionError      = "connection_error"
	ReasonDisconnected         = "disconnected"
)
