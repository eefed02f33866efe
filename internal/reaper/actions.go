package reaper

// REAPER action ids used by the connector. These are stable ids from the
// main action section.
const (
	actionPlayPause    = 40073
	actionPlay         = 1007
	actionPause        = 1008
	actionStop         = 1016
	actionRecordToggle = 1013
	actionPrevMarker   = 40172
	actionNextMarker   = 40173
)
