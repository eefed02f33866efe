package protocol

import (
	"net/url"
	"strconv"
	"strings"
)

// Commands are path-encoded GETs against the web-remote's /_/ endpoint.
// Multiple commands joined with ";" execute in one round trip.

// Action encodes a numeric action-id command such as the transport toggle.
func Action(id int) string {
	return strconv.Itoa(id)
}

// SetPos encodes a seek to an absolute position in seconds.
func SetPos(seconds float64) string {
	return "SET/POS/" + strconv.FormatFloat(seconds, 'f', 3, 64)
}

// GetTransport requests the TRANSPORT record.
func GetTransport() string {
	return "TRANSPORT"
}

// GetTempo requests the TEMPO record.
func GetTempo() string {
	return "TEMPO"
}

// GetRegions requests the region list.
func GetRegions() string {
	return "REGION"
}

// GetMarkers requests the marker list.
func GetMarkers() string {
	return "MARKER"
}

// GetExtState encodes a project extended-state read.
func GetExtState(section, key string) string {
	return "GET/PROJEXTSTATE/" + escape(section) + "/" + escape(key)
}

// SetExtState encodes a project extended-state write. An empty value clears
// the key.
func SetExtState(section, key, value string) string {
	return "SET/PROJEXTSTATE/" + escape(section) + "/" + escape(key) + "/" + escape(value)
}

// Join combines commands so they execute in a single request.
func Join(commands ...string) string {
	return strings.Join(commands, ";")
}

func escape(value string) string {
	return url.PathEscape(value)
}
