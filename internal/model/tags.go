package model

import (
	"strconv"
	"strings"
)

// Annotation tags embedded in marker names. A marker named
// "Chorus !length:45 !bpm:140" plays the region as 45 seconds long at 140
// BPM; "!1008" marks a hard stop. Bare "!<int>" tokens are action commands
// consumed elsewhere and hidden from marker lists.
const (
	tagLength   = "!length:"
	tagBPM      = "!bpm:"
	hardStopTag = "!1008"
)

// EffectiveLength returns the numeric value of a !length: tag on any marker
// positioned inside the region, or the natural region length when no tag is
// present. The first in-region tag wins; authoring convention is exactly one
// per region.
func EffectiveLength(region Region, markers []Marker) float64 {
	for _, marker := range markers {
		if !region.Contains(marker.Position) {
			continue
		}
		if value, ok := tagValue(marker.Name, tagLength); ok {
			return value
		}
	}
	return region.Length()
}

// LengthMarker returns the in-region marker carrying the !length: tag,
// with its value, when one exists.
func LengthMarker(region Region, markers []Marker) (Marker, float64, bool) {
	for _, marker := range markers {
		if !region.Contains(marker.Position) {
			continue
		}
		if value, ok := tagValue(marker.Name, tagLength); ok {
			return marker, value, true
		}
	}
	return Marker{}, 0, false
}

// HasHardStop reports whether any in-region marker carries the !1008 tag.
func HasHardStop(region Region, markers []Marker) bool {
	for _, marker := range markers {
		if region.Contains(marker.Position) && strings.Contains(marker.Name, hardStopTag) {
			return true
		}
	}
	return false
}

// BPMOverride returns the value of an in-region !bpm: tag. The second return
// is false when no tag is present.
func BPMOverride(region Region, markers []Marker) (float64, bool) {
	for _, marker := range markers {
		if !region.Contains(marker.Position) {
			continue
		}
		if value, ok := tagValue(marker.Name, tagBPM); ok {
			return value, true
		}
	}
	return 0, false
}

// IsCommandOnlyMarker reports whether the name consists solely of recognized
// tags and whitespace. Such markers are excluded from user-facing lists but
// still participate in length/hard-stop derivation.
func IsCommandOnlyMarker(name string) bool {
	for _, token := range strings.Fields(name) {
		if !isTagToken(token) {
			return false
		}
	}
	return true
}

func isTagToken(token string) bool {
	if !strings.HasPrefix(token, "!") {
		return false
	}
	if _, ok := tagValue(token, tagLength); ok {
		return true
	}
	if _, ok := tagValue(token, tagBPM); ok {
		return true
	}
	// Bare numeric action markers, !1008 included.
	if _, err := strconv.Atoi(token[1:]); err == nil {
		return true
	}
	return false
}

// tagValue extracts the numeric value following the prefix anywhere in the
// name. Returns false for absent or unparseable values.
func tagValue(name, prefix string) (float64, bool) {
	idx := strings.Index(name, prefix)
	if idx < 0 {
		return 0, false
	}
	rest := name[idx+len(prefix):]
	if end := strings.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\t' }); end >= 0 {
		rest = rest[:end]
	}
	value, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
