package model

// Region is a named time interval on the project timeline. End is always
// greater than Start; the codec drops records that violate this.
type Region struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Color string  `json:"color,omitempty"`
}

// Length returns the natural region length in seconds, ignoring any
// !length: annotation.
func (r Region) Length() float64 {
	return r.End - r.Start
}

// Contains reports whether the position lies within the region, start and
// end inclusive.
func (r Region) Contains(position float64) bool {
	return position >= r.Start && position <= r.End
}

// Marker is a named point-in-time annotation. The name may embed control
// tags; see tags.go.
type Marker struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Color    string  `json:"color,omitempty"`
}

// RegionAt returns the region containing the position. When regions overlap
// the earliest-starting match wins. The second return is false when no
// region contains the position.
func RegionAt(regions []Region, position float64) (Region, bool) {
	var (
		best  Region
		found bool
	)
	for _, region := range regions {
		if !region.Contains(position) {
			continue
		}
		if !found || region.Start < best.Start {
			best = region
			found = true
		}
	}
	return best, found
}

// RegionByID returns the region with the given id.
func RegionByID(regions []Region, id string) (Region, bool) {
	for _, region := range regions {
		if region.ID == id {
			return region, true
		}
	}
	return Region{}, false
}

// VisibleMarkers filters out command-only markers for user-facing lists.
// Internal position searches must keep using the unfiltered slice.
func VisibleMarkers(markers []Marker) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, marker := range markers {
		if IsCommandOnlyMarker(marker.Name) {
			continue
		}
		out = append(out, marker)
	}
	return out
}
