package model

// SetlistItem references a region within an ordered setlist. Position values
// form a dense 0-based sequence matching list order.
type SetlistItem struct {
	ID       string `json:"id"`
	RegionID string `json:"regionId"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Setlist is a user-ordered subsequence of regions, persisted in the
// project's extended state independent of the regions themselves.
type Setlist struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	ProjectID string        `json:"projectId"`
	Items     []SetlistItem `json:"items"`
}

// Renumber rewrites item positions to the dense 0-based sequence implied by
// slice order. Call after every insert, removal, or move.
func (s *Setlist) Renumber() {
	for i := range s.Items {
		s.Items[i].Position = i
	}
}

// ItemByRegion returns the first item referencing the region id.
func (s *Setlist) ItemByRegion(regionID string) (SetlistItem, bool) {
	for _, item := range s.Items {
		if item.RegionID == regionID {
			return item, true
		}
	}
	return SetlistItem{}, false
}

// ItemAt returns the item at the given position.
func (s *Setlist) ItemAt(position int) (SetlistItem, bool) {
	if position < 0 || position >= len(s.Items) {
		return SetlistItem{}, false
	}
	return s.Items[position], true
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the backing slice.
func (s *Setlist) Clone() Setlist {
	out := *s
	out.Items = make([]SetlistItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}
