package model

import "sync"

// Catalog owns the region and marker collections. Both are replaced
// wholesale on refresh; accessors hand out copies so callers never share
// the backing slices.
type Catalog struct {
	mu      sync.RWMutex
	regions []Region
	markers []Marker
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// ReplaceRegions swaps in a new region list.
func (c *Catalog) ReplaceRegions(regions []Region) {
	next := make([]Region, len(regions))
	copy(next, regions)
	c.mu.Lock()
	c.regions = next
	c.mu.Unlock()
}

// ReplaceMarkers swaps in a new marker list.
func (c *Catalog) ReplaceMarkers(markers []Marker) {
	next := make([]Marker, len(markers))
	copy(next, markers)
	c.mu.Lock()
	c.markers = next
	c.mu.Unlock()
}

// Regions returns a snapshot of the region list in chronological order as
// delivered by REAPER.
func (c *Catalog) Regions() []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Markers returns a snapshot of the marker list, command-only markers
// included.
func (c *Catalog) Markers() []Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Marker, len(c.markers))
	copy(out, c.markers)
	return out
}

// RegionAt returns the region containing the position.
func (c *Catalog) RegionAt(position float64) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RegionAt(c.regions, position)
}

// RegionByID returns the region with the given id.
func (c *Catalog) RegionByID(id string) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RegionByID(c.regions, id)
}

// RegionByName returns the first region whose name matches exactly.
func (c *Catalog) RegionByName(name string) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, region := range c.regions {
		if region.Name == name {
			return region, true
		}
	}
	return Region{}, false
}
