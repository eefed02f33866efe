package model_test

import (
	"testing"
	"time"

	"stagepilot/internal/model"
)

func TestRegionAt(t *testing.T) {
	t.Parallel()

	regions := []model.Region{
		{ID: "2", Start: 20, End: 40},
		{ID: "1", Start: 0, End: 25},
		{ID: "3", Start: 50, End: 60},
	}

	if region, ok := model.RegionAt(regions, 10); !ok || region.ID != "1" {
		t.Fatalf("RegionAt(10) = %v, %v; want region 1", region.ID, ok)
	}
	// Overlap resolves to the earliest-starting region.
	if region, ok := model.RegionAt(regions, 22); !ok || region.ID != "1" {
		t.Fatalf("RegionAt(22) = %v, %v; want region 1", region.ID, ok)
	}
	if _, ok := model.RegionAt(regions, 45); ok {
		t.Fatal("RegionAt(45) should find nothing")
	}
	if region, ok := model.RegionAt(regions, 60); !ok || region.ID != "3" {
		t.Fatalf("RegionAt(60) inclusive end = %v, %v; want region 3", region.ID, ok)
	}
}

func TestBarDuration(t *testing.T) {
	t.Parallel()

	ts := model.TimeSignature{Numerator: 4, Denominator: 4}
	if got := ts.BarDuration(120); got != 2*time.Second {
		t.Fatalf("4/4 at 120 BPM = %v, want 2s", got)
	}
	ts = model.TimeSignature{Numerator: 3, Denominator: 4}
	if got := ts.BarDuration(60); got != 3*time.Second {
		t.Fatalf("3/4 at 60 BPM = %v, want 3s", got)
	}
	ts = model.TimeSignature{Numerator: 6, Denominator: 8}
	if got := ts.BarDuration(120); got != 1500*time.Millisecond {
		t.Fatalf("6/8 at 120 BPM = %v, want 1.5s", got)
	}
	if got := ts.BarDuration(0); got != 0 {
		t.Fatalf("zero BPM should yield 0, got %v", got)
	}
	ts = model.TimeSignature{Numerator: 4, Denominator: 0}
	if got := ts.BarDuration(120); got != 0 {
		t.Fatalf("zero denominator should yield 0, got %v", got)
	}
}

func TestSetlistRenumber(t *testing.T) {
	t.Parallel()

	setlist := model.Setlist{
		ID: "s1",
		Items: []model.SetlistItem{
			{ID: "a", RegionID: "1", Position: 4},
			{ID: "b", RegionID: "2", Position: 9},
			{ID: "c", RegionID: "3", Position: 1},
		},
	}
	setlist.Renumber()
	for i, item := range setlist.Items {
		if item.Position != i {
			t.Fatalf("item %d position = %d after renumber", i, item.Position)
		}
	}
}

func TestSetlistCloneIsolation(t *testing.T) {
	t.Parallel()

	setlist := model.Setlist{
		ID:    "s1",
		Items: []model.SetlistItem{{ID: "a", RegionID: "1"}},
	}
	clone := setlist.Clone()
	clone.Items[0].RegionID = "mutated"
	if setlist.Items[0].RegionID != "1" {
		t.Fatal("clone shares backing slice with original")
	}
}
