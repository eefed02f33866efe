package model_test

import (
	"testing"

	"stagepilot/internal/model"
)

func TestEffectiveLengthUsesInRegionTag(t *testing.T) {
	t.Parallel()

	region := model.Region{ID: "1", Name: "Chorus", Start: 30, End: 50}

	tests := []struct {
		name    string
		markers []model.Marker
		want    float64
	}{
		{
			name: "no markers falls back to natural length",
			want: 20,
		},
		{
			name: "length tag inside region wins",
			markers: []model.Marker{
				{ID: "m1", Name: "!length:10", Position: 45},
			},
			want: 10,
		},
		{
			name: "tag outside region is ignored",
			markers: []model.Marker{
				{ID: "m1", Name: "!length:10", Position: 55},
			},
			want: 20,
		},
		{
			name: "tag order on the same marker does not matter",
			markers: []model.Marker{
				{ID: "m1", Name: "Chorus !bpm:140 !length:45", Position: 40},
			},
			want: 45,
		},
		{
			name: "first in-region tag wins",
			markers: []model.Marker{
				{ID: "m1", Name: "!length:12", Position: 35},
				{ID: "m2", Name: "!length:99", Position: 44},
			},
			want: 12,
		},
		{
			name: "unparseable value falls through",
			markers: []model.Marker{
				{ID: "m1", Name: "!length:abc", Position: 40},
			},
			want: 20,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := model.EffectiveLength(region, tc.markers); got != tc.want {
				t.Fatalf("EffectiveLength = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBPMOverride(t *testing.T) {
	t.Parallel()

	region := model.Region{ID: "1", Start: 0, End: 60}
	markers := []model.Marker{
		{ID: "m1", Name: "Chorus !length:45 !bpm:140", Position: 10},
	}

	bpm, ok := model.BPMOverride(region, markers)
	if !ok || bpm != 140 {
		t.Fatalf("BPMOverride = %v, %v; want 140, true", bpm, ok)
	}

	if _, ok := model.BPMOverride(region, nil); ok {
		t.Fatal("expected no override without markers")
	}
}

func TestHasHardStop(t *testing.T) {
	t.Parallel()

	region := model.Region{ID: "1", Start: 30, End: 50}
	if model.HasHardStop(region, nil) {
		t.Fatal("expected no hard stop without markers")
	}
	markers := []model.Marker{
		{ID: "m1", Name: "outro !1008", Position: 40},
	}
	if !model.HasHardStop(region, markers) {
		t.Fatal("expected hard stop from in-region !1008")
	}
	outside := []model.Marker{
		{ID: "m1", Name: "!1008", Position: 51},
	}
	if model.HasHardStop(region, outside) {
		t.Fatal("marker past region end must not trigger hard stop")
	}
}

func TestIsCommandOnlyMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"!1008", true},
		{"!length:45", true},
		{"!bpm:120.5", true},
		{"!1008 !length:45", true},
		{"  !bpm:120.5   !1008 ", true},
		{"!7", true},
		{"", true},
		{"Verse !bpm:128.5", false},
		{"Chorus", false},
		{"!notatag", false},
	}

	for _, tc := range tests {
		if got := model.IsCommandOnlyMarker(tc.name); got != tc.want {
			t.Errorf("IsCommandOnlyMarker(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHardStopScenario(t *testing.T) {
	t.Parallel()

	region := model.Region{ID: "1", Start: 30, End: 50}
	markers := []model.Marker{
		{ID: "m1", Name: "!length:10", Position: 45},
		{ID: "m2", Name: "!1008", Position: 40},
	}

	if got := model.EffectiveLength(region, markers); got != 10 {
		t.Fatalf("EffectiveLength = %v, want 10", got)
	}
	if !model.HasHardStop(region, markers) {
		t.Fatal("expected hard stop")
	}
	if boundary := region.Start + model.EffectiveLength(region, markers); boundary != 40 {
		t.Fatalf("hard stop boundary = %v, want 40", boundary)
	}
}

func TestVisibleMarkersHidesCommandOnly(t *testing.T) {
	t.Parallel()

	markers := []model.Marker{
		{ID: "m1", Name: "Verse"},
		{ID: "m2", Name: "!1008"},
		{ID: "m3", Name: "Bridge !length:12"},
	}
	visible := model.VisibleMarkers(markers)
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible markers, got %d", len(visible))
	}
	for _, marker := range visible {
		if marker.ID == "m2" {
			t.Fatal("command-only marker leaked into visible list")
		}
	}
}
