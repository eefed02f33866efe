package events_test

import (
	"testing"

	"stagepilot/internal/events"
	"stagepilot/internal/model"
)

type recorder struct {
	regions  [][]model.Region
	playback []model.PlaybackState
	statuses []events.StatusMessage
}

func (r *recorder) RegionsUpdated(regions []model.Region)     { r.regions = append(r.regions, regions) }
func (r *recorder) PlaybackChanged(state model.PlaybackState) { r.playback = append(r.playback, state) }
func (r *recorder) Status(message events.StatusMessage)       { r.statuses = append(r.statuses, message) }

func TestSubscribeRegistersImplementedInterfacesOnly(t *testing.T) {
	t.Parallel()

	bus := events.New()
	rec := &recorder{}
	bus.Subscribe(rec)

	bus.PublishRegions([]model.Region{{ID: "1"}})
	bus.PublishPlayback(model.PlaybackState{Position: 5})
	bus.PublishStatus(events.StatusWarning, "test")
	// recorder does not implement MarkerSubscriber; must not panic.
	bus.PublishMarkers([]model.Marker{{ID: "m"}})

	if len(rec.regions) != 1 || len(rec.playback) != 1 || len(rec.statuses) != 1 {
		t.Fatalf("unexpected deliveries: %d regions, %d playback, %d statuses",
			len(rec.regions), len(rec.playback), len(rec.statuses))
	}
	if rec.statuses[0].Time.IsZero() {
		t.Fatal("status timestamp not set")
	}
}

func TestPublishedSlicesAreCopies(t *testing.T) {
	t.Parallel()

	bus := events.New()
	rec := &recorder{}
	bus.Subscribe(rec)

	source := []model.Region{{ID: "1", Name: "Intro"}}
	bus.PublishRegions(source)
	source[0].Name = "mutated"

	if rec.regions[0][0].Name != "Intro" {
		t.Fatal("subscriber received shared slice, not a copy")
	}
}
