package history

import (
	"context"
	"testing"
	"time"

	"stagepilot/internal/logging"
	"stagepilot/internal/model"
	"stagepilot/internal/testsupport"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestBeginEndAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)

	first, err := store.BeginPlay(ctx, Entry{
		RegionID:   "1",
		RegionName: "Opener",
		SetlistID:  "sl",
		StartedAt:  base,
	})
	if err != nil {
		t.Fatalf("begin first: %v", err)
	}
	if err := store.EndPlay(ctx, first, base.Add(3*time.Minute)); err != nil {
		t.Fatalf("end first: %v", err)
	}

	if _, err := store.BeginPlay(ctx, Entry{
		RegionID:   "2",
		RegionName: "Closer",
		StartedAt:  base.Add(4 * time.Minute),
	}); err != nil {
		t.Fatalf("begin second: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RegionName != "Closer" {
		t.Fatalf("expected newest first, got %q", entries[0].RegionName)
	}
	if entries[0].EndedAt != nil {
		t.Fatal("second entry should still be open")
	}
	if entries[1].EndedAt == nil || !entries[1].EndedAt.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("first entry end time wrong: %v", entries[1].EndedAt)
	}
}

func TestEndPlayOnClosedEntryIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC()

	id, err := store.BeginPlay(ctx, Entry{RegionID: "1", RegionName: "Song", StartedAt: start})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.EndPlay(ctx, id, start.Add(time.Minute)); err != nil {
		t.Fatalf("first end: %v", err)
	}
	if err := store.EndPlay(ctx, id, start.Add(time.Hour)); err != nil {
		t.Fatalf("second end: %v", err)
	}

	entries, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if !entries[0].EndedAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("closed entry was overwritten: %v", entries[0].EndedAt)
	}
}

func TestRecorderTracksRegionTransitions(t *testing.T) {
	store := openTestStore(t)
	catalog := model.NewCatalog()
	catalog.ReplaceRegions([]model.Region{
		{ID: "1", Name: "Opener", Start: 0, End: 100},
		{ID: "2", Name: "Closer", Start: 100, End: 200},
	})
	recorder := NewRecorder(logging.NewNop(), store, catalog)

	clock := time.Date(2026, 8, 30, 22, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return clock }

	recorder.ProjectID("project-a")
	recorder.PlaybackChanged(model.PlaybackState{IsPlaying: true, Position: 10, CurrentRegionID: "1"})
	clock = clock.Add(2 * time.Minute)
	recorder.PlaybackChanged(model.PlaybackState{IsPlaying: true, Position: 110, CurrentRegionID: "2"})
	clock = clock.Add(3 * time.Minute)
	recorder.PlaybackChanged(model.PlaybackState{IsPlaying: false, Position: 150, CurrentRegionID: "2"})

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RegionName != "Closer" || entries[1].RegionName != "Opener" {
		t.Fatalf("unexpected order: %q, %q", entries[0].RegionName, entries[1].RegionName)
	}
	for _, entry := range entries {
		if entry.EndedAt == nil {
			t.Fatalf("entry %q left open", entry.RegionName)
		}
		if entry.ProjectID != "project-a" {
			t.Fatalf("entry missing project id: %+v", entry)
		}
	}
}
