package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

const recordTimeout = 5 * time.Second

// Recorder follows playback events and turns region changes into history
// entries. One entry stays open per playing region and is closed when the
// region changes or the transport stops.
type Recorder struct {
	logger  *slog.Logger
	store   *Store
	catalog *model.Catalog

	now func() time.Time

	mu         sync.Mutex
	openID     int64
	openRegion string
	projectID  string
}

// NewRecorder builds a recorder over the store.
func NewRecorder(logger *slog.Logger, store *Store, catalog *model.Catalog) *Recorder {
	return &Recorder{
		logger:  logging.NewComponentLogger(logger, "history"),
		store:   store,
		catalog: catalog,
		now:     time.Now,
	}
}

// ProjectID tracks the current project so entries carry it.
func (r *Recorder) ProjectID(id string) {
	r.mu.Lock()
	r.projectID = id
	r.mu.Unlock()
}

// ProjectChanged closes any open entry; it belongs to the old project.
func (r *Recorder) ProjectChanged(_, current string) {
	r.mu.Lock()
	r.projectID = current
	r.closeOpenLocked()
	r.mu.Unlock()
}

// PlaybackChanged ingests a playback snapshot.
func (r *Recorder) PlaybackChanged(state model.PlaybackState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !state.IsPlaying {
		r.closeOpenLocked()
		return
	}
	if state.CurrentRegionID == r.openRegion {
		return
	}
	r.closeOpenLocked()
	if state.CurrentRegionID == "" {
		return
	}

	name := state.CurrentRegionID
	if region, ok := r.catalog.RegionByID(state.CurrentRegionID); ok {
		name = region.Name
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	id, err := r.store.BeginPlay(ctx, Entry{
		ProjectID:  r.projectID,
		RegionID:   state.CurrentRegionID,
		RegionName: name,
		SetlistID:  state.SelectedSetlistID,
		StartedAt:  r.now(),
	})
	if err != nil {
		r.logger.Warn("history entry not recorded",
			logging.String(logging.FieldRegionID, state.CurrentRegionID),
			logging.Error(err))
		return
	}
	r.openID = id
	r.openRegion = state.CurrentRegionID
}

func (r *Recorder) closeOpenLocked() {
	if r.openID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.EndPlay(ctx, r.openID, r.now()); err != nil {
		r.logger.Warn("history entry not closed", logging.Error(err))
	}
	r.openID = 0
	r.openRegion = ""
}
