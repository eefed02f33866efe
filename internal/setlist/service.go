// Package setlist manages named region orderings and persists them in the
// project's extended state. Persistence is best effort: the in-memory
// collection is the working truth, and a failed save never rolls a
// mutation back.
package setlist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"stagepilot/internal/events"
	"stagepilot/internal/faults"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

const (
	component = "setlist"

	// indexKey holds the comma-joined setlist ids in display order. Each
	// setlist body lives under its own keyPrefix+id key.
	indexKey  = "setlist-index"
	keyPrefix = "setlist-"
)

// Persistence is the slice of the connector the service needs for
// extended-state storage.
type Persistence interface {
	ExtState(ctx context.Context, key string) (string, error)
	SetExtState(ctx context.Context, key, value string) error
}

// Service owns the setlist collection for the current project.
type Service struct {
	logger  *slog.Logger
	store   Persistence
	bus     *events.Bus
	catalog *model.Catalog

	mu        sync.Mutex
	setlists  map[string]*model.Setlist
	order     []string
	projectID string
}

// NewService builds a setlist service.
func NewService(logger *slog.Logger, store Persistence, bus *events.Bus, catalog *model.Catalog) *Service {
	return &Service{
		logger:   logging.NewComponentLogger(logger, component),
		store:    store,
		bus:      bus,
		catalog:  catalog,
		setlists: make(map[string]*model.Setlist),
	}
}

// Load replaces the in-memory collection with whatever the project's
// extended state holds. Called on connect and whenever the project
// identity changes. Undecodable entries are skipped with a warning so one
// corrupt setlist never hides the rest.
func (s *Service) Load(ctx context.Context, projectID string) error {
	index, err := s.store.ExtState(ctx, indexKey)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, component, "load", "read index", err)
	}

	setlists := make(map[string]*model.Setlist)
	var order []string
	for _, id := range strings.Split(index, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		raw, err := s.store.ExtState(ctx, keyPrefix+id)
		if err != nil {
			return faults.Wrap(faults.ErrPersistence, component, "load", "read "+id, err)
		}
		if raw == "" {
			s.logger.Warn("indexed setlist missing", logging.String(logging.FieldSetlistID, id))
			continue
		}
		var sl model.Setlist
		if err := json.Unmarshal([]byte(raw), &sl); err != nil {
			s.logger.Warn("skipping undecodable setlist",
				logging.String(logging.FieldSetlistID, id),
				logging.Error(err))
			continue
		}
		sl.Renumber()
		setlists[sl.ID] = &sl
		order = append(order, sl.ID)
	}

	s.mu.Lock()
	s.setlists = setlists
	s.order = order
	s.projectID = projectID
	s.mu.Unlock()

	s.logger.Info("setlists loaded",
		logging.Int("count", len(order)),
		logging.String(logging.FieldProjectID, projectID))
	s.publishAll()
	return nil
}

// Reset drops the in-memory collection, used when the project changes
// before the new project's setlists have loaded.
func (s *Service) Reset() {
	s.mu.Lock()
	s.setlists = make(map[string]*model.Setlist)
	s.order = nil
	s.mu.Unlock()
	s.publishAll()
}

// List returns the setlists in display order.
func (s *Service) List() []model.Setlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() []model.Setlist {
	out := make([]model.Setlist, 0, len(s.order))
	for _, id := range s.order {
		if sl, ok := s.setlists[id]; ok {
			out = append(out, sl.Clone())
		}
	}
	return out
}

// Get returns one setlist by id.
func (s *Service) Get(id string) (model.Setlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.setlists[id]
	if !ok {
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "get", "no setlist "+id, nil)
	}
	return sl.Clone(), nil
}

// Create adds an empty setlist with the given name.
func (s *Service) Create(ctx context.Context, name string) (model.Setlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Setlist{}, faults.Wrap(faults.ErrValidation, component, "create", "name must not be empty", nil)
	}

	s.mu.Lock()
	sl := &model.Setlist{
		ID:        uuid.NewString(),
		Name:      name,
		ProjectID: s.projectID,
	}
	s.setlists[sl.ID] = sl
	s.order = append(s.order, sl.ID)
	snapshot := sl.Clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.persistIndex(ctx)
	s.publish(snapshot)
	return snapshot, nil
}

// Rename changes a setlist's display name.
func (s *Service) Rename(ctx context.Context, id, name string) (model.Setlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Setlist{}, faults.Wrap(faults.ErrValidation, component, "rename", "name must not be empty", nil)
	}

	s.mu.Lock()
	sl, ok := s.setlists[id]
	if !ok {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "rename", "no setlist "+id, nil)
	}
	sl.Name = name
	snapshot := sl.Clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(snapshot)
	return snapshot, nil
}

// Delete removes a setlist and clears its extended-state key.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.setlists[id]; !ok {
		s.mu.Unlock()
		return faults.Wrap(faults.ErrNotFound, component, "delete", "no setlist "+id, nil)
	}
	delete(s.setlists, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.store.SetExtState(ctx, keyPrefix+id, ""); err != nil {
		s.warnPersist("delete", id, err)
	}
	s.persistIndex(ctx)
	s.publishAll()
	return nil
}

// AddItem appends a region reference to a setlist. The region must exist
// in the current project; duplicates are allowed.
func (s *Service) AddItem(ctx context.Context, setlistID, regionID string) (model.Setlist, error) {
	region, ok := s.catalog.RegionByID(regionID)
	if !ok {
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "add item", "no region "+regionID, nil)
	}

	s.mu.Lock()
	sl, found := s.setlists[setlistID]
	if !found {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "add item", "no setlist "+setlistID, nil)
	}
	sl.Items = append(sl.Items, model.SetlistItem{
		ID:       uuid.NewString(),
		RegionID: region.ID,
		Name:     region.Name,
	})
	sl.Renumber()
	snapshot := sl.Clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(snapshot)
	return snapshot, nil
}

// RemoveItem deletes one item. Remaining positions stay dense.
func (s *Service) RemoveItem(ctx context.Context, setlistID, itemID string) (model.Setlist, error) {
	s.mu.Lock()
	sl, found := s.setlists[setlistID]
	if !found {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "remove item", "no setlist "+setlistID, nil)
	}
	index := -1
	for i, item := range sl.Items {
		if item.ID == itemID {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "remove item", "no item "+itemID, nil)
	}
	sl.Items = append(sl.Items[:index], sl.Items[index+1:]...)
	sl.Renumber()
	snapshot := sl.Clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(snapshot)
	return snapshot, nil
}

// MoveItem relocates an item to a new index. Out-of-range targets are
// rejected before anything is reordered or persisted.
func (s *Service) MoveItem(ctx context.Context, setlistID, itemID string, newIndex int) (model.Setlist, error) {
	s.mu.Lock()
	sl, found := s.setlists[setlistID]
	if !found {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "move item", "no setlist "+setlistID, nil)
	}
	if newIndex < 0 || newIndex >= len(sl.Items) {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrValidation, component, "move item", "position "+strconv.Itoa(newIndex)+" out of range", nil)
	}
	from := -1
	for i, item := range sl.Items {
		if item.ID == itemID {
			from = i
			break
		}
	}
	if from < 0 {
		s.mu.Unlock()
		return model.Setlist{}, faults.Wrap(faults.ErrNotFound, component, "move item", "no item "+itemID, nil)
	}
	item := sl.Items[from]
	sl.Items = append(sl.Items[:from], sl.Items[from+1:]...)
	sl.Items = append(sl.Items[:newIndex], append([]model.SetlistItem{item}, sl.Items[newIndex:]...)...)
	sl.Renumber()
	snapshot := sl.Clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(snapshot)
	return snapshot, nil
}

// SortedByName returns the collection ordered by name, used by list-style
// presentation surfaces.
func (s *Service) SortedByName() []model.Setlist {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// persist writes one setlist body. Failures are logged and surfaced as a
// status event but never undo the in-memory change.
func (s *Service) persist(ctx context.Context, sl model.Setlist) {
	payload, err := json.Marshal(sl)
	if err != nil {
		s.warnPersist("encode", sl.ID, err)
		return
	}
	if err := s.store.SetExtState(ctx, keyPrefix+sl.ID, string(payload)); err != nil {
		s.warnPersist("save", sl.ID, err)
	}
}

func (s *Service) persistIndex(ctx context.Context) {
	s.mu.Lock()
	index := strings.Join(s.order, ",")
	s.mu.Unlock()
	if err := s.store.SetExtState(ctx, indexKey, index); err != nil {
		s.warnPersist("save index", indexKey, err)
	}
}

func (s *Service) warnPersist(operation, id string, err error) {
	s.logger.Warn("setlist persistence failed",
		logging.String("operation", operation),
		logging.String(logging.FieldSetlistID, id),
		logging.Error(err),
		logging.String(logging.FieldImpact, "change kept in memory only"))
	s.bus.PublishStatus(events.StatusWarning, "setlist change not saved to project")
}

func (s *Service) publish(sl model.Setlist) {
	s.bus.PublishSetlistUpdated(sl)
	s.publishAll()
}

func (s *Service) publishAll() {
	s.mu.Lock()
	all := s.snapshotLocked()
	s.mu.Unlock()
	s.bus.PublishSetlists(all)
}
