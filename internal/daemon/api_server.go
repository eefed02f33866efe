package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stagepilot/internal/api"
	"stagepilot/internal/config"
	"stagepilot/internal/faults"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	route := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, handler))
	}

	route("GET /api/status", srv.handleStatus)
	route("GET /api/regions", srv.handleRegions)
	route("POST /api/regions/refresh", srv.handleRegionsRefresh)
	route("GET /api/markers", srv.handleMarkers)
	route("GET /api/playback", srv.handlePlayback)
	route("POST /api/transport/toggle", srv.handleToggle)
	route("POST /api/transport/count-in", srv.handleCountIn)
	route("POST /api/transport/seek", srv.handleSeek)
	route("POST /api/transport/next", srv.handleNext)
	route("POST /api/transport/previous", srv.handlePrevious)
	route("POST /api/transport/restart", srv.handleRestart)
	route("POST /api/transport/region", srv.handleSeekRegion)
	route("POST /api/transport/settings", srv.handleSettings)
	route("POST /api/reconnect", srv.handleReconnect)
	route("GET /api/setlists", srv.handleSetlists)
	route("POST /api/setlists", srv.handleSetlistCreate)
	route("GET /api/setlists/{id}", srv.handleSetlistGet)
	route("PATCH /api/setlists/{id}", srv.handleSetlistRename)
	route("DELETE /api/setlists/{id}", srv.handleSetlistDelete)
	route("POST /api/setlists/{id}/select", srv.handleSetlistSelect)
	route("DELETE /api/setlists/selection", srv.handleSelectionClear)
	route("POST /api/setlists/{id}/items", srv.handleItemAdd)
	route("DELETE /api/setlists/{id}/items/{itemID}", srv.handleItemRemove)
	route("PATCH /api/setlists/{id}/items/{itemID}", srv.handleItemMove)
	route("GET /api/history", srv.handleHistory)
	route("GET /ws", d.hub.handleWS)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleRegions(w http.ResponseWriter, r *http.Request) {
	catalog := s.daemon.catalog
	s.writeJSON(w, http.StatusOK, api.RegionsResponse{
		Regions: regionViews(catalog.Regions(), catalog.Markers()),
	})
}

func (s *apiServer) handleRegionsRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.connector.RefreshRegionsAndMarkers(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	catalog := s.daemon.catalog
	s.writeJSON(w, http.StatusOK, api.RegionsResponse{
		Regions: regionViews(catalog.Regions(), catalog.Markers()),
	})
}

func (s *apiServer) handleMarkers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.MarkersResponse{
		Markers: model.VisibleMarkers(s.daemon.catalog.Markers()),
	})
}

func (s *apiServer) handlePlayback(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.PlaybackResponse{
		Playback:   s.daemon.connector.Playback(),
		AtHardStop: s.daemon.clock.AtHardStop(),
	})
}

func (s *apiServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.connector.TogglePlay(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleCountIn(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.engine.PlayWithCountIn(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req api.SeekRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.connector.SeekToPosition(r.Context(), req.Position); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleNext(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.engine.NextRegion(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.engine.PreviousRegion(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.engine.SeekToCurrentRegionStart(r.Context()); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleSeekRegion(w http.ResponseWriter, r *http.Request) {
	var req api.SeekRegionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RegionID) == "" {
		s.writeError(w, http.StatusBadRequest, "regionId is required")
		return
	}
	if err := s.daemon.engine.SeekToRegionAndPlay(r.Context(), req.RegionID, req.Autoplay, req.CountIn); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writePlayback(w)
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req api.SettingsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Autoplay != nil {
		s.daemon.connector.SetAutoplay(*req.Autoplay)
	}
	if req.CountIn != nil {
		s.daemon.connector.SetCountIn(*req.CountIn)
	}
	if req.RecordingArmed != nil {
		if err := s.daemon.connector.SetRecordingArmed(r.Context(), *req.RecordingArmed); err != nil {
			s.writeFault(w, err)
			return
		}
	}
	s.writePlayback(w)
}

func (s *apiServer) handleReconnect(w http.ResponseWriter, r *http.Request) {
	s.daemon.connector.RequestReconnect()
	s.writeJSON(w, http.StatusAccepted, s.daemon.Status())
}

func (s *apiServer) handleSetlists(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.SetlistsResponse{Setlists: s.daemon.setlists.SortedByName()})
}

func (s *apiServer) handleSetlistCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSetlistRequest
	if !s.decode(w, r, &req) {
		return
	}
	sl, err := s.daemon.setlists.Create(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleSetlistGet(w http.ResponseWriter, r *http.Request) {
	sl, err := s.daemon.setlists.Get(r.PathValue("id"))
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleSetlistRename(w http.ResponseWriter, r *http.Request) {
	var req api.RenameSetlistRequest
	if !s.decode(w, r, &req) {
		return
	}
	sl, err := s.daemon.setlists.Rename(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleSetlistDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.daemon.setlists.Delete(r.Context(), id); err != nil {
		s.writeFault(w, err)
		return
	}
	// A deleted setlist cannot stay selected or next/previous would be
	// stuck on the marker fallback.
	if s.daemon.connector.Playback().SelectedSetlistID == id {
		s.daemon.connector.SelectSetlist("")
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleSetlistSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.daemon.setlists.Get(id); err != nil {
		s.writeFault(w, err)
		return
	}
	s.daemon.connector.SelectSetlist(id)
	s.writePlayback(w)
}

func (s *apiServer) handleSelectionClear(w http.ResponseWriter, r *http.Request) {
	s.daemon.connector.SelectSetlist("")
	s.writePlayback(w)
}

func (s *apiServer) handleItemAdd(w http.ResponseWriter, r *http.Request) {
	var req api.AddItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	sl, err := s.daemon.setlists.AddItem(r.Context(), r.PathValue("id"), req.RegionID)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleItemRemove(w http.ResponseWriter, r *http.Request) {
	sl, err := s.daemon.setlists.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleItemMove(w http.ResponseWriter, r *http.Request) {
	var req api.MoveItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	sl, err := s.daemon.setlists.MoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"), req.Position)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SetlistResponse{Setlist: sl})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	if s.daemon.historyStore == nil {
		s.writeJSON(w, http.StatusOK, api.HistoryResponse{Entries: nil})
		return
	}
	entries, err := s.daemon.historyStore.Recent(r.Context(), limit)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Entries: entries})
}

func (s *apiServer) writePlayback(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, api.PlaybackResponse{
		Playback:   s.daemon.connector.Playback(),
		AtHardStop: s.daemon.clock.AtHardStop(),
	})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeFault maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, faults.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, faults.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, faults.ErrTransport), errors.Is(err, faults.ErrTimeout), errors.Is(err, faults.ErrExhausted):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
