package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stagepilot/internal/api"
	"stagepilot/internal/events"
	"stagepilot/internal/logging"
	"stagepilot/internal/model"
	"stagepilot/internal/playclock"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsSendBuffer = 32
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected event-stream consumer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans bus events out to websocket clients as api.Event envelopes.
// It subscribes to every bus category and is safe to publish to before
// run starts; events broadcast with no clients connected are dropped.
type hub struct {
	logger  *slog.Logger
	catalog *model.Catalog
	clock   *playclock.Clock

	mu      sync.RWMutex
	clients map[*wsClient]bool
	closed  bool

	broadcast chan []byte
}

func newHub(logger *slog.Logger, catalog *model.Catalog, clock *playclock.Clock) *hub {
	return &hub{
		logger:    logging.NewComponentLogger(logger, "ws-hub"),
		catalog:   catalog,
		clock:     clock,
		clients:   make(map[*wsClient]bool),
		broadcast: make(chan []byte, 64),
	}
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			// Sends happen under the read lock so a concurrent drop can
			// never close a channel mid-send. They never block; a full
			// buffer marks the client as too slow to keep.
			var slow []*wsClient
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.drop(client)
			}
		}
	}
}

// add registers a client. It refuses once the hub has shut down so a late
// websocket request never parks its handler goroutine.
func (h *hub) add(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = true
	return true
}

func (h *hub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()
}

func (h *hub) publish(eventType string, payload any) {
	data, err := json.Marshal(api.Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to encode event", logging.Error(err),
			logging.String(logging.FieldEventType, eventType))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("event stream backlogged, dropping event",
			logging.String(logging.FieldEventType, eventType))
	}
}

func (h *hub) RegionsUpdated(regions []model.Region) {
	h.publish(api.EventRegions, api.RegionsResponse{
		Regions: regionViews(regions, h.catalog.Markers()),
	})
}

func (h *hub) MarkersUpdated(markers []model.Marker) {
	h.publish(api.EventMarkers, api.MarkersResponse{Markers: model.VisibleMarkers(markers)})
}

func (h *hub) PlaybackChanged(state model.PlaybackState) {
	h.publish(api.EventPlayback, api.PlaybackResponse{
		Playback:   state,
		AtHardStop: h.clock.AtHardStop(),
	})
}

func (h *hub) ConnectionChanged(status model.ConnectionStatus) {
	h.publish(api.EventConnection, status)
}

func (h *hub) ProjectID(id string) {
	h.publish(api.EventProjectID, map[string]string{"projectId": id})
}

func (h *hub) ProjectChanged(previous, current string) {
	h.publish(api.EventProjectChanged, map[string]string{
		"previous": previous,
		"current":  current,
	})
}

func (h *hub) SetlistsUpdated(setlists []model.Setlist) {
	h.publish(api.EventSetlists, api.SetlistsResponse{Setlists: setlists})
}

func (h *hub) SetlistUpdated(sl model.Setlist) {
	h.publish(api.EventSetlistUpdated, api.SetlistResponse{Setlist: sl})
}

func (h *hub) Status(message events.StatusMessage) {
	h.publish(api.EventStatus, message)
}

func (h *hub) MIDIActivity(activity events.MIDIActivity) {
	h.publish(api.EventMIDIActivity, activity)
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", logging.Error(err))
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	if !h.add(client) {
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

// readPump discards inbound frames; the stream is one-way. It exists to
// observe the close handshake and pong replies.
func (h *hub) readPump(client *wsClient) {
	defer func() {
		h.drop(client)
		_ = client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// regionViews resolves each region's annotation-derived behavior for the
// API surface.
func regionViews(regions []model.Region, markers []model.Marker) []api.RegionView {
	views := make([]api.RegionView, 0, len(regions))
	for _, region := range regions {
		view := api.RegionView{
			Region:          region,
			EffectiveLength: model.EffectiveLength(region, markers),
			HardStop:        model.HasHardStop(region, markers),
		}
		if bpm, ok := model.BPMOverride(region, markers); ok {
			override := bpm
			view.BPMOverride = &override
		}
		views = append(views, view)
	}
	return views
}
