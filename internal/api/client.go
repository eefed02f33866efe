package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stagepilot/internal/model"
)

// ErrDaemonUnavailable marks requests that could not reach the daemon at
// all, as opposed to requests it rejected.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client talks to a running daemon's HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the given bind address. A bare host:port
// is promoted to an http URL.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	parsed, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	endpoint := *c.base
	endpoint.Path = parsed.Path
	endpoint.RawQuery = parsed.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Regions fetches the region list with derived behavior.
func (c *Client) Regions(ctx context.Context) (RegionsResponse, error) {
	var out RegionsResponse
	err := c.do(ctx, http.MethodGet, "/api/regions", nil, &out)
	return out, err
}

// RefreshRegions forces a region and marker re-read from REAPER.
func (c *Client) RefreshRegions(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/regions/refresh", nil, nil)
}

// Markers fetches the visible marker list.
func (c *Client) Markers(ctx context.Context) (MarkersResponse, error) {
	var out MarkersResponse
	err := c.do(ctx, http.MethodGet, "/api/markers", nil, &out)
	return out, err
}

// Playback fetches the playback snapshot.
func (c *Client) Playback(ctx context.Context) (PlaybackResponse, error) {
	var out PlaybackResponse
	err := c.do(ctx, http.MethodGet, "/api/playback", nil, &out)
	return out, err
}

// TogglePlay toggles the transport.
func (c *Client) TogglePlay(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/transport/toggle", nil, nil)
}

// PlayWithCountIn restarts the current region with a count-in pre-roll
// and starts playback.
func (c *Client) PlayWithCountIn(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/transport/count-in", nil, nil)
}

// Seek moves the transport to an absolute position.
func (c *Client) Seek(ctx context.Context, position float64) error {
	return c.do(ctx, http.MethodPost, "/api/transport/seek", SeekRequest{Position: position}, nil)
}

// SeekRegion transitions to a region.
func (c *Client) SeekRegion(ctx context.Context, req SeekRegionRequest) error {
	return c.do(ctx, http.MethodPost, "/api/transport/region", req, nil)
}

// NextRegion advances to the next region.
func (c *Client) NextRegion(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/transport/next", nil, nil)
}

// PreviousRegion steps back a region.
func (c *Client) PreviousRegion(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/transport/previous", nil, nil)
}

// RestartRegion seeks back to the current region's start.
func (c *Client) RestartRegion(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/transport/restart", nil, nil)
}

// UpdateSettings changes playback preferences.
func (c *Client) UpdateSettings(ctx context.Context, req SettingsRequest) error {
	return c.do(ctx, http.MethodPost, "/api/transport/settings", req, nil)
}

// Reconnect asks the daemon to re-establish the REAPER connection.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reconnect", nil, nil)
}

// Setlists fetches every setlist.
func (c *Client) Setlists(ctx context.Context) (SetlistsResponse, error) {
	var out SetlistsResponse
	err := c.do(ctx, http.MethodGet, "/api/setlists", nil, &out)
	return out, err
}

// CreateSetlist adds a setlist.
func (c *Client) CreateSetlist(ctx context.Context, name string) (model.Setlist, error) {
	var out SetlistResponse
	err := c.do(ctx, http.MethodPost, "/api/setlists", CreateSetlistRequest{Name: name}, &out)
	return out.Setlist, err
}

// RenameSetlist renames a setlist.
func (c *Client) RenameSetlist(ctx context.Context, id, name string) (model.Setlist, error) {
	var out SetlistResponse
	err := c.do(ctx, http.MethodPatch, "/api/setlists/"+url.PathEscape(id), RenameSetlistRequest{Name: name}, &out)
	return out.Setlist, err
}

// DeleteSetlist removes a setlist.
func (c *Client) DeleteSetlist(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/setlists/"+url.PathEscape(id), nil, nil)
}

// SelectSetlist makes a setlist drive next/previous traversal. An empty id
// clears the selection.
func (c *Client) SelectSetlist(ctx context.Context, id string) error {
	if id == "" {
		return c.do(ctx, http.MethodDelete, "/api/setlists/selection", nil, nil)
	}
	return c.do(ctx, http.MethodPost, "/api/setlists/"+url.PathEscape(id)+"/select", nil, nil)
}

// AddSetlistItem appends a region to a setlist.
func (c *Client) AddSetlistItem(ctx context.Context, setlistID, regionID string) (model.Setlist, error) {
	var out SetlistResponse
	err := c.do(ctx, http.MethodPost, "/api/setlists/"+url.PathEscape(setlistID)+"/items", AddItemRequest{RegionID: regionID}, &out)
	return out.Setlist, err
}

// RemoveSetlistItem deletes an item.
func (c *Client) RemoveSetlistItem(ctx context.Context, setlistID, itemID string) (model.Setlist, error) {
	var out SetlistResponse
	err := c.do(ctx, http.MethodDelete, "/api/setlists/"+url.PathEscape(setlistID)+"/items/"+url.PathEscape(itemID), nil, &out)
	return out.Setlist, err
}

// MoveSetlistItem relocates an item.
func (c *Client) MoveSetlistItem(ctx context.Context, setlistID, itemID string, position int) (model.Setlist, error) {
	var out SetlistResponse
	err := c.do(ctx, http.MethodPatch, "/api/setlists/"+url.PathEscape(setlistID)+"/items/"+url.PathEscape(itemID), MoveItemRequest{Position: position}, &out)
	return out.Setlist, err
}

// History fetches recent performance history.
func (c *Client) History(ctx context.Context, limit int) (HistoryResponse, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out HistoryResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
