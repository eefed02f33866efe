package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stagepilot/internal/model"
)

func TestNewClientPromotesBareAddress(t *testing.T) {
	t.Parallel()
	client, err := NewClient("127.0.0.1:7389", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := client.base.String(); got != "http://127.0.0.1:7389" {
		t.Errorf("base = %q, want http scheme added", got)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	t.Parallel()
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(StatusResponse{Running: true})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "hunter2")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotAuth != "Bearer hunter2" {
		t.Errorf("authorization header = %q", gotAuth)
	}
}

func TestClientSurfacesErrorEnvelope(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "no setlist abc"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	err = client.DeleteSetlist(context.Background(), "abc")
	if err == nil || !strings.Contains(err.Error(), "no setlist abc") {
		t.Errorf("err = %v, want daemon error message surfaced", err)
	}
}

func TestClientHistoryQuery(t *testing.T) {
	t.Parallel()
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(HistoryResponse{})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.History(context.Background(), 5); err != nil {
		t.Fatalf("History: %v", err)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q, want limit=5", gotQuery)
	}
}

func TestClientUnreachableDaemon(t *testing.T) {
	t.Parallel()
	client, err := NewClient("127.0.0.1:1", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Regions(context.Background())
	if !errors.Is(err, ErrDaemonUnavailable) {
		t.Errorf("err = %v, want ErrDaemonUnavailable", err)
	}
}

func TestSelectSetlistRoutesEmptyIDToClear(t *testing.T) {
	t.Parallel()
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(PlaybackResponse{})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.SelectSetlist(context.Background(), ""); err != nil {
		t.Fatalf("SelectSetlist: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/setlists/selection" {
		t.Errorf("clear request = %s %s, want DELETE /api/setlists/selection", gotMethod, gotPath)
	}

	if err := client.SelectSetlist(context.Background(), "abc"); err != nil {
		t.Fatalf("SelectSetlist: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/setlists/abc/select" {
		t.Errorf("select request = %s %s, want POST /api/setlists/abc/select", gotMethod, gotPath)
	}
}

func TestSetlistRoundTripPayloads(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AddItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.RegionID != "r9" {
			t.Errorf("regionId = %q, want r9", req.RegionID)
		}
		_ = json.NewEncoder(w).Encode(SetlistResponse{Setlist: model.Setlist{
			ID:    "s1",
			Items: []model.SetlistItem{{ID: "i1", RegionID: "r9", Position: 0}},
		}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	sl, err := client.AddSetlistItem(context.Background(), "s1", "r9")
	if err != nil {
		t.Fatalf("AddSetlistItem: %v", err)
	}
	if len(sl.Items) != 1 || sl.Items[0].RegionID != "r9" {
		t.Errorf("setlist = %+v, want one item for r9", sl)
	}
}
