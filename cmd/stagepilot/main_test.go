package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"stagepilot/internal/api"
	"stagepilot/internal/model"
)

// runCommand executes the CLI against a fake daemon API and returns stdout.
func runCommand(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	full := append(args,
		"--api", srvURL,
		"--config", filepath.Join(t.TempDir(), "absent.toml"),
	)
	root.SetArgs(full)
	err := root.Execute()
	return out.String(), err
}

func fakeDaemon(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegionsCommandRendersTable(t *testing.T) {
	t.Parallel()
	srv := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/regions" {
			http.NotFound(w, r)
			return
		}
		override := 140.0
		_ = json.NewEncoder(w).Encode(api.RegionsResponse{Regions: []api.RegionView{
			{
				Region:          model.Region{ID: "r1", Name: "Verse", Start: 10, End: 40},
				EffectiveLength: 30,
			},
			{
				Region:          model.Region{ID: "r2", Name: "Chorus", Start: 40, End: 70},
				EffectiveLength: 20,
				HardStop:        true,
				BPMOverride:     &override,
			},
		}})
	})

	out, err := runCommand(t, srv.URL, "regions")
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	for _, want := range []string{"Verse", "Chorus", "140.0", "0:10.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommandJSON(t *testing.T) {
	t.Parallel()
	srv := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.StatusResponse{
			Running: true,
			PID:     4242,
			Connection: model.ConnectionStatus{
				Connected: true,
				Status:    "polling",
			},
		})
	})

	out, err := runCommand(t, srv.URL, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status api.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !status.Running || status.PID != 4242 {
		t.Errorf("status = %+v, want running pid 4242", status)
	}
}

func TestSeekCommandRejectsBadPosition(t *testing.T) {
	t.Parallel()
	srv := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s before validation", r.URL.Path)
	})

	if _, err := runCommand(t, srv.URL, "seek", "not-a-time"); err == nil {
		t.Fatal("seek accepted an unparseable position")
	}
}

func TestDaemonStatusReportsUnreachable(t *testing.T) {
	t.Parallel()
	out, err := runCommand(t, "http://127.0.0.1:1", "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Errorf("output = %q, want unreachable notice", out)
	}
}

func TestMIDICommandListsEffectiveMappings(t *testing.T) {
	t.Parallel()
	srv := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s for a local command", r.URL.Path)
	})

	out, err := runCommand(t, srv.URL, "midi")
	if err != nil {
		t.Fatalf("midi: %v", err)
	}
	for _, want := range []string{"36", "toggle_play", "41", "seek_region_start"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowPrintsResolvedTOML(t *testing.T) {
	t.Parallel()
	srv := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s for a local command", r.URL.Path)
	})

	out, err := runCommand(t, srv.URL, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"[reaper]", "base_url", "[midi]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
