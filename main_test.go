package main

import (
	"context"
	"encoding/json"
	"io"
	"moodboard-server/clock"
	"moodboard-server/core"
	"moodboard-server/gemini"
	"moodboard-server/jobs"
	"moodboard-server/stores"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type idleVideoService struct{}

func (idleVideoService) Submit(ctx context.Context, req core.VideoRequest) (string, error) {
	return "operations/1", nil
}

func (idleVideoService) Check(ctx context.Context, handle string) (core.OperationStatus, error) {
	return core.OperationStatus{}, nil
}

func (idleVideoService) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	return nil, "", nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := stores.NewSessionStore()
	gate := gemini.NewKeyGate("test-key")
	reg := prometheus.NewRegistry()
	surfaces := jobs.NewSurfaces(idleVideoService{}, gate, store, clock.NewManual(), jobs.NewMetrics(reg), jobs.Config{})
	t.Cleanup(surfaces.Close)

	srv := httptest.NewServer(setupRouter(server{
		store:    store,
		gate:     gate,
		surfaces: surfaces,
		gatherer: reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_BoardRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/board/notes", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST notes failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var note core.BoardItem
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/board/items/"+note.ID, strings.NewReader(`{"label":"todo"}`))
	req.Header.Set("Content-Type", "application/json")
	patchResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH failed: %v", err)
	}
	patchResp.Body.Close()
	if patchResp.StatusCode != http.StatusOK {
		t.Errorf("PATCH status mismatch: got %d, want %d", patchResp.StatusCode, http.StatusOK)
	}

	listResp, err := http.Get(srv.URL + "/api/board/items")
	if err != nil {
		t.Fatalf("GET items failed: %v", err)
	}
	defer listResp.Body.Close()
	var items []core.BoardItem
	if err := json.NewDecoder(listResp.Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(items) != 1 || items[0].Label != "todo" {
		t.Errorf("Items mismatch: got %+v", items)
	}
}

func TestRouter_VideoSurfaceAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/video/surfaces", "application/json", nil)
	if err != nil {
		t.Fatalf("POST surfaces failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics failed: %v", err)
	}
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if !strings.Contains(string(body), "moodboard_video_jobs_surfaces_open 1") {
		t.Errorf("metrics output missing open surface gauge:\n%s", body)
	}
}

func TestRouter_CORS(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://evil.example.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/board/items", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("OPTIONS failed: %v", err)
			}
			resp.Body.Close()

			got := resp.Header.Get("Access-Control-Allow-Origin") == tc.origin
			if got != tc.allow {
				t.Errorf("CORS mismatch for %s: allowed=%v, want %v", tc.origin, got, tc.allow)
			}
		})
	}
}
