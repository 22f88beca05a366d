package media

import (
	"context"
	"encoding/json"
	"moodboard-server/stores/memory"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHandleGet_Success(t *testing.T) {
	store := memory.NewMediaStore()
	locator, err := store.Put(context.Background(), []byte("B1"), "video/mp4")
	if err != nil {
		t.Fatalf("Failed to store media: %v", err)
	}
	id := strings.TrimPrefix(locator, memory.MediaPathPrefix)

	req := httptest.NewRequest(http.MethodGet, locator, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	HandleGet(store)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "B1" {
		t.Errorf("Body mismatch: got %q, want %q", rec.Body.String(), "B1")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type mismatch: got %q, want %q", ct, "video/mp4")
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/media/missing", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	HandleGet(memory.NewMediaStore())(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUpload(t *testing.T) {
	store := memory.NewMediaStore()

	req := httptest.NewRequest(http.MethodPost, "/api/media", strings.NewReader("png-bytes"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()

	HandleUpload(store)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	m, err := store.Open(context.Background(), strings.TrimPrefix(resp.Locator, memory.MediaPathPrefix))
	if err != nil {
		t.Fatalf("Uploaded media not found: %v", err)
	}
	if string(m.Data) != "png-bytes" || m.MimeType != "image/png" {
		t.Errorf("Stored media mismatch: got %q %q", m.Data, m.MimeType)
	}
}

func TestHandleUpload_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"wrong type", "application/pdf", "pdf"},
		{"empty body", "image/png", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/media", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()

			HandleUpload(memory.NewMediaStore())(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
