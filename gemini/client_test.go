package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"moodboard-server/core"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *KeyGate) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gate := NewKeyGate("test-key")
	return NewClient(Config{BaseURL: server.URL}, gate, server.Client()), gate
}

func TestClientSubmit(t *testing.T) {
	var got predictRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method mismatch: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1beta/models/"+DefaultVideoModel+":predictLongRunning" {
			t.Errorf("Path mismatch: got %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("API key header mismatch: got %q", r.Header.Get("x-goog-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		w.Write([]byte(`{"name":"models/veo/operations/op-1"}`))
	})

	handle, err := client.Submit(context.Background(), core.VideoRequest{
		Prompt:      "sunset",
		Image:       &core.InlineImage{Data: []byte("png"), MimeType: "image/png"},
		AspectRatio: core.AspectPortrait,
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if handle != "models/veo/operations/op-1" {
		t.Errorf("Handle mismatch: got %q", handle)
	}

	if len(got.Instances) != 1 || got.Instances[0].Prompt != "sunset" {
		t.Fatalf("Instances mismatch: got %+v", got.Instances)
	}
	img := got.Instances[0].Image
	if img == nil || img.MimeType != "image/png" || img.BytesBase64Encoded != base64.StdEncoding.EncodeToString([]byte("png")) {
		t.Errorf("Image mismatch: got %+v", img)
	}
	if got.Parameters.AspectRatio != core.AspectPortrait || got.Parameters.Resolution != DefaultResolution {
		t.Errorf("Parameters mismatch: got %+v", got.Parameters)
	}
}

func TestClientSubmitAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	})

	_, err := client.Submit(context.Background(), core.VideoRequest{Prompt: "sunset"})
	if err == nil {
		t.Fatal("Submit() should fail")
	}
	if core.ClassifySubmit(err).Kind != core.KindAuth {
		t.Errorf("Submit() error should classify as auth, got %v", err)
	}
}

func TestClientCheck(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantDone bool
		wantRef  string
		wantKind core.ErrorKind
	}{
		{"pending", `{"name":"op","done":false}`, false, "", ""},
		{"done", `{"name":"op","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v1?alt=media"}}]}}}`, true, "https://files/v1?alt=media", ""},
		{"done without samples", `{"name":"op","done":true,"response":{"generateVideoResponse":{}}}`, true, "", ""},
		{"operation error", `{"name":"op","done":true,"error":{"code":3,"message":"prompt rejected"}}`, false, "", core.KindGeneration},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1beta/models/veo/operations/op-1" {
					t.Errorf("Path mismatch: got %s", r.URL.Path)
				}
				w.Write([]byte(tc.body))
			})

			status, err := client.Check(context.Background(), "models/veo/operations/op-1")
			if tc.wantKind != "" {
				if core.KindOf(err) != tc.wantKind {
					t.Errorf("Check() error kind mismatch: got %q, want %q", core.KindOf(err), tc.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if status.Done != tc.wantDone || status.ResultRef != tc.wantRef {
				t.Errorf("Status mismatch: got %+v", status)
			}
		})
	}
}

func TestClientFetch(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("B1"))
	})

	data, mimeType, err := client.Fetch(context.Background(), client.cfg.BaseURL+"/v1beta/files/abc:download?alt=media")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if string(data) != "B1" || mimeType != "video/mp4" {
		t.Errorf("Fetch() mismatch: got %q %q", data, mimeType)
	}
	if !strings.Contains(gotQuery, "alt=media") || !strings.Contains(gotQuery, "key=test-key") {
		t.Errorf("Query mismatch: got %q", gotQuery)
	}
}

func TestClientFetchFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, _, err := client.Fetch(context.Background(), client.cfg.BaseURL+"/v1beta/files/abc")
	if err == nil || !strings.Contains(err.Error(), "Forbidden") {
		t.Errorf("Fetch() error mismatch: got %v", err)
	}
}

func TestKeyGate(t *testing.T) {
	ctx := context.Background()

	gate := NewKeyGate("env-key")
	if !gate.HasSelected(ctx) {
		t.Fatal("configured key should start selected")
	}

	gate.Invalidate()
	if gate.HasSelected(ctx) || gate.Key() != "" {
		t.Error("Invalidate() should deselect the key")
	}

	if err := gate.Select(ctx, ""); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if gate.Key() != "env-key" {
		t.Errorf("Key mismatch: got %q, want %q", gate.Key(), "env-key")
	}

	if err := gate.Select(ctx, " user-key "); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if gate.Key() != "user-key" {
		t.Errorf("Key mismatch: got %q, want %q", gate.Key(), "user-key")
	}

	empty := NewKeyGate("")
	if empty.HasSelected(ctx) {
		t.Error("gate without a key should not be selected")
	}
	if core.KindOf(empty.Select(ctx, "")) != core.KindValidation {
		t.Error("Select() without any key should be a validation error")
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback")
	t.Setenv("GEMINI_BASE_URL", "")
	t.Setenv("GEMINI_VIDEO_MODEL", "")

	cfg := ConfigFromEnv()
	if cfg.APIKey != "fallback" {
		t.Errorf("APIKey mismatch: got %q, want %q", cfg.APIKey, "fallback")
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.VideoModel != DefaultVideoModel {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
