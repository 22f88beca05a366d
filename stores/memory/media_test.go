package memory

import (
	"bytes"
	"context"
	"errors"
	"moodboard-server/core"
	"strings"
	"testing"
)

func TestMediaPutOpen(t *testing.T) {
	store := NewMediaStore()
	ctx := context.Background()

	payload := []byte("B1")
	locator, err := store.Put(ctx, payload, "video/mp4")
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if !strings.HasPrefix(locator, MediaPathPrefix) {
		t.Fatalf("Locator mismatch: got %q, want prefix %q", locator, MediaPathPrefix)
	}

	// Mutating the caller's buffer must not affect the stored copy
	payload[0] = 'X'

	media, err := store.Open(ctx, strings.TrimPrefix(locator, MediaPathPrefix))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if !bytes.Equal(media.Data, []byte("B1")) {
		t.Errorf("Data mismatch: got %q, want %q", media.Data, "B1")
	}
	if media.MimeType != "video/mp4" {
		t.Errorf("MimeType mismatch: got %q, want %q", media.MimeType, "video/mp4")
	}
}

func TestMediaPut_Empty(t *testing.T) {
	store := NewMediaStore()
	if _, err := store.Put(context.Background(), nil, "video/mp4"); err == nil {
		t.Error("Put() should reject an empty payload")
	}
}

func TestMediaOpen_NotFound(t *testing.T) {
	store := NewMediaStore()
	_, err := store.Open(context.Background(), "nonexistent-id")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Open() error mismatch: got %v, want ErrNotFound", err)
	}
}
