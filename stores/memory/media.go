package memory

import (
	"context"
	"fmt"
	"moodboard-server/core"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// MediaPathPrefix is the locator prefix under which stored media is served.
const MediaPathPrefix = "/media/"

type mediaStore struct {
	mu    sync.RWMutex
	media map[string]core.Media
}

func NewMediaStore() core.MediaStore {
	return &mediaStore{
		media: make(map[string]core.Media),
	}
}

// Put keeps data for the lifetime of the process and returns the locator it is served under.
func (s *mediaStore) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", core.Generation("media payload is empty")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id := ulid.Make().String()
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.media[id] = core.Media{ID: id, MimeType: mimeType, Data: buf}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"media_id":    id,
		"mime_type":   mimeType,
		"data_length": len(buf),
	}).Info("Media stored successfully")

	return MediaPathPrefix + id, nil
}

func (s *mediaStore) Open(ctx context.Context, id string) (*core.Media, error) {
	s.mu.RLock()
	m, ok := s.media[id]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("media_id", id).Warn("Media with specified ID not found")
		return nil, fmt.Errorf("media with id %s %w", id, core.ErrNotFound)
	}
	return &m, nil
}
