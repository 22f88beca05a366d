package gemini

import (
	"context"
	"moodboard-server/core"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// KeyGate holds the API key video generation runs with. A key starts out selected when
// one is configured; an auth failure deselects it until a key is selected again.
type KeyGate struct {
	mu       sync.RWMutex
	fallback string
	key      string
	selected bool
}

func NewKeyGate(configured string) *KeyGate {
	configured = strings.TrimSpace(configured)
	return &KeyGate{
		fallback: configured,
		key:      configured,
		selected: configured != "",
	}
}

func (g *KeyGate) HasSelected(ctx context.Context) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selected && g.key != ""
}

// Select makes credential the active key. An empty credential reselects the configured
// key, if there is one.
func (g *KeyGate) Select(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = g.fallback
	}
	if credential == "" {
		return core.Validation("An API key is required to generate videos.")
	}

	g.mu.Lock()
	g.key = credential
	g.selected = true
	g.mu.Unlock()

	logrus.Info("Video API key selected")
	return nil
}

func (g *KeyGate) Invalidate() {
	g.mu.Lock()
	g.selected = false
	g.mu.Unlock()

	logrus.Warn("Video API key rejected, a new key must be selected")
}

// Key returns the active key, or "" when none is selected.
func (g *KeyGate) Key() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.selected {
		return ""
	}
	return g.key
}
