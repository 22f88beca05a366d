package jobs

import (
	"fmt"
	"moodboard-server/clock"
	"moodboard-server/core"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Surfaces keeps one Poller per video surface. A surface is what a client has open
// while generating videos; tearing it down stops its polling for good.
type Surfaces struct {
	svc     core.VideoService
	gate    core.CredentialGate
	media   core.MediaStore
	sched   clock.Scheduler
	metrics *Metrics
	cfg     Config

	mu      sync.RWMutex
	pollers map[string]*Poller
}

func NewSurfaces(svc core.VideoService, gate core.CredentialGate, media core.MediaStore, sched clock.Scheduler, metrics *Metrics, cfg Config) *Surfaces {
	return &Surfaces{
		svc:     svc,
		gate:    gate,
		media:   media,
		sched:   sched,
		metrics: metrics,
		cfg:     cfg,
		pollers: make(map[string]*Poller),
	}
}

// Create opens a surface and returns its id.
func (s *Surfaces) Create() (string, *Poller) {
	id := ulid.Make().String()
	p := NewPoller(s.svc, s.gate, s.media, s.sched, s.metrics, s.cfg)
	p.log = p.log.WithField("surface_id", id)

	s.mu.Lock()
	s.pollers[id] = p
	s.mu.Unlock()

	s.metrics.surfaces(1)
	logrus.WithField("surface_id", id).Info("Video surface opened")
	return id, p
}

func (s *Surfaces) Get(id string) (*Poller, error) {
	s.mu.RLock()
	p, ok := s.pollers[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("surface with id %s %w", id, core.ErrNotFound)
	}
	return p, nil
}

// Teardown stops the surface's poller and forgets it.
func (s *Surfaces) Teardown(id string) error {
	s.mu.Lock()
	p, ok := s.pollers[id]
	delete(s.pollers, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("surface with id %s %w", id, core.ErrNotFound)
	}
	p.Teardown()
	s.metrics.surfaces(-1)
	logrus.WithField("surface_id", id).Info("Video surface torn down")
	return nil
}

// Close tears down every surface.
func (s *Surfaces) Close() {
	s.mu.Lock()
	pollers := s.pollers
	s.pollers = make(map[string]*Poller)
	s.mu.Unlock()

	for _, p := range pollers {
		p.Teardown()
		s.metrics.surfaces(-1)
	}
}

func (s *Surfaces) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pollers)
}
