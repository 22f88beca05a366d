// Package canvas implements direct manipulation of items on the freeform moodboard
// surface: pointer presses start drag or resize sessions, pointer moves become
// id-addressed geometry patches, pointer-up ends the session.
package canvas

import (
	"context"
	"errors"
	"moodboard-server/core"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrSessionActive = errors.New("an interaction session is already active for this item")
	ErrEngineClosed  = errors.New("canvas engine has been torn down")
)

// ItemStore is the part of the board the engine needs. The engine never holds item
// references; it reads geometry at pointer-down and writes patches by id.
type ItemStore interface {
	Get(ctx context.Context, id string) (core.BoardItem, error)
	Update(ctx context.Context, id string, patch core.ItemPatch) (core.BoardItem, bool, error)
}

// PatchObserver is told about every patch the engine applied.
type PatchObserver func(item core.BoardItem, removed bool)

// Engine owns the interaction sessions of one surface.
type Engine struct {
	items ItemStore
	bus   *PointerBus

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*activeSession
	observer PatchObserver
	closed   bool
}

type activeSession struct {
	*Session
	unsubscribe func()
}

func NewEngine(items ItemStore, bus *PointerBus) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		items:    items,
		bus:      bus,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*activeSession),
	}
}

func (e *Engine) OnPatch(fn PatchObserver) {
	e.mu.Lock()
	e.observer = fn
	e.mu.Unlock()
}

// PointerDown starts a drag (RegionBody) or resize (RegionHandle) session for itemID,
// anchored at p and at the item's current geometry. The session listens on the bus
// until the next pointer-up.
func (e *Engine) PointerDown(ctx context.Context, itemID string, region Region, p core.Point) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if _, busy := e.sessions[itemID]; busy {
		e.mu.Unlock()
		return ErrSessionActive
	}
	e.mu.Unlock()

	item, err := e.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	session, err := NewSession(itemID, region, p, item.GeometryOrDefault())
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if _, busy := e.sessions[itemID]; busy {
		return ErrSessionActive
	}

	active := &activeSession{Session: session}
	e.sessions[itemID] = active
	active.unsubscribe = e.bus.Subscribe(func(ev PointerEvent) { e.handle(active, ev) })

	logrus.WithFields(logrus.Fields{
		"item_id": itemID,
		"mode":    session.Mode.String(),
	}).Debug("Interaction session started")
	return nil
}

// Mode reports the interaction state of itemID.
func (e *Engine) Mode(itemID string) Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[itemID]; ok {
		return s.Mode
	}
	return Idle
}

// Active returns the number of running sessions.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Teardown ends every session and removes their listeners. The engine accepts no
// further pointer-downs.
func (e *Engine) Teardown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sessions := e.sessions
	e.sessions = make(map[string]*activeSession)
	e.mu.Unlock()

	for _, s := range sessions {
		s.unsubscribe()
	}
	e.cancel()
}

func (e *Engine) handle(s *activeSession, ev PointerEvent) {
	switch ev.Type {
	case PointerUp:
		e.end(s)
	case PointerMove:
		if !e.current(s) {
			return
		}
		item, removed, err := e.items.Update(e.ctx, s.ItemID, s.PatchFor(ev.Point))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"item_id": s.ItemID,
				"error":   err,
			}).Warn("Failed to apply geometry patch, ending session")
			e.end(s)
			return
		}
		if removed {
			e.end(s)
		}

		e.mu.Lock()
		observer := e.observer
		e.mu.Unlock()
		if observer != nil {
			observer(item, removed)
		}
	}
}

func (e *Engine) current(s *activeSession) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[s.ItemID] == s
}

func (e *Engine) end(s *activeSession) {
	s.unsubscribe()

	e.mu.Lock()
	if e.sessions[s.ItemID] == s {
		delete(e.sessions, s.ItemID)
	}
	e.mu.Unlock()
}
