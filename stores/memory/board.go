package memory

import (
	"context"
	"fmt"
	"moodboard-server/core"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type boardStore struct {
	mu    sync.RWMutex
	items []core.BoardItem
}

func NewBoardStore() core.BoardStore {
	return &boardStore{}
}

func (s *boardStore) Append(ctx context.Context, item core.BoardItem) (core.BoardItem, error) {
	if !item.Kind.Valid() {
		return core.BoardItem{}, core.Validation(fmt.Sprintf("unknown item kind %q", item.Kind))
	}
	if core.BlankText(item.Content) {
		return core.BoardItem{}, core.Validation("item content is required")
	}
	if item.Geometry != nil {
		g := *item.Geometry
		g.Size = core.ClampSize(g.Size)
		item.Geometry = &g
	}

	s.mu.Lock()
	if item.ID == "" {
		item.ID = ulid.Make().String()
	} else if s.indexOf(item.ID) >= 0 {
		s.mu.Unlock()
		return core.BoardItem{}, core.Validation(fmt.Sprintf("item with id %s already exists", item.ID))
	}
	s.items = append(s.items, item)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"item_id": item.ID,
		"kind":    item.Kind,
	}).Info("Board item appended")

	return copyItem(item), nil
}

func (s *boardStore) Get(ctx context.Context, id string) (core.BoardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.BoardItem{}, notFound(id)
	}
	return copyItem(s.items[i]), nil
}

func (s *boardStore) List(ctx context.Context) ([]core.BoardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]core.BoardItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, copyItem(item))
	}
	return items, nil
}

func (s *boardStore) Update(ctx context.Context, id string, patch core.ItemPatch) (core.BoardItem, bool, error) {
	log := logrus.WithField("item_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		log.Warn("Board item with specified ID not found")
		return core.BoardItem{}, false, notFound(id)
	}

	item := copyItem(s.items[i])
	if patch.Content != nil {
		if item.Kind == core.KindText && core.BlankText(*patch.Content) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			log.Info("Empty text item removed")
			return item, true, nil
		}
		if core.BlankText(*patch.Content) {
			return core.BoardItem{}, false, core.Validation("item content is required")
		}
		item.Content = *patch.Content
	}
	if patch.Label != nil {
		item.Label = *patch.Label
	}
	if patch.Position != nil || patch.Size != nil {
		g := item.GeometryOrDefault()
		if patch.Position != nil {
			g.Position = *patch.Position
		}
		if patch.Size != nil {
			g.Size = core.ClampSize(*patch.Size)
		}
		item.Geometry = &g
	}

	s.items[i] = item
	log.Debug("Board item updated")
	return copyItem(item), false, nil
}

func (s *boardStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	logrus.WithField("item_id", id).Info("Board item removed")
	return nil
}

func (s *boardStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func copyItem(item core.BoardItem) core.BoardItem {
	if item.Geometry != nil {
		g := *item.Geometry
		item.Geometry = &g
	}
	return item
}

func notFound(id string) error {
	return fmt.Errorf("item with id %s %w", id, core.ErrNotFound)
}
