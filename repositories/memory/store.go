package memory

import (
	// Go Internal Packages
	"context"
	"sort"
	"sync"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
)

// Store keeps entities by value so callers never share memory with the
// stored row, mirroring a database round trip.
type Store[E any, P interface {
	*E
	models.Entity
}] struct {
	mu    sync.RWMutex
	items map[string]E
	// Err, when set, is returned by every call to simulate an unavailable store.
	Err error
}

func NewStore[E any, P interface {
	*E
	models.Entity
}]() *Store[E, P] {
	return &Store[E, P]{items: make(map[string]E)}
}

func (s *Store[E, P]) Create(_ context.Context, entity P) (P, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, errors.PersistenceErr("create", s.Err)
	}
	if _, ok := s.items[entity.EntityID()]; ok {
		return nil, errors.ErrDuplicate
	}
	s.items[entity.EntityID()] = *entity
	return clone[E, P](*entity), nil
}

// Update writes entity only while the stored state still equals from.
func (s *Store[E, P]) Update(_ context.Context, entity P, from models.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, errors.PersistenceErr("update", s.Err)
	}
	current, ok := s.items[entity.EntityID()]
	if !ok || P(&current).CurrentState() != from {
		return false, nil
	}
	s.items[entity.EntityID()] = *entity
	return true, nil
}

func (s *Store[E, P]) GetByID(_ context.Context, id string) (P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, errors.PersistenceErr("get", s.Err)
	}
	v, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return clone[E, P](v), nil
}

func (s *Store[E, P]) GetByExternalID(ctx context.Context, externalID string) (P, error) {
	return s.FindOne(ctx, func(p P) bool { return p.ExternalRef() == externalID })
}

// ListByState returns up to limit entities in state last updated before t,
// oldest first.
func (s *Store[E, P]) ListByState(ctx context.Context, state models.State, before time.Time, limit int) ([]P, error) {
	out, err := s.Find(ctx, func(p P) bool {
		return p.CurrentState() == state && p.LastUpdate().Before(before)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdate().Before(out[j].LastUpdate()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store[E, P]) FindOne(ctx context.Context, match func(P) bool) (P, error) {
	found, err := s.Find(ctx, match)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func (s *Store[E, P]) Find(_ context.Context, match func(P) bool) ([]P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, errors.PersistenceErr("find", s.Err)
	}
	var out []P
	for _, v := range s.items {
		if p := clone[E, P](v); match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out, nil
}

func (s *Store[E, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func clone[E any, P interface {
	*E
	models.Entity
}](v E) P {
	cp := v
	return P(&cp)
}
