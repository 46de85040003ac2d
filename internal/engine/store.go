package engine

import (
	"errors"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
)

// ErrDraftExists is returned when a store already holds a draft under the same id
var ErrDraftExists = errors.New("draft already exists")

// Store holds the live drafts of this process
type Store interface {
	Put(d *draft.Draft) error
	Get(id string) (*draft.Draft, bool)
	Delete(id string) bool
	List() []*draft.Draft
}

// MemoryStore is a Store backed by a map
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]*draft.Draft
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]*draft.Draft)}
}

func (s *MemoryStore) Put(d *draft.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[d.ID()]; ok {
		return ErrDraftExists
	}
	s.drafts[d.ID()] = d
	return nil
}

func (s *MemoryStore) Get(id string) (*draft.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	return d, ok
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drafts[id]
	delete(s.drafts, id)
	return ok
}

// List returns drafts oldest first
func (s *MemoryStore) List() []*draft.Draft {
	s.mu.RLock()
	out := make([]*draft.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CreatedAt(), out[j].CreatedAt()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
