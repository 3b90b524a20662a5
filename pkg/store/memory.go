package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps saved candidates in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Saved
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Saved), now: time.Now}
}

func (m *MemoryStore) Save(ctx context.Context, s Saved) (Saved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev *Saved
	if p, ok := m.items[Key(s.Username)]; ok {
		prev = &p
	}
	s, err := prepare(s, prev, m.now())
	if err != nil {
		return Saved{}, err
	}
	m.items[Key(s.Username)] = s
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, username string) (Saved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[Key(username)]
	if !ok {
		return Saved{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Saved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Saved, 0, len(m.items))
	for _, s := range m.items {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	sortNewest(out)
	return out, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, username string, st Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[Key(username)]
	if !ok {
		return ErrNotFound
	}
	s.Status = st
	s.UpdatedAt = m.now()
	m.items[Key(username)] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[Key(username)]; !ok {
		return ErrNotFound
	}
	delete(m.items, Key(username))
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
