package catalog

import (
	"context"
	"sync"
)

// MemStore keeps the last saved snapshot in process memory.
type MemStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

// NewSeededMemStore starts with the given books already saved.
func NewSeededMemStore(books ...Book) *MemStore {
	return &MemStore{snap: Snapshot{Books: cloneBooks(books)}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{Books: cloneBooks(s.snap.Books), Sales: cloneSales(s.snap.Sales)}, nil
}

func (s *MemStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Snapshot{Books: cloneBooks(snap.Books), Sales: cloneSales(snap.Sales)}
	return nil
}
