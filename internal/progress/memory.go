package progress

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store, used when no shared storage is needed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Entry)}
}

func (s *MemoryStore) Reset(_ context.Context, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, variant)
	return nil
}

func (s *MemoryStore) Append(_ context.Context, variant string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.records[variant]
	if len(entries) > 0 {
		if err := checkOrder(entries[len(entries)-1], true, e); err != nil {
			return err
		}
	}
	s.records[variant] = append(entries, e)
	return nil
}

func (s *MemoryStore) Read(_ context.Context, variant string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Record{Variant: variant, Entries: slices.Clone(s.records[variant])}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
