// In-memory Store backend.
//
// Keys live in a compressed radix tree so prefix listing is O(prefix + k)
// rather than a full scan. Suitable for tests and single-process runs;
// data is lost when the process terminates.
package artifact

import (
	"context"
	"sync"

	radix "github.com/armon/go-radix"
)

// MemoryStore implements Store with a map for blobs and a radix tree for
// prefix listing. Thread-safe via RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	keys  *radix.Tree
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		keys:  radix.New(),
	}
}

// Write stores a copy of data under key, overwriting any previous value.
func (s *MemoryStore) Write(ctx context.Context, key string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = copied
	s.keys.Insert(key, struct{}{})
	return nil
}

// Read returns a copy of the blob for key, or ErrNotFound.
func (s *MemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// List returns all keys under prefix via radix-tree walk.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	s.keys.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys, nil
}

// Close releases in-memory state.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = nil
	s.keys = radix.New()
	return nil
}
