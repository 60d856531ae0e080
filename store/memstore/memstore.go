// Package memstore keeps cache archives in process memory.
package memstore

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store is a concurrency-safe in-memory object store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func objectKey(key, name string) string {
	return key + "/" + name
}

// HeadObject reports whether an archive is stored under key and name.
func (s *Store) HeadObject(ctx context.Context, key, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[objectKey(key, name)]
	return ok, nil
}

// PutObject stores body under key and name, replacing any earlier entry.
// It fails when body does not yield exactly size bytes.
func (s *Store) PutObject(ctx context.Context, key, name string, body io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", key, name, err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("read %s/%s: got %d bytes, want %d", key, name, len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(key, name)] = data
	return nil
}

// Get returns a copy of a stored archive.
func (s *Store) Get(key, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKey(key, name)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len returns the number of stored archives.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
