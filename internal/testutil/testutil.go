// Package testutil provides fakes and helpers shared by buildcache tests.
package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// WriteFiles creates each file under dir with its own relative path as
// content. Parent directories are created as needed.
func WriteFiles(tb testing.TB, dir string, files ...string) {
	tb.Helper()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			tb.Fatalf("create parent of %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(f), 0o644); err != nil {
			tb.Fatalf("write %s: %v", p, err)
		}
	}
}

// SpyBuilder records Build calls. When BuildFunc is nil it writes Content to
// the destination.
type SpyBuilder struct {
	mu        sync.Mutex
	calls     int
	dsts      []string
	Content   []byte
	BuildFunc func(ctx context.Context, spec []string, dst string) (int64, error)
}

// Build implements buildcache.Builder.
func (s *SpyBuilder) Build(ctx context.Context, spec []string, dst string) (int64, error) {
	s.mu.Lock()
	s.calls++
	s.dsts = append(s.dsts, dst)
	s.mu.Unlock()

	if s.BuildFunc != nil {
		return s.BuildFunc(ctx, spec, dst)
	}
	if err := os.WriteFile(dst, s.Content, 0o600); err != nil {
		return 0, err
	}
	return int64(len(s.Content)), nil
}

// Calls returns the number of Build calls.
func (s *SpyBuilder) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Dsts returns the destination paths passed to Build.
func (s *SpyBuilder) Dsts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dsts...)
}

// PutCall records one PutObject call.
type PutCall struct {
	Key  string
	Name string
	Size int64
	Data []byte
}

// MockStore implements buildcache.ObjectStore with overridable behavior.
//
// Without HeadFunc every entry is absent. Without PutFunc uploads succeed.
// Uploaded bodies are always drained and recorded.
type MockStore struct {
	mu       sync.Mutex
	heads    int
	puts     []PutCall
	HeadFunc func(ctx context.Context, key, name string) (bool, error)
	PutFunc  func(ctx context.Context, key, name string, size int64) error
}

// HeadObject implements buildcache.ObjectStore.
func (m *MockStore) HeadObject(ctx context.Context, key, name string) (bool, error) {
	m.mu.Lock()
	m.heads++
	m.mu.Unlock()
	if m.HeadFunc != nil {
		return m.HeadFunc(ctx, key, name)
	}
	return false, nil
}

// PutObject implements buildcache.ObjectStore.
func (m *MockStore) PutObject(ctx context.Context, key, name string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.puts = append(m.puts, PutCall{Key: key, Name: name, Size: size, Data: data})
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, name, size)
	}
	return nil
}

// HeadCalls returns the number of HeadObject calls.
func (m *MockStore) HeadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heads
}

// Puts returns the recorded PutObject calls.
func (m *MockStore) Puts() []PutCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PutCall(nil), m.puts...)
}
