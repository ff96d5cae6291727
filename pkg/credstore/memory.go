package credstore

import (
	"bytes"
	"context"
	"sync"
)

// MemoryBackend keeps the record in process memory. Nothing survives a
// restart; useful for tests and throwaway sessions.
type MemoryBackend struct {
	mu  sync.Mutex
	rec Record
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.rec
	rec.Identity = bytes.Clone(m.rec.Identity)
	return rec, nil
}

func (m *MemoryBackend) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Identity = bytes.Clone(rec.Identity)
	m.rec = rec
	return nil
}

func (m *MemoryBackend) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec = Record{}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
