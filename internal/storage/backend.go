// Package storage persists the credential document. Every backend stores the
// whole user-id keyed mapping as a single value.
package storage

import (
	"context"
	"sync"
)

// Backend is durable storage for one opaque document
type Backend interface {
	// Load returns the stored document, or nil when nothing has been saved yet
	Load(ctx context.Context) ([]byte, error)
	// Save atomically replaces the stored document
	Save(ctx context.Context, data []byte) error
	Close() error
}

// HealthChecker is implemented by stores that can report reachability
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Health checks the backend when it supports it; backends without a remote are always healthy
func Health(ctx context.Context, backend Backend) error {
	if hc, ok := backend.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// MemoryBackend keeps the document in process memory. Used for tests and development.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
