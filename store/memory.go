package store

import (
	"context"
	"sync"
)

// Memory keeps a document in process memory. It is safe for concurrent use.
//
// The document is held in its encoded form, so every Load returns a fresh
// deep copy and mutating a loaded value never changes what is stored.
type Memory[T any] struct {
	mu    sync.RWMutex
	data  []byte
	empty Empty[T]
	saves int
}

// NewMemory creates an empty in-memory document.
func NewMemory[T any](empty Empty[T]) *Memory[T] {
	return &Memory[T]{empty: empty}
}

// Load returns a copy of the stored document, or empty() if none was saved.
func (m *Memory[T]) Load(_ context.Context) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return m.empty(), nil
	}
	return decode(m.data, m.empty)
}

// Save replaces the stored document.
func (m *Memory[T]) Save(_ context.Context, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *Memory[T]) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
