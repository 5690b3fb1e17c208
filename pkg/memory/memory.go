package memory

import "sync"

// Memory is a bounded history. Once full, storing drops the oldest entry.
type Memory[T any] struct {
	entries  []T
	capacity int
	mu       sync.RWMutex
}

func NewMemory[T any](capacity int) *Memory[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// GetAll returns a copy of every entry, oldest first
func (m *Memory[T]) GetAll() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.entries))
	copy(out, m.entries)
	return out
}

// Last returns a copy of the n most recent entries, oldest first
func (m *Memory[T]) Last(n int) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.entries) {
		n = len(m.entries)
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	copy(out, m.entries[len(m.entries)-n:])
	return out
}

func (m *Memory[T]) Store(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, v)
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory[T]) Capacity() int {
	return m.capacity
}

// Clear drops every entry but keeps the capacity
func (m *Memory[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
}
