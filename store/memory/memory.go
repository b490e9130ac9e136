// Package memory provides an in-process store.Collections.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	updated  map[string]time.Time

	// Now stamps writes; time.Now when nil.
	Now func() time.Time

	// FailPut makes every write fail with the returned error when set.
	// Used by tests exercising persistence failures.
	FailPut func(key string) error
}

func New() *Memory {
	return &Memory{payloads: make(map[string][]byte), updated: make(map[string]time.Time)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payloads[key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(p), nil
}

func (m *Memory) Put(ctx context.Context, key string, payload []byte) error {
	return m.PutMany(ctx, map[string][]byte{key: payload})
}

// PutMany checks every key before writing any, so a failing key leaves
// the others untouched.
func (m *Memory) PutMany(_ context.Context, payloads map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPut != nil {
		for k := range payloads {
			if err := m.FailPut(k); err != nil {
				return err
			}
		}
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	at := now().UTC()
	for k, p := range payloads {
		m.payloads[k] = slices.Clone(p)
		m.updated[k] = at
	}
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.payloads))
	for k := range m.payloads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) UpdatedAt(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	at, ok := m.updated[key]
	return at, ok, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.payloads)
	clear(m.updated)
	return nil
}
