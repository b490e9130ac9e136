package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process backend. It keeps the JSON of every record and
// assigns sequential ids.
type Memory struct {
	mu      sync.Mutex
	seq     int
	seqs    map[string]int
	records map[string]map[string]json.RawMessage

	// PerCollection numbers ids "1", "2", ... within each collection, so the
	// same id can name records of two collections.
	PerCollection bool

	// Fail, when set, is consulted before every call; a non-nil error is
	// returned as-is and nothing is stored.
	Fail func(op, collection, id string) error

	// Calls records every accepted call as "op collection/id".
	Calls []string
}

func NewMemory() *Memory {
	return &Memory{
		seqs:    make(map[string]int),
		records: make(map[string]map[string]json.RawMessage),
	}
}

func (m *Memory) Create(_ context.Context, collection string, record any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("create", collection, ""); err != nil {
		return "", err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	id := m.nextID(collection)
	if m.records[collection] == nil {
		m.records[collection] = make(map[string]json.RawMessage)
	}
	m.records[collection][id] = raw
	m.Calls = append(m.Calls, "create "+collection+"/"+id)
	return id, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, record any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("update", collection, id); err != nil {
		return err
	}
	if _, ok := m.records[collection][id]; !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.records[collection][id] = raw
	m.Calls = append(m.Calls, "update "+collection+"/"+id)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("delete", collection, id); err != nil {
		return err
	}
	delete(m.records[collection], id)
	m.Calls = append(m.Calls, "delete "+collection+"/"+id)
	return nil
}

// Count returns how many records a collection holds.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[collection])
}

// Record returns the stored JSON for one record.
func (m *Memory) Record(collection, id string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.records[collection][id]
	return raw, ok
}

func (m *Memory) nextID(collection string) string {
	if m.PerCollection {
		m.seqs[collection]++
		return strconv.Itoa(m.seqs[collection])
	}
	m.seq++
	return fmt.Sprintf("rm-%04d", m.seq)
}

func (m *Memory) fail(op, collection, id string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, collection, id)
}
