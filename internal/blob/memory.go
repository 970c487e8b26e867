package blob

import (
	"sort"
	"sync"
)

// Memory is an in-memory Store. Used by tests and the scenario harness,
// where isolation matters more than durability.
type Memory struct {
	mu   sync.RWMutex
	kv   map[string]map[string][]byte
	logs map[string][][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		kv:   make(map[string]map[string][]byte),
		logs: make(map[string][][]byte),
	}
}

// Put stores value under (ns, key).
func (m *Memory) Put(ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.kv[ns] == nil {
		m.kv[ns] = make(map[string][]byte)
	}
	m.kv[ns][key] = clone(value)
	return nil
}

// Get returns the value under (ns, key).
func (m *Memory) Get(ns, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.kv[ns][key]
	if !ok {
		return nil, false, nil
	}
	return clone(value), true, nil
}

// Delete removes (ns, key).
func (m *Memory) Delete(ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv[ns], key)
	return nil
}

// Scan visits every pair in ns in ascending key order.
func (m *Memory) Scan(ns string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.kv[ns]))
	for k := range m.kv[ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][]byte, len(keys))
	for i, k := range keys {
		pairs[i] = clone(m.kv[ns][k])
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if err := fn(k, pairs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Append adds value to the end of the ns log.
func (m *Memory) Append(ns string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[ns] = append(m.logs[ns], clone(value))
	return uint64(len(m.logs[ns]) - 1), nil
}

// Read returns the log value at index.
func (m *Memory) Read(ns string, index uint64) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.logs[ns]
	if index >= uint64(len(log)) {
		return nil, false, nil
	}
	return clone(log[index]), true, nil
}

// Reset discards every log record in ns.
func (m *Memory) Reset(ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.logs, ns)
	return nil
}

// Len returns the number of log records in ns.
func (m *Memory) Len(ns string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.logs[ns])), nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error {
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
