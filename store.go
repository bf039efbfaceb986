// store.go: the persistence contract for STORE slots.
package scripting

import (
	"context"
	"sync"
)

// StoreKey addresses a single STORE slot. Slots are namespaced per script so
// two scripts can use the same store name without colliding.
type StoreKey struct {
	ScriptName string
	StoreName  string
}

// PersistentStore is the host-side persistence adapter for STORE values.
//
// ReadValues returns the values it has for the requested keys; keys it does
// not know may simply be absent from the result (the executor seeds those
// from the declarations' initial values). StoreValues replaces the values for
// every key in the map and is called at most once per execution, after all
// statements succeeded.
type PersistentStore interface {
	ReadValues(ctx context.Context, keys map[StoreKey]struct{}) (map[StoreKey]Value, error)
	StoreValues(ctx context.Context, values map[StoreKey]Value) error
}

// AlwaysEmptyStore never has values and discards writes. Useful for one-shot
// evaluation where persistence is unwanted.
type AlwaysEmptyStore struct{}

func (AlwaysEmptyStore) ReadValues(context.Context, map[StoreKey]struct{}) (map[StoreKey]Value, error) {
	return nil, nil
}

func (AlwaysEmptyStore) StoreValues(context.Context, map[StoreKey]Value) error {
	return nil
}

// MemoryStore keeps store values in memory. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[StoreKey]Value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[StoreKey]Value)}
}

func (m *MemoryStore) ReadValues(_ context.Context, keys map[StoreKey]struct{}) (map[StoreKey]Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[StoreKey]Value, len(keys))
	for key := range keys {
		if value, ok := m.values[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (m *MemoryStore) StoreValues(_ context.Context, values map[StoreKey]Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range values {
		m.values[key] = value
	}
	return nil
}

// Get returns the stored value for a key, if any.
func (m *MemoryStore) Get(key StoreKey) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok
}

// Snapshot copies the current contents.
func (m *MemoryStore) Snapshot() map[StoreKey]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[StoreKey]Value, len(m.values))
	for key, value := range m.values {
		snapshot[key] = value
	}
	return snapshot
}
