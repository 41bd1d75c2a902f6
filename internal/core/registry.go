package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]*Schema)
	registryMu sync.RWMutex
)

// Register adds a schema to the registry.
// Panics if the schema is invalid or a schema with the same name is already registered.
func Register(s Schema) {
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("invalid schema: %v", err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Name]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.Name))
	}

	registry[s.Name] = &s
}

// Get returns a schema by name.
// Returns false if not found.
func Get(name string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[name]
	return s, ok
}

// Lookup returns a schema by name or an error wrapping ErrUnknownSchema.
func Lookup(name string) (*Schema, error) {
	s, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// All returns all registered schemas sorted by name.
func All() []*Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*Schema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Names returns the registered schema names, sorted.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Schema)
}
