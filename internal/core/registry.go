package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]EntitySchema)
	registryMu sync.RWMutex
)

// Register adds an entity schema to the registry.
// Panics if an entity with the same name is already registered or the schema
// has no fields.
func Register(schema EntitySchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[schema.Name]; exists {
		panic(fmt.Sprintf("entity already registered: %s", schema.Name))
	}
	if len(schema.Fields) == 0 {
		panic(fmt.Sprintf("entity %s has no fields", schema.Name))
	}

	if schema.Label == "" {
		schema.Label = schema.Name
	}

	registry[schema.Name] = schema
}

// Get returns an entity schema by name.
// Returns false if not found.
func Get(name string) (EntitySchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	schema, ok := registry[name]
	return schema, ok
}

// Lookup is Get with a FatalError for unknown names.
func Lookup(name string) (EntitySchema, error) {
	schema, ok := Get(name)
	if !ok {
		return EntitySchema{}, NewFatalError(CodeUnknownEntity, name, "lookup", ErrUnknownEntity)
	}
	return schema, nil
}

// All returns all registered entity schemas.
// Sorted by position then by name for consistent ordering.
func All() []EntitySchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntitySchema, 0, len(registry))
	for _, schema := range registry {
		result = append(result, schema)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// Names returns the registered entity names in run order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, schema := range all {
		names[i] = schema.Name
	}
	return names
}

// EntityCount returns the number of registered entities.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntitySchema)
}
