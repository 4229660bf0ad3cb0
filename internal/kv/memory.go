package kv

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process area. Nothing survives a restart.
type Memory struct {
	lock   sync.Mutex
	values map[string][]byte
}

// NewMemory instantiates and returns a new memory area.
func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}}
}

// Get implements the Area interface.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(value), nil
}

// Set implements the Area interface.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.values[key] = slices.Clone(value)
	return nil
}

// Remove implements the Area interface.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.values, key)
	return nil
}

// Update implements the Area interface. fn runs under the area lock, so it never conflicts.
func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	value, found := m.values[key]
	newValue, err := fn(slices.Clone(value), found)
	if err != nil {
		return err
	}
	m.values[key] = slices.Clone(newValue)
	return nil
}

// Close implements the Area interface.
func (m *Memory) Close() error { return nil }
