// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to count or fail saves

package store

import (
	"bytes"
	"context"
	"sync"
)

// MockStore is an in-memory Store and SecretsStore implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	collections map[string][]byte
	secrets     map[string]string
	saves       map[string]int
	saveErr     error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		collections: make(map[string][]byte),
		secrets:     make(map[string]string),
		saves:       make(map[string]int),
	}
}

// SaveCollection stores a copy of payload under key.
func (m *MockStore) SaveCollection(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	// Make a copy to avoid external modification
	m.collections[key] = bytes.Clone(payload)
	m.saves[key]++
	return nil
}

// LoadCollection returns a copy of the payload stored under key.
func (m *MockStore) LoadCollection(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.collections[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(payload), nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// SetSecret stores value under key.
func (m *MockStore) SetSecret(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.secrets[key] = value
	return nil
}

// GetSecret returns the value stored under key.
func (m *MockStore) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.secrets[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// DeleteSecret removes the value stored under key.
func (m *MockStore) DeleteSecret(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.secrets[key]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, key)
	return nil
}

// SaveCount returns how many successful saves were made under key.
func (m *MockStore) SaveCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[key]
}

// FailSaves makes every later save return err. Pass nil to recover.
func (m *MockStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
