package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Backend persists string values by key. Implementations must be safe for
// concurrent use; no cross-key atomicity is expected.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryBackend keeps values in process memory.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete implements Backend. Missing keys are ignored.
func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Keys implements Backend. Keys are returned sorted.
func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// prefixed scopes another backend under a key prefix.
type prefixed struct {
	inner  Backend
	prefix string
}

// WithPrefix scopes a backend so several sessions can share it.
func WithPrefix(inner Backend, prefix string) Backend {
	if prefix == "" {
		return inner
	}
	return prefixed{inner: inner, prefix: prefix}
}

func (p prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p prefixed) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = p.prefix + key
	}
	return p.inner.Delete(ctx, full...)
}

func (p prefixed) Keys(ctx context.Context) ([]string, error) {
	all, err := p.inner.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, key := range all {
		if rest, ok := strings.CutPrefix(key, p.prefix); ok {
			out = append(out, rest)
		}
	}
	return out, nil
}
