// Package kvstore persists small JSON values under string keys. A Cache
// keeps the raw encoded bytes in memory in front of a pluggable Backend.
package kvstore

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/gpacalc/gpacalc/internal/errors"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMySQL  = "mysql"
	KindMemory = "memory"
)

// Backend stores raw values by key. Get returns a not-found category error
// for missing keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Kind string // file, sqlite, mysql or memory
	Path string // directory for file, database file for sqlite
	DSN  string // mysql data source name
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return errors.Newf("invalid key %q", key).
			Component("kvstore").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func notFound(key string) error {
	return errors.Newf("key %q not found", key).
		Component("kvstore").
		Category(errors.CategoryNotFound).
		Context("key", key).
		Build()
}

// MemoryBackend keeps values for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, notFound(key)
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Close() error { return nil }
