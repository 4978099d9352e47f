package kvstore

import (
	"context"
	"encoding/json"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
	"github.com/patrickmn/go-cache"
)

// Cache keeps the raw bytes of every key read or written in memory and
// persists writes to the backend synchronously. Entries never expire.
type Cache struct {
	backend Backend
	mem     *cache.Cache
	log     logger.Logger
}

// NewCache wraps backend with an in-memory layer.
func NewCache(backend Backend, log logger.Logger) *Cache {
	if log == nil {
		log = logger.Global().Module("kvstore")
	}
	return &Cache{
		backend: backend,
		mem:     cache.New(cache.NoExpiration, 0),
		log:     log,
	}
}

// Backend returns the persistent backend.
func (c *Cache) Backend() Backend { return c.backend }

// Get returns the raw value for key, reading through to the backend on a
// miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, found := c.mem.Get(key); found {
		if data, ok := v.([]byte); ok {
			return data, nil
		}
	}
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.mem.Set(key, data, cache.NoExpiration)
	return data, nil
}

// Set writes value to the backend and then to memory.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		return err
	}
	c.mem.Set(key, value, cache.NoExpiration)
	return nil
}

// Delete removes key from both layers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mem.Delete(key)
	return c.backend.Delete(ctx, key)
}

// Clear removes keys from both layers. Other entries of the backend, such
// as unrelated files next to a file backend's entries, are left alone.
func (c *Cache) Clear(ctx context.Context, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := c.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the backend.
func (c *Cache) Close() error {
	c.mem.Flush()
	return c.backend.Close()
}

// GetItem decodes the JSON value stored under key. A missing key or a value
// that fails to decode yields def; decode failures are logged.
func GetItem[T any](ctx context.Context, c *Cache, key string, def T) T {
	data, err := c.Get(ctx, key)
	if err != nil {
		if !errors.IsNotFound(err) {
			c.log.Warn("Failed to read cached value, using default",
				logger.String("key", key),
				logger.Error(err))
		}
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("Failed to parse cached value, using default",
			logger.String("key", key),
			logger.Error(err))
		return def
	}
	return v
}

// SetItem encodes v as JSON and stores it under key.
func SetItem[T any](ctx context.Context, c *Cache, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.New(err).
			Component("kvstore").
			Category(errors.CategoryFileParsing).
			Context("operation", "encode").
			Context("key", key).
			Build()
	}
	return c.Set(ctx, key, data)
}

// ClearItem removes key.
func ClearItem(ctx context.Context, c *Cache, key string) error {
	return c.Delete(ctx, key)
}
