// cache_generic.go: type-safe generic cache API.
//
// Adapted from the teacher cache's GenericCache[K, V]: same key-to-string
// strategy (zero-allocation fast path for the common scalar key types,
// fmt.Sprintf fallback for everything else), generalized over the richer
// Cache interface spec.md §6 defines instead of the teacher's narrower
// Get/Set/Delete/Has/Clear/Stats/Close set.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	"fmt"
	"strconv"
)

// GenericCache provides a type-safe cache interface using Go generics.
// K must be comparable (used as the table key after conversion to
// string); V can be any type.
//
// Example:
//
//	cache, err := keepr.NewGenericCache[string, User](keepr.DefaultConfig("users"))
//	cache.Set("user:123", user)
//	if value, found := cache.Get("user:123"); found {
//	    fmt.Printf("User: %+v\n", value)
//	}
type GenericCache[K comparable, V any] struct {
	inner Cache
}

// NewGenericCache creates a new type-safe generic cache backed by a
// regular keepr cache registered under cfg.Name.
func NewGenericCache[K comparable, V any](cfg Config) (*GenericCache[K, V], error) {
	inner, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return &GenericCache[K, V]{inner: inner}, nil
}

// Set stores a key-value pair in the cache.
func (c *GenericCache[K, V]) Set(key K, value V, opts ...PutOption) bool {
	return c.inner.Set(keyToString(key), value, opts...)
}

// Get retrieves a value from the cache.
func (c *GenericCache[K, V]) Get(key K) (value V, found bool) {
	val, found := c.inner.Get(keyToString(key))
	if !found {
		var zero V
		return zero, false
	}
	typedValue, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return typedValue, true
}

// Delete removes a key from the cache.
func (c *GenericCache[K, V]) Delete(key K) bool {
	return c.inner.Delete(keyToString(key))
}

// Has checks if a key exists in the cache without retrieving it.
func (c *GenericCache[K, V]) Has(key K) bool {
	return c.inner.Has(keyToString(key))
}

// Take atomically retrieves and removes a key.
func (c *GenericCache[K, V]) Take(key K) (value V, found bool) {
	val, found := c.inner.Take(keyToString(key))
	if !found {
		var zero V
		return zero, false
	}
	typedValue, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return typedValue, true
}

// Fetch loads a value through the Courier if it is not already cached.
func (c *GenericCache[K, V]) Fetch(ctx context.Context, key K, loader func(ctx context.Context, key K) (V, error)) (value V, err error) {
	ks := keyToString(key)
	res, err := c.inner.Fetch(ctx, ks, func(ctx context.Context, rawKey string) (interface{}, error) {
		return loader(ctx, key)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	typedValue, ok := res.Value.(V)
	if !ok {
		var zero V
		return zero, nil
	}
	return typedValue, nil
}

// keyToString converts a key of any comparable type to string efficiently,
// avoiding an allocation for the common scalar key types.
func keyToString[K comparable](key K) string {
	switch v := any(key).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("%v", key)
	}
}

// Clear removes all entries from the cache.
func (c *GenericCache[K, V]) Clear() int {
	return c.inner.Clear()
}

// Stats returns current cache statistics.
func (c *GenericCache[K, V]) Stats() Stats {
	return c.inner.Stats()
}

// Close cleans up cache resources and stops background goroutines.
func (c *GenericCache[K, V]) Close() error {
	return c.inner.Close()
}
