// overseer.go: the process-wide cache descriptor registry (spec.md §4.7).
//
// Design Notes (spec.md §9) calls for replacing the source system's global
// registry with "a sharded concurrent map keyed by hash of the name with a
// per-shard writer lock and lock-free readers (cloning the handle)". Each
// shard here holds its descriptor behind an atomic.Pointer so Lookup never
// blocks a concurrent Update; Update itself takes the shard's writer lock
// to serialize read-modify-write of that one name.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"sync"
	"sync/atomic"
)

type overseerShard struct {
	mu      sync.Mutex // serializes Update for names in this shard
	entries sync.Map   // name -> *atomic.Pointer[cacheDescriptor]
}

// overseer is the registry mapping cache name -> cache descriptor.
type overseer struct {
	shards []*overseerShard
	mask   uint64
}

func newOverseer() *overseer {
	n := defaultShardCount
	shards := make([]*overseerShard, n)
	for i := range shards {
		shards[i] = &overseerShard{}
	}
	return &overseer{shards: shards, mask: uint64(n - 1)}
}

func (o *overseer) shardFor(name string) *overseerShard {
	return o.shards[stringHash(name)&o.mask]
}

// register installs desc under name, failing if the name is already taken.
func (o *overseer) register(name string, desc *cacheDescriptor) bool {
	shard := o.shardFor(name)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.entries.Load(name); exists {
		return false
	}
	ptr := &atomic.Pointer[cacheDescriptor]{}
	ptr.Store(desc)
	shard.entries.Store(name, ptr)
	return true
}

// unregister removes name from the registry. Returns false if absent.
func (o *overseer) unregister(name string) bool {
	shard := o.shardFor(name)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.entries.Load(name); !exists {
		return false
	}
	shard.entries.Delete(name)
	return true
}

// lookup returns the current descriptor for name, lock-free.
func (o *overseer) lookup(name string) (*cacheDescriptor, bool) {
	shard := o.shardFor(name)
	v, ok := shard.entries.Load(name)
	if !ok {
		return nil, false
	}
	ptr := v.(*atomic.Pointer[cacheDescriptor])
	return ptr.Load(), true
}

// update calls f with the current descriptor for name and atomically swaps
// in whatever f returns. f must not be nil; returning nil leaves the
// descriptor unchanged. Serialized per-name via the shard's writer lock so
// concurrent reconfigurations of the same cache cannot interleave.
func (o *overseer) update(name string, f func(*cacheDescriptor) *cacheDescriptor) (*cacheDescriptor, bool) {
	shard := o.shardFor(name)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	v, ok := shard.entries.Load(name)
	if !ok {
		return nil, false
	}
	ptr := v.(*atomic.Pointer[cacheDescriptor])
	current := ptr.Load()
	next := f(current)
	if next == nil {
		return current, true
	}
	ptr.Store(next)
	return next, true
}

// defaultOverseer is the process-wide registry NewCache registers into,
// mirroring the source system's single global cache-name namespace.
var defaultOverseer = newOverseer()

// LookupCache returns the running cache registered under name, if any.
func LookupCache(name string) (Cache, bool) {
	desc, ok := defaultOverseer.lookup(name)
	if !ok || desc.engineRef == nil {
		return nil, false
	}
	return desc.engineRef, true
}
