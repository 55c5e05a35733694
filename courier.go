// courier.go: single-flight load-through fetching (spec.md §4.4).
//
// Adapted from the teacher cache's loading.go GetOrLoad: one in-flight
// call per key, tracked in a map, with waiters parked on a channel that
// is closed once to broadcast the result to all of them rather than
// waking one waiter at a time. Generalized here to the richer loader
// contract spec.md §4.4 requires — commit/ignore/error outcomes plus
// detecting when the executing goroutine dies outright (a panic that
// would otherwise be silently swallowed by nobody, since Fetch's own
// goroutine recovers it).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
)

// inflightCall is one in-progress Fetch for a single key. done is closed
// exactly once, after result has been stored, broadcasting to every
// waiter blocked on it.
type inflightCall struct {
	result atomic.Pointer[Result]
	done   chan struct{}
}

// courier coordinates cache-aside loading for one cache, deduplicating
// concurrent Fetch calls against the same key.
type courier struct {
	inflight sync.Map // key -> *inflightCall
	tbl      *table
	now      func() int64
	lazy     bool

	defaultTTLNanos int64
	logger          Logger

	// afterCommit runs after a loader commits a value, letting the engine
	// record the write in its stats and run the Limit engine the same way
	// a direct Set would.
	afterCommit func(key string, e entry)
}

func newCourier(tbl *table, now func() int64, lazy bool, defaultTTLNanos int64, logger Logger, afterCommit func(string, entry)) *courier {
	return &courier{
		tbl:             tbl,
		now:             now,
		lazy:            lazy,
		defaultTTLNanos: defaultTTLNanos,
		logger:          logger,
		afterCommit:     afterCommit,
	}
}

var errLoaderRequired = stderrors.New("loader must not be nil")

// fetch implements Cache.Fetch: return the cached value if present,
// otherwise run loader exactly once per key even under concurrent
// callers, and interpret its result per spec.md §4.4.
func (c *courier) fetch(ctx context.Context, key string, loader Loader) (Result, error) {
	if key == "" {
		return Result{Status: StatusError}, NewErrEmptyKey("Fetch")
	}
	if e, found := c.tbl.get(key, c.now(), c.lazy); found {
		return Result{Status: StatusOK, Value: e.value}, nil
	}
	if loader == nil {
		return Result{Status: StatusError, Err: errLoaderRequired}, NewErrGeneric("Fetch", errLoaderRequired)
	}

	newFlight := &inflightCall{done: make(chan struct{})}
	actual, loaded := c.inflight.LoadOrStore(key, newFlight)
	flight := actual.(*inflightCall)

	if loaded {
		<-flight.done
		r := flight.result.Load()
		return *r, r.Err
	}

	result := c.execute(ctx, key, loader)
	flight.result.Store(&result)
	close(flight.done)
	c.inflight.Delete(key)
	return result, result.Err
}

// execute runs loader once, with panic recovery, and applies its outcome
// to the table. It is only ever called by the goroutine that won the
// LoadOrStore race for key.
func (c *courier) execute(ctx context.Context, key string, loader Loader) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := NewErrKilled(key, r)
			c.logger.Error("courier executor died", "key", key, "panic", r)
			result = Result{Status: StatusError, Err: err}
		}
	}()

	raw, err := loader(ctx, key)
	if err != nil {
		return Result{Status: StatusError, Err: err}
	}

	value, commit, opts := normalizeLoaderValue(raw)
	if !commit {
		return Result{Status: StatusIgnore, Value: value}
	}

	ttl := c.defaultTTLNanos
	if opts.hasTTL {
		ttl = opts.ttlNanos
	}
	e := newEntry(key, c.now(), ttl, value)
	c.tbl.set(key, e)
	if c.afterCommit != nil {
		c.afterCommit(key, e)
	}
	return Result{Status: StatusCommit, Value: value}
}

// inFlight reports whether key currently has a loader running, used by
// tests to assert single-flight behavior.
func (c *courier) inFlight(key string) bool {
	_, ok := c.inflight.Load(key)
	return ok
}
