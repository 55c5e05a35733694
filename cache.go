// cache.go: the engine — the concrete Cache that wires the Entry Table,
// Locksmith, Courier, Janitor, Limit engine, and Informant together
// (spec.md §1 "Overview", §4).
//
// Structurally this plays the role the teacher's wtinyLFUCache plays in
// cache.go: one struct implementing the public Cache interface, holding
// every subsystem and dispatching operations to them. The subsystems
// themselves differ (sharded map instead of lock-free array, LRW/LRU
// instead of W-TinyLFU), but the facade shape — one struct, one set of
// atomic counters, Get/Set/Delete/Has/Len/Capacity/Clear/Stats/Close plus
// the extended operation set spec.md §6 adds — is the teacher's.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
)

// engine is the concrete Cache implementation. Exported only through the
// Cache interface returned by NewCache.
type engine struct {
	name string

	tbl       *table
	locksmith *locksmith
	courier   *courier
	janitor   *janitorTask
	limit     *limitEngine
	warmers   []*warmerTask

	stats statsCounters

	timeProvider TimeProvider
	metrics      MetricsCollector

	closed chanMutex // one-shot "already closed" guard, see Close
	done   bool
}

// NewCache builds and starts a cache from cfg, registering it with the
// process-wide Overseer under cfg.Name. Returns an error if cfg is
// invalid or the name is already registered.
func NewCache(cfg Config) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tbl := newTable(cfg.ShardCount)
	e := &engine{
		name:         cfg.Name,
		tbl:          tbl,
		locksmith:    newLocksmith(cfg.ShardCount),
		timeProvider: cfg.TimeProvider,
		metrics:      cfg.MetricsCollector,
		closed:       newChanMutex(),
	}

	desc := descriptorFromConfig(cfg, tbl)
	desc.engineRef = e
	if !defaultOverseer.register(cfg.Name, desc) {
		return nil, NewErrInvalidConfig("a cache named " + cfg.Name + " is already registered")
	}

	e.courier = newCourier(tbl, e.timeProvider.Now, cfg.Lazy, int64(cfg.DefaultTTL), cfg.Logger, e.afterCommit)
	e.limit = newLimitEngine(tbl, cfg.MaxSize, cfg.Reclaim, cfg.LimitMode, e.timeProvider.Now, cfg.Logger, cfg.MetricsCollector, e.afterEvict, e.afterLimitClear)
	if e.limit != nil {
		e.limit.startScheduled(cfg.ScheduledLimitInterval)
	}
	e.janitor = newJanitor(tbl, cfg.JanitorInterval, e.timeProvider.Now, cfg.Logger, e.afterPurge)

	for _, w := range desc.warmers {
		if task := startWarmer(*w, e.Fetch, cfg.Logger); task != nil {
			e.warmers = append(e.warmers, task)
		}
	}

	return e, nil
}

func (e *engine) desc() *cacheDescriptor {
	d, ok := defaultOverseer.lookup(e.name)
	if !ok {
		// Unregistered mid-flight (Close or an external unregister race);
		// degrade to a no-hooks, no-LRU descriptor instead of panicking.
		return &cacheDescriptor{name: e.name, logger: NoOpLogger{}, timeProvider: e.timeProvider, metrics: e.metrics}
	}
	return d
}

// runWithHooks dispatches pre-hooks, runs fn against the live descriptor,
// then dispatches post-hooks with fn's result. Every hookable Cache
// operation (spec.md §4.6) goes through this.
func (e *engine) runWithHooks(action ActionTag, args []interface{}, fn func(desc *cacheDescriptor) Result) Result {
	desc := e.desc()
	if len(desc.preHooks) > 0 {
		dispatchHooks(desc.preHooks, HookMessage{Action: action, Args: args, Pre: true, Descriptor: desc}, desc.syncHookTimeout, desc.logger)
	}
	result := fn(desc)
	if len(desc.postHooks) > 0 {
		dispatchHooks(desc.postHooks, HookMessage{Action: action, Args: args, Pre: false, Result: result, Descriptor: desc}, desc.syncHookTimeout, desc.logger)
	}
	return result
}

func (e *engine) touch(key string, now int64) {
	e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
		if !found {
			return entry{}, false, false
		}
		return cur.withValue(now, cur.value), true, false
	})
}

func (e *engine) afterCommit(key string, _ entry) {
	e.stats.recordSet()
	if e.limit != nil {
		e.limit.afterWrite()
	}
}

func (e *engine) afterEvict(key string) {
	e.stats.recordEviction(1)
}

// afterLimitClear broadcasts the Limit engine's post-event (spec.md §4.5
// step 6 "Broadcast clear → {ok, excess}") once an eviction batch
// completes.
func (e *engine) afterLimitClear(count int) {
	if count == 0 {
		return
	}
	desc := e.desc()
	if len(desc.postHooks) == 0 {
		return
	}
	dispatchHooks(desc.postHooks, HookMessage{
		Action: ActionLimitClear,
		Result: Result{Status: StatusOK, Value: count},
	}, desc.syncHookTimeout, desc.logger)
}

func (e *engine) afterPurge(count int, durationNanos int64) {
	if count > 0 {
		e.stats.recordPurge(count)
		e.metrics.RecordPurge(count, durationNanos)
		e.afterPurgeHook(count)
	}
}

// afterPurgeHook broadcasts the Janitor's post-event (spec.md §4.3
// "broadcast a post-event purge → {ok, count} if count > 0").
func (e *engine) afterPurgeHook(count int) {
	desc := e.desc()
	if len(desc.postHooks) == 0 {
		return
	}
	dispatchHooks(desc.postHooks, HookMessage{
		Action: ActionPurge,
		Result: Result{Status: StatusOK, Value: count},
	}, desc.syncHookTimeout, desc.logger)
}

// Get implements Cache.Get.
func (e *engine) Get(key string) (interface{}, bool) {
	start := e.timeProvider.Now()
	res := e.runWithHooks(ActionGet, []interface{}{key}, func(desc *cacheDescriptor) Result {
		now := e.timeProvider.Now()
		ent, found := e.tbl.get(key, now, desc.lazy)
		if !found {
			return Result{Status: StatusMissing}
		}
		if desc.lru {
			e.touch(key, now)
		}
		return Result{Status: StatusOK, Value: ent.value}
	})
	found := res.Status == StatusOK
	if found {
		e.stats.recordHit()
	} else {
		e.stats.recordMiss()
	}
	e.metrics.RecordGet(e.timeProvider.Now()-start, found)
	return res.Value, found
}

// Set implements Cache.Set.
func (e *engine) Set(key string, value interface{}, opts ...PutOption) bool {
	if key == "" {
		return false
	}
	start := e.timeProvider.Now()
	o := resolvePutOptions(opts)
	res := e.runWithHooks(ActionSet, []interface{}{key, value}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			ttl := desc.defaultTTLNanos
			if o.hasTTL {
				ttl = o.ttlNanos
			}
			ent := newEntry(key, now, ttl, value)
			e.tbl.set(key, ent)
			e.afterCommit(key, ent)
		})
		return Result{Status: StatusOK, Value: value}
	})
	e.metrics.RecordSet(e.timeProvider.Now() - start)
	return res.Status == StatusOK
}

// Delete implements Cache.Delete.
func (e *engine) Delete(key string) bool {
	start := e.timeProvider.Now()
	var existed bool
	res := e.runWithHooks(ActionDelete, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			_, existed = e.tbl.delete(key)
		})
		if !existed {
			return Result{Status: StatusMissing}
		}
		e.stats.recordDelete()
		return Result{Status: StatusOK}
	})
	e.metrics.RecordDelete(e.timeProvider.Now() - start)
	return res.Status == StatusOK
}

// Has implements Cache.Has.
func (e *engine) Has(key string) bool {
	res := e.runWithHooks(ActionExists, []interface{}{key}, func(desc *cacheDescriptor) Result {
		now := e.timeProvider.Now()
		if !e.tbl.has(key, now) {
			return Result{Status: StatusMissing}
		}
		if desc.lru {
			e.touch(key, now)
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// Take implements Cache.Take: an atomic get-then-delete.
func (e *engine) Take(key string) (interface{}, bool) {
	var value interface{}
	var found bool
	res := e.runWithHooks(ActionDelete, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, _ = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if found {
					value = cur.value
				}
				return entry{}, false, found
			})
		})
		if !found {
			return Result{Status: StatusMissing}
		}
		e.stats.recordDelete()
		return Result{Status: StatusOK, Value: value}
	})
	if res.Status != StatusOK {
		return nil, false
	}
	return value, true
}

// Len implements Cache.Len.
func (e *engine) Len() int { return e.tbl.size() }

// Capacity implements Cache.Capacity.
func (e *engine) Capacity() int {
	return e.desc().maxSize
}

// Clear implements Cache.Clear.
func (e *engine) Clear() int {
	res := e.runWithHooks(ActionClear, nil, func(desc *cacheDescriptor) Result {
		n := e.tbl.clear()
		return Result{Status: StatusOK, Value: n}
	})
	n, _ := res.Value.(int)
	return n
}

// Stats implements Cache.Stats.
func (e *engine) Stats() Stats {
	return e.stats.snapshot(e.tbl.size(), e.Capacity())
}

// Close implements Cache.Close: stops all background tasks and
// unregisters the cache from the Overseer. Safe to call more than once.
func (e *engine) Close() error {
	e.closed.Lock()
	if e.done {
		e.closed.Unlock()
		return nil
	}
	e.done = true
	e.closed.Unlock()

	e.janitor.stop()
	e.limit.stop()
	for _, w := range e.warmers {
		w.stop()
	}
	defaultOverseer.unregister(e.name)
	return nil
}

// Incr implements Cache.Incr.
func (e *engine) Incr(key string, delta, initial int64) (int64, Status, error) {
	return e.addDelta(ActionIncr, key, delta, initial)
}

// Decr implements Cache.Decr.
func (e *engine) Decr(key string, delta, initial int64) (int64, Status, error) {
	return e.addDelta(ActionDecr, key, -delta, initial)
}

func (e *engine) addDelta(action ActionTag, key string, delta, initial int64) (int64, Status, error) {
	if key == "" {
		return 0, StatusError, NewErrEmptyKey(string(action))
	}
	var opErr error
	var newVal int64
	var wasPresent bool
	res := e.runWithHooks(action, []interface{}{key, delta}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				wasPresent = found
				if !found {
					newVal = initial + delta
					return newEntry(key, now, desc.defaultTTLNanos, newVal), true, false
				}
				n, ok := asInt64(cur.value)
				if !ok {
					opErr = NewErrNonNumeric(key, cur.value)
					return cur, false, false
				}
				newVal = n + delta
				return cur.withValue(now, newVal), true, false
			})
			if opErr == nil && desc.lru {
				e.touch(key, now)
			}
		})
		if opErr != nil {
			return Result{Status: StatusError, Err: opErr}
		}
		if wasPresent {
			return Result{Status: StatusOK, Value: newVal}
		}
		return Result{Status: StatusMissing, Value: newVal}
	})
	if res.Status == StatusError {
		return 0, StatusError, res.Err
	}
	return newVal, res.Status, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

// Expire implements Cache.Expire: sets a new TTL, relative to now, on an
// existing entry.
func (e *engine) Expire(key string, ttlNanos int64) bool {
	var found, applied bool
	res := e.runWithHooks(ActionExpire, []interface{}{key, ttlNanos}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, applied = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if !found {
					return entry{}, false, false
				}
				cur.ttlNanos = ttlNanos
				cur.modified = now
				return cur, true, false
			})
		})
		if !found || !applied {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// ExpireAt implements Cache.ExpireAt: sets the entry to expire at an
// absolute epoch-nanosecond instant. An instant that has already passed
// removes the entry.
func (e *engine) ExpireAt(key string, epochNanos int64) bool {
	var found, applied bool
	res := e.runWithHooks(ActionExpire, []interface{}{key, epochNanos}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, applied = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if !found {
					return entry{}, false, false
				}
				ttl := epochNanos - now
				if ttl <= 0 {
					// The instant has already passed: the entry is expired now.
					return entry{}, false, true
				}
				cur.ttlNanos = ttl
				cur.modified = now
				return cur, true, false
			})
		})
		if !found || !applied {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// Refresh implements Cache.Refresh: resets the TTL window to its full
// duration measured from now, without changing the duration itself.
func (e *engine) Refresh(key string) bool {
	var found, applied bool
	res := e.runWithHooks(ActionRefresh, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, applied = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if !found {
					return entry{}, false, false
				}
				return cur.withValue(now, cur.value), true, false
			})
		})
		if !found || !applied {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// Persist implements Cache.Persist: removes any TTL, making the entry
// live forever.
func (e *engine) Persist(key string) bool {
	var found, applied bool
	res := e.runWithHooks(ActionPersist, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, applied = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if !found {
					return entry{}, false, false
				}
				cur.ttlNanos = 0
				return cur, true, false
			})
		})
		if !found || !applied {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// TTL implements Cache.TTL.
func (e *engine) TTL(key string) (int64, bool) {
	now := e.timeProvider.Now()
	ent, found := e.tbl.get(key, now, false)
	if !found {
		return 0, false
	}
	if e.desc().lru {
		e.touch(key, now)
	}
	return ent.remaining(now), true
}

// Touch implements Cache.Touch: refreshes `modified` without reading or
// changing the value.
func (e *engine) Touch(key string) bool {
	var found, applied bool
	res := e.runWithHooks(ActionTouch, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			_, found, applied = e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				if !found {
					return entry{}, false, false
				}
				return cur.withValue(now, cur.value), true, false
			})
		})
		if !found || !applied {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusOK}
	})
	return res.Status == StatusOK
}

// Invoke implements Cache.Invoke (supplemented feature: spec.md §4.5
// lists "invoke" among the actions that count as a read for LRU purposes
// without defining an operation of that name; this gives it one). fn
// inspects the current value, if any, and returns the value to store plus
// whether to store it at all.
func (e *engine) Invoke(key string, fn func(value interface{}, found bool) (interface{}, bool)) (interface{}, error) {
	if key == "" {
		return nil, NewErrEmptyKey("Invoke")
	}
	var result interface{}
	res := e.runWithHooks(ActionInvoke, []interface{}{key}, func(desc *cacheDescriptor) Result {
		e.locksmith.write(key, func() {
			now := e.timeProvider.Now()
			e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
				var curVal interface{}
				if found {
					curVal = cur.value
				}
				next, write := fn(curVal, found)
				result = next
				if !write {
					return cur, false, false
				}
				ttl := desc.defaultTTLNanos
				if found {
					ttl = cur.ttlNanos
				}
				return newEntry(key, now, ttl, next), true, false
			})
			if desc.lru {
				e.touch(key, now)
			}
		})
		return Result{Status: StatusOK, Value: result}
	})
	return res.Value, nil
}

// Fetch implements Cache.Fetch via the Courier.
func (e *engine) Fetch(ctx context.Context, key string, loader Loader) (Result, error) {
	var err error
	res := e.runWithHooks(ActionFetch, []interface{}{key}, func(desc *cacheDescriptor) Result {
		var r Result
		r, err = e.courier.fetch(ctx, key, loader)
		if err == nil && r.Status == StatusOK && desc.lru {
			e.touch(key, e.timeProvider.Now())
		}
		return r
	})
	return res, err
}

// Transaction implements Cache.Transaction via the Locksmith.
func (e *engine) Transaction(keys []string, fn func() error) error {
	return e.locksmith.transaction(keys, fn)
}

// Scan implements Cache.Scan.
func (e *engine) Scan(q Query) Iterator {
	return e.tbl.scan(q)
}

// SubscribePre implements Cache.SubscribePre.
func (e *engine) SubscribePre(sub HookSubscription) error {
	return e.subscribe(true, sub.toInternal())
}

// SubscribePost implements Cache.SubscribePost.
func (e *engine) SubscribePost(sub HookSubscription) error {
	return e.subscribe(false, sub.toInternal())
}

// Unsubscribe implements Cache.Unsubscribe.
func (e *engine) Unsubscribe(name string) bool {
	return e.unsubscribe(name)
}

// subscribe registers a hook subscription, pre or post, by replacing the
// descriptor atomically through the Overseer (spec.md §4.6/§4.7).
func (e *engine) subscribe(pre bool, h *hookSubscription) error {
	if err := validateHook(h); err != nil {
		return err
	}
	_, ok := defaultOverseer.update(e.name, func(d *cacheDescriptor) *cacheDescriptor {
		cp := d.clone()
		if pre {
			cp.preHooks = append(cp.preHooks, h)
		} else {
			cp.postHooks = append(cp.postHooks, h)
		}
		return cp
	})
	if !ok {
		return NewErrInvalidConfig("cache is not registered")
	}
	return nil
}

// unsubscribe removes a hook by name from both hook lists.
func (e *engine) unsubscribe(name string) bool {
	var removed bool
	defaultOverseer.update(e.name, func(d *cacheDescriptor) *cacheDescriptor {
		cp := d.clone()
		cp.preHooks, removed = removeHook(cp.preHooks, name, removed)
		cp.postHooks, removed = removeHook(cp.postHooks, name, removed)
		return cp
	})
	return removed
}

func removeHook(hooks []*hookSubscription, name string, removedSoFar bool) ([]*hookSubscription, bool) {
	out := hooks[:0:0]
	removed := removedSoFar
	for _, h := range hooks {
		if h.name == name {
			removed = true
			continue
		}
		out = append(out, h)
	}
	return out, removed
}
