// locksmith.go: key-scoped locks and transactions (spec.md §4.2).
//
// Grounded on the teacher cache's own small lock-table helpers in
// loading.go (per-key inflight tracking via a map guarded by a mutex),
// generalized here from "one key, one inflight load" to "N keys, one
// critical section". Keys are always acquired in sorted order so two
// transactions naming overlapping key sets can never deadlock against
// each other.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"runtime"
	"sort"
)

// locksmith is the process-local lock table keyed by cache entry key.
// A locked key blocks any other transaction naming it, and defers any
// ordinary write arriving through write(key, f) until the transaction
// releases the key (spec.md §4.2). Reads go straight to the Entry
// Table's own per-shard locks and are never fenced here.
//
// "Tagged on the caller" (spec.md §4.2) is implemented by recording the
// acquiring goroutine's id as the holder: a transaction's own fn runs on
// that same goroutine, so its writes recognize themselves as the holder
// and execute immediately instead of deadlocking against the lock they
// are running inside of.
type locksmith struct {
	shards []*locksmithShard
	mask   uint64
}

type locksmithShard struct {
	mu      chanMutex
	holders map[string]uint64 // key -> owning goroutine id
	pending map[string][]pendingWrite
}

// pendingWrite is a write(key, f) call that arrived while key was
// transactionally locked, waiting for the serial executor to run it.
type pendingWrite struct {
	fn   func()
	done chan struct{}
}

func newLocksmith(shardCount int) *locksmith {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shardCount = nextPowerOf2(shardCount)
	shards := make([]*locksmithShard, shardCount)
	for i := range shards {
		shards[i] = &locksmithShard{
			holders: make(map[string]uint64),
			pending: make(map[string][]pendingWrite),
			mu:      newChanMutex(),
		}
	}
	return &locksmith{shards: shards, mask: uint64(shardCount - 1)}
}

// write implements spec.md §4.2 "write(key, f)": if no transactional lock
// on key is held, f runs immediately on the caller. If a lock is held, f
// is enqueued to the key's serial executor and runs once the holding
// transaction releases the key, in submission order with any other
// queued writes. Either way, write blocks the caller until f has run.
func (l *locksmith) write(key string, f func()) {
	shard := l.shardFor(key)
	shard.mu.Lock()
	owner, held := shard.holders[key]
	if !held || owner == getGoroutineID() {
		shard.mu.Unlock()
		f()
		return
	}
	done := make(chan struct{})
	shard.pending[key] = append(shard.pending[key], pendingWrite{fn: f, done: done})
	shard.mu.Unlock()
	<-done
}

func (l *locksmith) shardFor(key string) *locksmithShard {
	return l.shards[stringHash(key)&l.mask]
}

// sortedUnique returns keys deduplicated and sorted, the canonical
// acquisition order for transaction().
func sortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// tryLock attempts to acquire every key without blocking. On failure it
// releases anything it already acquired and returns the keys that were
// already held by someone else.
func (l *locksmith) tryLock(keys []string) (ok bool, conflicts []string) {
	gid := getGoroutineID()
	acquired := make([]string, 0, len(keys))
	for _, k := range keys {
		shard := l.shardFor(k)
		shard.mu.Lock()
		if _, held := shard.holders[k]; held {
			shard.mu.Unlock()
			conflicts = append(conflicts, k)
			continue
		}
		shard.holders[k] = gid
		shard.mu.Unlock()
		acquired = append(acquired, k)
	}
	if len(conflicts) > 0 {
		l.unlock(acquired)
		return false, conflicts
	}
	return true, nil
}

// unlock releases keys and runs the serial executor for each one,
// draining any write(key, f) calls queued while the key was held, one
// at a time and in arrival order, before the key is reported free.
func (l *locksmith) unlock(keys []string) {
	for _, k := range keys {
		l.release(k)
	}
}

func (l *locksmith) release(key string) {
	shard := l.shardFor(key)
	for {
		shard.mu.Lock()
		queue := shard.pending[key]
		if len(queue) == 0 {
			delete(shard.holders, key)
			delete(shard.pending, key)
			shard.mu.Unlock()
			return
		}
		next := queue[0]
		shard.pending[key] = queue[1:]
		shard.mu.Unlock()

		next.fn()
		close(next.done)
	}
}

// transaction runs fn with every key in keys held exclusively for its
// duration (spec.md §4.2 "transaction(keys, fn)"). Keys spanning zero
// cache entries are still valid to lock (a transaction may reserve a key
// before it exists). Fails fast with ErrLockHeld rather than queuing,
// matching spec.md §7's lock_held kind.
func (l *locksmith) transaction(keys []string, fn func() error) error {
	if len(keys) == 0 {
		return fn()
	}
	ordered := sortedUnique(keys)
	ok, conflicts := l.tryLock(ordered)
	if !ok {
		return NewErrLockHeld(conflicts)
	}
	defer l.unlock(ordered)
	return fn()
}

// locked reports whether key is currently held by an in-flight
// transaction, used by diagnostics and tests.
func (l *locksmith) locked(key string) bool {
	shard := l.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	_, ok := shard.holders[key]
	return ok
}

// getGoroutineID returns the current goroutine's id, parsed from the
// "goroutine N [...]" header runtime.Stack always writes first.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// chanMutex is a channel-backed mutex, matching the teacher cache's
// preference for channel synchronization primitives over sync.Mutex in
// its concurrency-sensitive helpers.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	ch := make(chanMutex, 1)
	ch <- struct{}{}
	return ch
}

func (c chanMutex) Lock()   { <-c }
func (c chanMutex) Unlock() { c <- struct{}{} }
