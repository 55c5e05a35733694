// limit.go: the LRW/LRU eviction engine (spec.md §4.5 "Limit" / "Policy").
//
// Grounded on spec.md's own description of the source system's
// limit()/Limit.Scheduled/Limit.Evented duality (cachex), reimplemented
// without the teacher's W-TinyLFU frequency sketch: eviction order here
// is purely by `modified` timestamp, oldest first, with the LRU mode
// extending that timestamp's meaning to "last touched" instead of "last
// written" (spec.md §4.5 LRU extension).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"sort"
	"sync"
	"time"
)

// limitEngine enforces a cache's MaxSize by evicting the oldest entries
// (by `modified`) once the table exceeds it. A nil *limitEngine means the
// limit is disabled (spec.md's LimitDisabled).
type limitEngine struct {
	tbl     *table
	maxSize int
	reclaim float64
	mode    LimitMode
	now     func() int64

	onEvict   func(key string)
	onCleared func(count int)
	metrics   MetricsCollector
	logger    Logger

	mu      sync.Mutex
	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped bool
}

func newLimitEngine(tbl *table, maxSize int, reclaim float64, mode LimitMode, now func() int64, logger Logger, metrics MetricsCollector, onEvict func(string), onCleared func(int)) *limitEngine {
	if mode == LimitDisabled || maxSize <= 0 {
		return nil
	}
	return &limitEngine{
		tbl:       tbl,
		maxSize:   maxSize,
		reclaim:   reclaim,
		mode:      mode,
		now:       now,
		onEvict:   onEvict,
		onCleared: onCleared,
		metrics:   metrics,
		logger:    logger,
	}
}

// afterWrite is called by the engine after any write that can grow the
// table. In LimitEvented mode it enforces the bound inline; in
// LimitScheduled mode it is a no-op, since the background ticker owns
// enforcement.
func (e *limitEngine) afterWrite() {
	if e == nil || e.mode != LimitEvented {
		return
	}
	e.enforce()
}

// startScheduled launches the background ticker for LimitScheduled mode.
// No-op if e is nil or mode is not LimitScheduled.
func (e *limitEngine) startScheduled(interval time.Duration) {
	if e == nil || e.mode != LimitScheduled {
		return
	}
	if interval <= 0 {
		interval = DefaultScheduledLimitInterval
	}
	e.mu.Lock()
	e.ticker = time.NewTicker(interval)
	e.stopCh = make(chan struct{})
	ticker := e.ticker
	stop := e.stopCh
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.enforce()
			case <-stop:
				return
			}
		}
	}()
}

func (e *limitEngine) stop() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	if e.ticker != nil {
		e.ticker.Stop()
	}
	if e.stopCh != nil {
		close(e.stopCh)
	}
}

type evictionCandidate struct {
	key      string
	modified int64
}

// enforce evicts the oldest entries, oldest `modified` first, until the
// table is back down to maxSize minus reclaim*maxSize (spec.md §4.5 step
// 4: excess = size - (max_size - floor(max_size*reclaim))). Returns the
// number of entries evicted.
func (e *limitEngine) enforce() int {
	size := e.tbl.size()
	if size <= e.maxSize {
		return 0
	}
	excess := (size - e.maxSize) + int(float64(e.maxSize)*e.reclaim)
	batch := excess
	if batch <= 0 {
		batch = 1
	}

	candidates := e.collectCandidates()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modified < candidates[j].modified
	})
	if batch > len(candidates) {
		batch = len(candidates)
	}

	now := e.now()
	evicted := 0
	for i := 0; i < batch; i++ {
		key := candidates[i].key
		_, found, applied := e.tbl.mutate(key, now, func(cur entry, found bool) (entry, bool, bool) {
			return entry{}, false, found
		})
		if applied && found {
			evicted++
			if e.onEvict != nil {
				e.onEvict(key)
			}
		}
	}
	if evicted > 0 {
		e.metrics.RecordEviction("limit")
		e.logger.Debug("limit evicted", "count", evicted, "table_size", size, "max_size", e.maxSize)
		if e.onCleared != nil {
			e.onCleared(evicted)
		}
	}
	return evicted
}

func (e *limitEngine) collectCandidates() []evictionCandidate {
	candidates := make([]evictionCandidate, 0, e.tbl.size())
	now := e.now()
	for _, shard := range e.tbl.shards {
		shard.mu.RLock()
		for k, v := range shard.m {
			if v.expired(now) {
				continue
			}
			candidates = append(candidates, evictionCandidate{key: k, modified: v.modified})
		}
		shard.mu.RUnlock()
	}
	return candidates
}
