// janitor.go: the rolling-schedule expiration sweeper (spec.md §4.3).
//
// Design Notes (spec.md §9) call out that the Janitor's next run must be
// scheduled relative to when the previous sweep finished, not on a fixed
// time.Ticker: a sweep that takes longer than the interval should never
// pile up back-to-back runs. time.AfterFunc gives that directly — each
// firing reschedules itself after the sweep it triggers completes.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"sync"
	"time"
)

// janitorTask owns the rolling sweep timer for one cache. A nil
// *janitorTask (interval <= 0) means sweeping is disabled; callers check
// for nil before touching it.
type janitorTask struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	tbl      *table
	interval time.Duration
	now      func() int64
	onSwept  func(count int, durationNanos int64)
	logger   Logger
}

func newJanitor(tbl *table, interval time.Duration, now func() int64, logger Logger, onSwept func(int, int64)) *janitorTask {
	if interval <= 0 {
		return nil
	}
	j := &janitorTask{
		tbl:      tbl,
		interval: interval,
		now:      now,
		onSwept:  onSwept,
		logger:   logger,
	}
	j.mu.Lock()
	j.timer = time.AfterFunc(interval, j.run)
	j.mu.Unlock()
	return j
}

// run executes one sweep and reschedules itself interval after it
// finishes, not interval after it started.
func (j *janitorTask) run() {
	start := j.now()
	removed := j.tbl.sweep(start, 0)
	elapsed := j.now() - start
	if removed > 0 {
		j.logger.Debug("janitor sweep", "removed", removed, "duration_ns", elapsed)
	}
	if j.onSwept != nil {
		j.onSwept(removed, elapsed)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return
	}
	j.timer = time.AfterFunc(j.interval, j.run)
}

// stop cancels any pending sweep. Safe to call more than once.
func (j *janitorTask) stop() {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
	if j.timer != nil {
		j.timer.Stop()
	}
}

// sweepNow triggers an out-of-band sweep without disturbing the rolling
// schedule. Only tests call it.
func (j *janitorTask) sweepNow() int {
	if j == nil {
		return 0
	}
	now := j.now()
	removed := j.tbl.sweep(now, 0)
	if j.onSwept != nil && removed > 0 {
		j.onSwept(removed, 0)
	}
	return removed
}
