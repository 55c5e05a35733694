// limit_test.go: the LRW/LRU eviction engine (spec.md §4.5).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"testing"
	"time"
)

func TestNewLimitEngine_DisabledCases(t *testing.T) {
	tbl := newTable(4)
	if e := newLimitEngine(tbl, 10, 0.1, LimitDisabled, func() int64 { return 1 }, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil); e != nil {
		t.Error("expected nil engine when mode is LimitDisabled")
	}
	if e := newLimitEngine(tbl, 0, 0.1, LimitEvented, func() int64 { return 1 }, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil); e != nil {
		t.Error("expected nil engine when maxSize <= 0")
	}
}

func TestLimitEngine_EvictsOldestFirst(t *testing.T) {
	tbl := newTable(4)
	clock := newFakeClock(1000)
	for i := 0; i < 10; i++ {
		k := string(rune('a' + i))
		tbl.set(k, newEntry(k, clock.Now(), 0, i))
		clock.Advance(10)
	}

	var evicted []string
	var cleared int
	e := newLimitEngine(tbl, 5, 0.2, LimitEvented, clock.Now, NoOpLogger{}, NoOpMetricsCollector{}, func(key string) {
		evicted = append(evicted, key)
	}, func(count int) {
		cleared = count
	})

	// excess = (size - max_size) + floor(max_size*reclaim) = (10-5) + 1 = 6
	n := e.enforce()
	if n != 6 {
		t.Fatalf("expected excess=(size-max_size)+floor(max_size*reclaim)=6 evictions, got %d", n)
	}
	if cleared != 6 {
		t.Errorf("expected onCleared to report the same count as enforce, got %d", cleared)
	}
	if tbl.size() != 4 {
		t.Errorf("expected table size 4 after evicting 6 of 10, got %d", tbl.size())
	}
	// The oldest key ("a") must have been evicted before newer ones.
	if _, ok := tbl.peek("a"); ok {
		t.Error("expected the oldest entry to be evicted first")
	}
	if _, ok := tbl.peek("j"); !ok {
		t.Error("expected the newest entry to survive")
	}
}

func TestLimitEngine_NoEvictionUnderBound(t *testing.T) {
	tbl := newTable(4)
	tbl.set("a", newEntry("a", 100, 0, "v"))
	e := newLimitEngine(tbl, 10, 0.1, LimitEvented, func() int64 { return 200 }, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil)
	if n := e.enforce(); n != 0 {
		t.Errorf("expected no eviction under MaxSize, evicted %d", n)
	}
}

func TestLimitEngine_AfterWrite_OnlyEvented(t *testing.T) {
	tbl := newTable(4)
	clock := newFakeClock(1000)
	for i := 0; i < 5; i++ {
		k := string(rune('a' + i))
		tbl.set(k, newEntry(k, clock.Now(), 0, i))
		clock.Advance(10)
	}

	scheduled := newLimitEngine(tbl, 2, 0.5, LimitScheduled, clock.Now, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil)
	scheduled.afterWrite()
	if tbl.size() != 5 {
		t.Errorf("scheduled mode's afterWrite must be a no-op, size changed to %d", tbl.size())
	}
}

func TestLimitEngine_ScheduledTickerEnforces(t *testing.T) {
	tbl := newTable(4)
	clock := newFakeClock(1000)
	for i := 0; i < 10; i++ {
		k := string(rune('a' + i))
		tbl.set(k, newEntry(k, clock.Now(), 0, i))
		clock.Advance(10)
	}

	e := newLimitEngine(tbl, 5, 0.2, LimitScheduled, clock.Now, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil)
	e.startScheduled(5 * time.Millisecond)
	defer e.stop()

	deadline := time.Now().Add(time.Second)
	for tbl.size() > 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if tbl.size() > 5 {
		t.Errorf("expected scheduled ticker to enforce MaxSize eventually, size=%d", tbl.size())
	}
}

func TestLimitEngine_StopIsIdempotent(t *testing.T) {
	tbl := newTable(4)
	e := newLimitEngine(tbl, 5, 0.2, LimitScheduled, func() int64 { return 1 }, NoOpLogger{}, NoOpMetricsCollector{}, nil, nil)
	e.startScheduled(time.Hour)
	e.stop()
	e.stop()
}

func TestLimitEngine_NilIsSafe(t *testing.T) {
	var e *limitEngine
	e.afterWrite()
	e.startScheduled(time.Second)
	e.stop()
}
