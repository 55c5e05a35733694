// stats.go: cache statistics (spec.md §6 Stats).
//
// Grounded on the teacher cache's CacheStats: the same counter set
// (hits/misses/sets/deletes/evictions/size/capacity), tracked here with
// atomic.Int64 fields instead of the teacher's atomic.StoreInt64/LoadInt64
// call pairs, plus a purges counter for the Janitor (spec.md §4.3) the
// teacher has no equivalent of.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "sync/atomic"

// Stats is a point-in-time snapshot of a cache's operation counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Sets      uint64
	Deletes   uint64
	Evictions uint64
	Purges    uint64
	Size      int
	Capacity  int
}

// HitRatio returns the hit ratio as a percentage in [0, 100].
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// statsCounters holds the live atomic counters an engine updates as
// operations happen; Stats() reads a consistent-enough snapshot of them.
type statsCounters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	purges    atomic.Int64
}

func (c *statsCounters) recordHit()            { c.hits.Add(1) }
func (c *statsCounters) recordMiss()           { c.misses.Add(1) }
func (c *statsCounters) recordSet()            { c.sets.Add(1) }
func (c *statsCounters) recordDelete()         { c.deletes.Add(1) }
func (c *statsCounters) recordEviction(n int)  { c.evictions.Add(int64(n)) }
func (c *statsCounters) recordPurge(n int)     { c.purges.Add(int64(n)) }

func (c *statsCounters) snapshot(size, capacity int) Stats {
	return Stats{
		Hits:      uint64(c.hits.Load()),
		Misses:    uint64(c.misses.Load()),
		Sets:      uint64(c.sets.Load()),
		Deletes:   uint64(c.deletes.Load()),
		Evictions: uint64(c.evictions.Load()),
		Purges:    uint64(c.purges.Load()),
		Size:      size,
		Capacity:  capacity,
	}
}
