// stats_test.go: cache statistics (spec.md §6 Stats).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "testing"

func TestStatsCounters_Snapshot(t *testing.T) {
	var c statsCounters
	c.recordHit()
	c.recordHit()
	c.recordMiss()
	c.recordSet()
	c.recordDelete()
	c.recordEviction(3)
	c.recordPurge(2)

	s := c.snapshot(10, 100)
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 || s.Deletes != 1 || s.Evictions != 3 || s.Purges != 2 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.Size != 10 || s.Capacity != 100 {
		t.Errorf("expected Size=10 Capacity=100, got Size=%d Capacity=%d", s.Size, s.Capacity)
	}
}

func TestStats_HitRatio(t *testing.T) {
	s := Stats{Hits: 3, Misses: 1}
	if got := s.HitRatio(); got != 75 {
		t.Errorf("expected hit ratio 75, got %v", got)
	}

	empty := Stats{}
	if got := empty.HitRatio(); got != 0 {
		t.Errorf("expected hit ratio 0 for no traffic, got %v", got)
	}
}
