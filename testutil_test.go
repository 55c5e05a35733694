// testutil_test.go: shared test helpers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "sync/atomic"

// fakeClock is a deterministic TimeProvider for tests that need exact
// control over `modified`/TTL math instead of real wall-clock time.
type fakeClock struct {
	nowNanos atomic.Int64
}

func newFakeClock(start int64) *fakeClock {
	c := &fakeClock{}
	c.nowNanos.Store(start)
	return c
}

func (c *fakeClock) Now() int64 { return c.nowNanos.Load() }

func (c *fakeClock) Advance(d int64) { c.nowNanos.Add(d) }

func (c *fakeClock) Set(n int64) { c.nowNanos.Store(n) }
