// keepr.go: package-level constants
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "time"

const (
	// Version of the keepr cache engine.
	Version = "v0.1.0-dev"

	// DefaultMaxSize is the default maximum number of entries when a cache
	// is created without an explicit limit. 0 means unbounded.
	DefaultMaxSize = 0

	// DefaultReclaim is the fraction of MaxSize reclaimed by the Limit engine
	// once the table exceeds its bound.
	DefaultReclaim = 0.1

	// defaultShardCount is the number of stripes in the Entry Table and in
	// the Overseer registry. Must be a power of two.
	defaultShardCount = 32
)

var (
	// DefaultJanitorInterval is a conventional rolling sweep period callers
	// can assign to Config.JanitorInterval. Validate and DefaultConfig do not
	// apply it: a JanitorInterval of 0 leaves the Janitor disabled.
	DefaultJanitorInterval = 3 * time.Minute

	// DefaultScheduledLimitInterval is the tick period for the Scheduled
	// Limit enforcement mode (spec.md §4.5).
	DefaultScheduledLimitInterval = 1 * time.Second
)
