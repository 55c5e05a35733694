// config.go: configuration for keepr caches.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"time"

	"github.com/agilira/go-timecache"
)

// LimitMode selects how the Limit engine enforces MaxSize (spec.md §4.5).
type LimitMode int

const (
	// LimitEvented runs the LRW/LRU algorithm after every action that can
	// grow the table (reactive, lower memory, higher per-write latency).
	LimitEvented LimitMode = iota
	// LimitScheduled runs the algorithm on a fixed interval instead of
	// subscribing to write events (lower per-write latency, bounded-size
	// overshoot between ticks).
	LimitScheduled
	// LimitDisabled never enforces MaxSize; only used when MaxSize <= 0.
	LimitDisabled
)

// Config holds the configuration for a single cache. It is copied into an
// immutable cacheDescriptor at cache start; nothing in Config is read again
// afterwards except through Overseer.Update.
type Config struct {
	// Name identifies the cache in the Overseer registry. Required.
	Name string

	// MaxSize bounds the number of entries. <= 0 means unbounded (the Limit
	// engine is disabled).
	MaxSize int

	// Reclaim is the fraction of MaxSize removed once the table exceeds
	// MaxSize. Must be in (0, 1]. Default: DefaultReclaim.
	Reclaim float64

	// LimitMode selects evented vs scheduled enforcement. Default: LimitEvented.
	LimitMode LimitMode

	// ScheduledLimitInterval is the tick period when LimitMode is
	// LimitScheduled. Default: DefaultScheduledLimitInterval.
	ScheduledLimitInterval time.Duration

	// LRU enables the touch-on-read extension (spec.md §4.5 "LRU
	// extension"): get/exists/ttl/fetch/incr/decr/invoke/update refresh an
	// entry's `modified` timestamp, turning LRW eviction into LRU eviction.
	LRU bool

	// DefaultTTL is applied to writes that do not specify their own TTL.
	// 0 means entries never expire by default.
	DefaultTTL time.Duration

	// JanitorInterval is the rolling sweep period. 0 disables the Janitor
	// entirely (spec.md §4.3 "interval = none disables the Janitor").
	JanitorInterval time.Duration

	// Lazy enables lazy expiration on read (spec.md §3): a read that
	// observes an expired entry deletes it and reports missing. Independent
	// of the Janitor; normally both are enabled together.
	Lazy bool

	// ShardCount is the number of stripes in the Entry Table. Must be a
	// power of two. Default: defaultShardCount.
	ShardCount int

	// Logger receives structured diagnostics from the Janitor, Limit engine,
	// Courier, and Informant. Default: NoOpLogger.
	Logger Logger

	// TimeProvider supplies monotonic time for TTL math and `modified`
	// timestamps. Default: a go-timecache-backed clock.
	TimeProvider TimeProvider

	// MetricsCollector receives per-operation observations. Default:
	// NoOpMetricsCollector.
	MetricsCollector MetricsCollector

	// SyncHookTimeout is the default per-hook timeout for synchronous hook
	// delivery (spec.md §4.6), used when a subscription does not specify
	// its own. Default: 50ms.
	SyncHookTimeout time.Duration

	// Warmers schedules background population of specific keys through the
	// normal Fetch path (supplemented feature, see warmer.go). Optional.
	Warmers []Warmer
}

// Validate normalizes a Config in place, applying defaults. It never
// rejects a Config outright except for a missing Name, mirroring the
// teacher's "clamp, don't reject" philosophy in its own Validate.
func (c *Config) Validate() error {
	if c.Name == "" {
		return NewErrInvalidConfig("name is required")
	}
	if c.Reclaim <= 0 || c.Reclaim > 1 {
		c.Reclaim = DefaultReclaim
	}
	if c.ShardCount <= 0 {
		c.ShardCount = defaultShardCount
	} else {
		c.ShardCount = nextPowerOf2(c.ShardCount)
	}
	if c.MaxSize <= 0 {
		c.LimitMode = LimitDisabled
	}
	if c.LimitMode == LimitScheduled && c.ScheduledLimitInterval <= 0 {
		c.ScheduledLimitInterval = DefaultScheduledLimitInterval
	}
	if c.JanitorInterval < 0 {
		c.JanitorInterval = 0
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.SyncHookTimeout <= 0 {
		c.SyncHookTimeout = 50 * time.Millisecond
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults and the
// given cache name. Callers still typically override MaxSize/DefaultTTL.
func DefaultConfig(name string) Config {
	cfg := Config{
		Name:                   name,
		Reclaim:                DefaultReclaim,
		LimitMode:              LimitEvented,
		ScheduledLimitInterval: DefaultScheduledLimitInterval,
		Lazy:                   true,
		ShardCount:             defaultShardCount,
		Logger:                 NoOpLogger{},
		TimeProvider:           &systemTimeProvider{},
		MetricsCollector:       NoOpMetricsCollector{},
		SyncHookTimeout:        50 * time.Millisecond,
	}
	return cfg
}

// systemTimeProvider is the default time provider, backed by go-timecache's
// cached clock: the teacher cache adopted this to avoid the cost of a
// syscall-backed time.Now() on every Get/Set, and keepr's hot path (touch on
// every LRU-tracked read) has the same shape.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
