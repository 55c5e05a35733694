// descriptor.go: the cache descriptor (spec.md §3 "Cache descriptor").
//
// A cacheDescriptor is a frozen configuration record. It is never mutated
// in place; Overseer.Update always builds a replacement and swaps it in
// atomically. The entry table handle travels forward unchanged across
// updates — reconfiguration changes policy, not data.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "time"

// cacheDescriptor is the immutable record the Overseer stores per cache
// name and the record every subsystem reads its configuration from.
type cacheDescriptor struct {
	name string

	table *table

	// engineRef is the live Cache facade this descriptor belongs to, used
	// only by LookupCache. Carried forward by clone(); never read by any
	// subsystem's own logic.
	engineRef *engine

	defaultTTLNanos int64
	janitorInterval time.Duration
	lazy            bool

	limitMode              LimitMode
	maxSize                int
	reclaim                float64
	scheduledLimitInterval time.Duration
	lru                    bool

	preHooks  []*hookSubscription
	postHooks []*hookSubscription

	warmers []*Warmer

	// routerState is carried for descriptor-shape parity with the source
	// system's distributed routing field. keepr is single-node (spec.md §1
	// Non-goals); nothing reads or writes this beyond the field itself.
	routerState interface{}

	logger          Logger
	timeProvider    TimeProvider
	metrics         MetricsCollector
	syncHookTimeout time.Duration
}

// clone returns a shallow copy of d with its own copies of the hook and
// warmer slices, so the copy can be edited without touching d. Used by
// subscribe/unsubscribe and the hot-reload watcher through Overseer.Update.
func (d *cacheDescriptor) clone() *cacheDescriptor {
	cp := *d
	cp.preHooks = append([]*hookSubscription(nil), d.preHooks...)
	cp.postHooks = append([]*hookSubscription(nil), d.postHooks...)
	cp.warmers = append([]*Warmer(nil), d.warmers...)
	return &cp
}

func descriptorFromConfig(cfg Config, tbl *table) *cacheDescriptor {
	var warmers []*Warmer
	for i := range cfg.Warmers {
		warmers = append(warmers, &cfg.Warmers[i])
	}
	return &cacheDescriptor{
		name:                   cfg.Name,
		table:                  tbl,
		defaultTTLNanos:        int64(cfg.DefaultTTL),
		janitorInterval:        cfg.JanitorInterval,
		lazy:                   cfg.Lazy,
		limitMode:              cfg.LimitMode,
		maxSize:                cfg.MaxSize,
		reclaim:                cfg.Reclaim,
		scheduledLimitInterval: cfg.ScheduledLimitInterval,
		lru:                    cfg.LRU,
		warmers:                warmers,
		logger:                 cfg.Logger,
		timeProvider:           cfg.TimeProvider,
		metrics:                cfg.MetricsCollector,
		syncHookTimeout:        cfg.SyncHookTimeout,
	}
}
