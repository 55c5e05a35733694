// overseer_reload.go: hot-reloadable cache configuration via Argus
// (spec.md §4.7 Overseer "updates replace the whole record atomically").
//
// Adapted from the teacher cache's hot-reload.go HotConfig: the same
// argus.UniversalConfigWatcherWithConfig-driven file watch, parsing the
// same shape of dynamic-reload-safe fields (here: DefaultTTL,
// JanitorInterval, Reclaim, LimitMode, LRU, SyncHookTimeout) and refusing
// the ones that require rebuilding the Entry Table outright (MaxSize,
// ShardCount — same restriction the teacher documents for its own
// MaxSize field).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// ReloadOptions configures an Overseer hot-reload watch for one cache.
type ReloadOptions struct {
	// ConfigPath is the file Argus watches. Supports JSON, YAML, TOML,
	// HCL, INI and Properties, same as the underlying argus watcher.
	ConfigPath string

	// PollInterval controls how often Argus checks the file for changes.
	// Default: 1 second. Minimum enforced: 100ms.
	PollInterval time.Duration

	// OnReload, if set, runs after a reload is applied.
	OnReload func(old, new ReloadableFields)

	Logger Logger
}

// ReloadableFields is the subset of Config that can change on a running
// cache without rebuilding its Entry Table.
type ReloadableFields struct {
	DefaultTTL      time.Duration
	JanitorInterval time.Duration
	Reclaim         float64
	LimitMode       LimitMode
	LRU             bool
	SyncHookTimeout time.Duration
}

// reloadWatcher ties an Overseer-registered cache name to a running
// Argus watcher.
type reloadWatcher struct {
	cacheName string
	watcher   *argus.Watcher
	mu        sync.RWMutex
	current   ReloadableFields
	onReload  func(old, new ReloadableFields)
	logger    Logger
}

// WatchConfig starts hot-reloading cacheName's ReloadableFields from
// opts.ConfigPath. The returned watcher must be stopped with Stop when no
// longer needed.
func WatchConfig(cacheName string, opts ReloadOptions) (*reloadWatcher, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	desc, ok := defaultOverseer.lookup(cacheName)
	if !ok {
		return nil, NewErrInvalidConfig("cache " + cacheName + " is not registered")
	}

	rw := &reloadWatcher{
		cacheName: cacheName,
		onReload:  opts.OnReload,
		logger:    opts.Logger,
		current: ReloadableFields{
			DefaultTTL:      time.Duration(desc.defaultTTLNanos),
			JanitorInterval: desc.janitorInterval,
			Reclaim:         desc.reclaim,
			LimitMode:       desc.limitMode,
			LRU:             desc.lru,
			SyncHookTimeout: desc.syncHookTimeout,
		},
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, rw.handleChange, argus.Config{
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	rw.watcher = watcher
	return rw, nil
}

// Start begins watching, if not already running.
func (rw *reloadWatcher) Start() error {
	if rw.watcher.IsRunning() {
		return nil
	}
	return rw.watcher.Start()
}

// Stop stops watching the configuration file.
func (rw *reloadWatcher) Stop() error {
	return rw.watcher.Stop()
}

// Current returns the fields currently in effect (thread-safe).
func (rw *reloadWatcher) Current() ReloadableFields {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.current
}

func (rw *reloadWatcher) handleChange(data map[string]interface{}) {
	rw.mu.Lock()
	old := rw.current
	next := rw.parse(data, old)
	rw.current = next
	rw.mu.Unlock()

	applied, ok := defaultOverseer.update(rw.cacheName, func(d *cacheDescriptor) *cacheDescriptor {
		cp := d.clone()
		cp.defaultTTLNanos = int64(next.DefaultTTL)
		cp.janitorInterval = next.JanitorInterval
		cp.reclaim = next.Reclaim
		cp.limitMode = next.LimitMode
		cp.lru = next.LRU
		cp.syncHookTimeout = next.SyncHookTimeout
		return cp
	})
	if !ok {
		rw.logger.Warn("hot reload skipped: cache no longer registered", "cache", rw.cacheName)
		return
	}
	_ = applied

	if rw.onReload != nil {
		rw.onReload(old, next)
	}
}

// parse extracts ReloadableFields from Argus's decoded config map,
// falling back to base for any field absent or malformed. MaxSize and
// ShardCount are deliberately not read here: both require rebuilding the
// Entry Table, which a live reload cannot do (same restriction the
// teacher's own HotConfig documents for its MaxSize field).
func (rw *reloadWatcher) parse(data map[string]interface{}, base ReloadableFields) ReloadableFields {
	section, ok := data["cache"].(map[string]interface{})
	if !ok {
		section = data
	}

	next := base
	if d, ok := parseDurationField(section["default_ttl"]); ok {
		next.DefaultTTL = d
	}
	if d, ok := parseDurationField(section["janitor_interval"]); ok {
		next.JanitorInterval = d
	}
	if d, ok := parseDurationField(section["sync_hook_timeout"]); ok {
		next.SyncHookTimeout = d
	}
	if r, ok := parseFloatRangeField(section["reclaim"], 0, 1); ok {
		next.Reclaim = r
	}
	if lru, ok := section["lru"].(bool); ok {
		next.LRU = lru
	}
	if mode, ok := section["limit_mode"].(string); ok {
		switch mode {
		case "evented":
			next.LimitMode = LimitEvented
		case "scheduled":
			next.LimitMode = LimitScheduled
		case "disabled":
			next.LimitMode = LimitDisabled
		}
	}
	return next
}

func parseDurationField(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d, true
		}
	}
	return 0, false
}

func parseFloatRangeField(value interface{}, min, max float64) (float64, bool) {
	if v, ok := value.(float64); ok && v > min && v <= max {
		return v, true
	}
	return 0, false
}
