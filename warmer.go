// warmer.go: scheduled cache warming (supplemented feature — spec.md's
// cache descriptor already names a "warmer list" field with no operation
// defined against it; this gives that field a concrete behavior).
//
// A Warmer is a function run on its own interval, writing through the
// same Fetch path any other caller would use, so warmed entries pick up
// the cache's normal TTL, Limit, and Informant behavior instead of
// bypassing them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	"sync"
	"time"
)

// Warmer periodically populates a key by running Fn the way Fetch would.
// Interval <= 0 disables it (the Warmer is registered but never fires).
type Warmer struct {
	Name     string
	Key      string
	Interval time.Duration
	Fn       Loader
}

// warmerTask is the running form of a Warmer, owned by the engine.
type warmerTask struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	warmer Warmer
	fetch  func(ctx context.Context, key string, loader Loader) (Result, error)
	logger Logger
}

func startWarmer(w Warmer, fetch func(context.Context, string, Loader) (Result, error), logger Logger) *warmerTask {
	if w.Interval <= 0 || w.Fn == nil {
		return nil
	}
	t := &warmerTask{warmer: w, fetch: fetch, logger: logger}
	t.mu.Lock()
	t.timer = time.AfterFunc(w.Interval, t.run)
	t.mu.Unlock()
	return t
}

func (t *warmerTask) run() {
	ctx, cancel := context.WithTimeout(context.Background(), t.warmer.Interval)
	_, err := t.fetch(ctx, t.warmer.Key, func(ctx context.Context, key string) (interface{}, error) {
		return t.warmer.Fn(ctx, key)
	})
	cancel()
	if err != nil {
		t.logger.Warn("warmer failed", "name", t.warmer.Name, "key", t.warmer.Key, "error", err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.timer = time.AfterFunc(t.warmer.Interval, t.run)
}

func (t *warmerTask) stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
