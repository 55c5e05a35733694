// informant.go: the hook bus (spec.md §4.6 "Informant").
//
// Design Notes (spec.md §9) describe the source system's per-hook mailbox
// process as a task owning a single-consumer channel, with ordered delivery
// implemented by sequentially sending from the acting goroutine, and
// synchronous hooks emulated with a request/response pair (reply channel
// plus timeout). That is exactly what dispatch does below: each
// subscription runs its handler either inline-but-bounded (synchronous) or
// detached (asynchronous); subscriptions are always visited in registration
// order so causality on a single key is preserved.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	"time"
)

// ActionTag names a cache action for hook subscriptions. "all" subscribers
// pass a nil/empty action set.
type ActionTag string

const (
	ActionGet     ActionTag = "get"
	ActionSet     ActionTag = "set"
	ActionDelete  ActionTag = "delete"
	ActionExists  ActionTag = "exists"
	ActionTTL     ActionTag = "ttl"
	ActionFetch   ActionTag = "fetch"
	ActionIncr    ActionTag = "incr"
	ActionDecr    ActionTag = "decr"
	ActionInvoke  ActionTag = "invoke"
	ActionUpdate  ActionTag = "update"
	ActionClear   ActionTag = "clear_table" // Entry Table clear() operation
	ActionExpire  ActionTag = "expire"
	ActionPersist ActionTag = "persist"
	ActionRefresh ActionTag = "refresh"
	ActionTouch   ActionTag = "touch"

	// ActionPurge is broadcast by the Janitor after a sweep (spec.md §4.3).
	ActionPurge ActionTag = "purge"
	// ActionLimitClear is broadcast by the Limit engine after an eviction
	// batch (spec.md §4.5 step 6). Named "clear" on the wire per spec,
	// distinct from ActionClear (the table-wide clear operation).
	ActionLimitClear ActionTag = "clear"
)

// readLikeActions is the canonical touch-triggering action set for the LRU
// extension (spec.md §4.5): "get, exists, ttl, fetch, increment, decrement,
// invoke, update".
var readLikeActions = map[ActionTag]bool{
	ActionGet:    true,
	ActionExists: true,
	ActionTTL:    true,
	ActionFetch:  true,
	ActionIncr:   true,
	ActionDecr:   true,
	ActionInvoke: true,
	ActionUpdate: true,
}

// HookMessage is what every subscriber receives: the action tag, its
// arguments, whether this is the pre- or post-action delivery, the result
// (zero value on pre-delivery), and the descriptor provision.
type HookMessage struct {
	Action     ActionTag
	Args       []interface{}
	Pre        bool
	Result     Result
	Descriptor *cacheDescriptor
}

// HookFunc is a subscriber's handler. It must not panic; a panic is
// recovered and treated as a failed/swallowed delivery.
type HookFunc func(ctx context.Context, msg HookMessage)

// hookSubscription is one entry in a descriptor's pre or post hook list.
type hookSubscription struct {
	name    string
	actions map[ActionTag]bool // nil or empty means "all"
	async   bool
	timeout time.Duration
	handler HookFunc
}

// HookSubscription is the public description of a hook, passed to
// Cache.SubscribePre/SubscribePost. Actions, if non-empty, restricts
// delivery to those action tags; an empty/nil slice subscribes to all of
// them.
type HookSubscription struct {
	Name    string
	Actions []ActionTag
	Async   bool
	Timeout time.Duration
	Handler HookFunc
}

func (s HookSubscription) toInternal() *hookSubscription {
	var actions map[ActionTag]bool
	if len(s.Actions) > 0 {
		actions = make(map[ActionTag]bool, len(s.Actions))
		for _, a := range s.Actions {
			actions[a] = true
		}
	}
	return &hookSubscription{
		name:    s.Name,
		actions: actions,
		async:   s.Async,
		timeout: s.Timeout,
		handler: s.Handler,
	}
}

func (h *hookSubscription) wants(action ActionTag) bool {
	if len(h.actions) == 0 {
		return true
	}
	return h.actions[action]
}

// validateHook checks a subscription against spec.md §7's invalid_hook
// kind: a handler is required, and a synchronous hook needs a positive
// timeout (falls back to the descriptor default otherwise, so this only
// rejects a negative explicit value).
func validateHook(h *hookSubscription) error {
	if h == nil || h.handler == nil {
		return NewErrInvalidHook("handler is required")
	}
	if h.timeout < 0 {
		return NewErrInvalidHook("timeout must not be negative")
	}
	return nil
}

// dispatchHooks sequentially notifies every subscription in hooks that
// wants action, in registration order (spec.md §4.6, §5 ordering
// guarantees). defaultTimeout is the descriptor's SyncHookTimeout, used
// when a subscription did not set its own.
func dispatchHooks(hooks []*hookSubscription, msg HookMessage, defaultTimeout time.Duration, logger Logger) {
	for _, h := range hooks {
		if !h.wants(msg.Action) {
			continue
		}
		timeout := h.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		if h.async {
			go safeInvoke(h, msg, logger)
			continue
		}
		deliverSync(h, msg, timeout, logger)
	}
}

// deliverSync runs handler with a bounded wait: the request/response pair
// Design Notes call for, implemented as a done channel plus a timer. A
// hung or slow handler is abandoned (its goroutine still runs to
// completion in the background) rather than blocking the caller forever.
func deliverSync(h *hookSubscription, msg HookMessage, timeout time.Duration, logger Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		safeInvoke(h, msg, logger)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("hook timeout", "hook", h.name, "action", string(msg.Action), "timeout", timeout.String())
	}
}

// safeInvoke calls handler with panic recovery: spec.md §5/§7, "a
// subscriber failing or exceeding its timeout must not abort the action".
func safeInvoke(h *hookSubscription, msg HookMessage, logger Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("hook panic", "hook", h.name, "action", string(msg.Action), "panic", r)
		}
	}()
	h.handler(context.Background(), msg)
}
