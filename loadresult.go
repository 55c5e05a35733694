// loadresult.go: Set options and Fetch/loader result wrappers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import "time"

// putOptions holds the resolved effect of a Set call's PutOptions.
type putOptions struct {
	hasTTL   bool
	ttlNanos int64
}

// PutOption customizes a single Set call.
type PutOption func(*putOptions)

// WithTTL sets the entry's time-to-live for this Set call, overriding the
// cache's DefaultTTL. A zero or negative duration means "never expires".
func WithTTL(d time.Duration) PutOption {
	return func(o *putOptions) {
		o.hasTTL = true
		o.ttlNanos = int64(d)
	}
}

// WithTTLNanos is WithTTL expressed directly in nanoseconds, useful when a
// caller already has an epoch-relative duration computed.
func WithTTLNanos(n int64) PutOption {
	return func(o *putOptions) {
		o.hasTTL = true
		o.ttlNanos = n
	}
}

func resolvePutOptions(opts []PutOption) putOptions {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// commitResult is what Commit() produces: "store this value" (spec.md
// §4.4 loader outcomes).
type commitResult struct {
	value   interface{}
	options putOptions
}

// ignoreResult is what Ignore() produces: "return this value to every
// waiter, but do not write it into the table."
type ignoreResult struct {
	value interface{}
}

// Commit wraps a loader's return value to request that Fetch store it in
// the cache (spec.md §4.4: the default outcome for a plain, unwrapped
// return). opts behave exactly like Set's PutOptions.
func Commit(value interface{}, opts ...PutOption) interface{} {
	return commitResult{value: value, options: resolvePutOptions(opts)}
}

// Ignore wraps a loader's return value to request that Fetch hand it to
// every waiter without writing it into the table (spec.md §4.4 "ignore"
// outcome) — useful for negative lookups a caller does not want cached.
func Ignore(value interface{}) interface{} {
	return ignoreResult{value: value}
}

// normalizeLoaderValue interprets a loader's raw return value, unwrapping
// Commit/Ignore if present. A bare value (anything else, including nil)
// is treated as a Commit with the cache's default TTL.
func normalizeLoaderValue(v interface{}) (value interface{}, commit bool, opts putOptions) {
	switch w := v.(type) {
	case commitResult:
		return w.value, true, w.options
	case ignoreResult:
		return w.value, false, putOptions{}
	default:
		return v, true, putOptions{}
	}
}
