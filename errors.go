// errors.go: structured errors for keepr, built on go-errors.
//
// This mirrors the teacher cache's errors.go: a constant per error kind,
// a constructor-per-kind that attaches context via go-errors, and a set of
// IsXxx helpers for callers that prefer errors.Is-style checks over a type
// switch. Every kind here corresponds directly to spec.md §7's error kinds.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes, one per spec.md §7 error kind.
const (
	ErrCodeMissing         errors.ErrorCode = "KEEPR_MISSING"
	ErrCodeNonNumeric      errors.ErrorCode = "KEEPR_NON_NUMERIC"
	ErrCodeCrossSlot       errors.ErrorCode = "KEEPR_CROSS_SLOT"
	ErrCodeUnreachableFile errors.ErrorCode = "KEEPR_UNREACHABLE_FILE"
	ErrCodeInvalidHook     errors.ErrorCode = "KEEPR_INVALID_HOOK"
	ErrCodeInvalidConfig   errors.ErrorCode = "KEEPR_INVALID_CONFIG"
	ErrCodeKilled          errors.ErrorCode = "KEEPR_KILLED"
	ErrCodeGeneric         errors.ErrorCode = "KEEPR_ERROR"
	ErrCodeEmptyKey        errors.ErrorCode = "KEEPR_EMPTY_KEY"
	ErrCodeLockHeld        errors.ErrorCode = "KEEPR_LOCK_HELD"
)

const (
	msgMissing         = "key not present in cache"
	msgNonNumeric      = "existing value is not numeric"
	msgCrossSlot       = "keys span more than one node"
	msgUnreachableFile = "persistence file could not be read or written"
	msgInvalidHook     = "hook subscription is invalid"
	msgInvalidConfig   = "cache configuration is invalid"
	msgKilled          = "courier executor died before completing the load"
	msgEmptyKey        = "key cannot be empty"
	msgLockHeld        = "one or more keys are already locked"
)

// NewErrMissing reports an absent (or lazily-expired) key.
func NewErrMissing(key string) error {
	return errors.NewWithField(ErrCodeMissing, msgMissing, "key", key)
}

// NewErrNonNumeric reports Incr/Decr against a non-numeric stored value.
func NewErrNonNumeric(key string, value interface{}) error {
	return errors.NewWithContext(ErrCodeNonNumeric, msgNonNumeric, map[string]interface{}{
		"key":   key,
		"value": fmt.Sprintf("%T", value),
	})
}

// NewErrCrossSlot reports a multi-key operation whose keys would span more
// than one node in a distributed deployment. keepr is single-node (spec.md
// §1 Non-goals exclude replication/consensus), so this is reserved for a
// future router and is never raised by the core today.
func NewErrCrossSlot(keys []string) error {
	return errors.NewWithContext(ErrCodeCrossSlot, msgCrossSlot, map[string]interface{}{
		"keys": keys,
	})
}

// NewErrUnreachableFile reports a persistence export/import I/O failure.
func NewErrUnreachableFile(path string, cause error) error {
	return errors.Wrap(cause, ErrCodeUnreachableFile, msgUnreachableFile).
		WithContext("path", path).
		AsRetryable()
}

// NewErrInvalidHook reports a hook subscription that failed validation
// (no handler, or a negative timeout).
func NewErrInvalidHook(reason string) error {
	return errors.NewWithField(ErrCodeInvalidHook, msgInvalidHook, "reason", reason)
}

// NewErrInvalidConfig reports a cache configuration that failed validation.
func NewErrInvalidConfig(reason string) error {
	return errors.NewWithField(ErrCodeInvalidConfig, msgInvalidConfig, "reason", reason)
}

// NewErrKilled reports that the Courier executor for a key died (panicked)
// while waiters were enqueued (spec.md §4.4.4).
func NewErrKilled(key string, cause interface{}) error {
	return errors.NewWithContext(ErrCodeKilled, msgKilled, map[string]interface{}{
		"key":   key,
		"cause": fmt.Sprintf("%v", cause),
	}).WithSeverity("critical")
}

// NewErrEmptyKey reports an empty key passed to an operation that requires one.
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrLockHeld reports a Locksmith transaction that could not start
// because not all requested keys were free.
func NewErrLockHeld(keys []string) error {
	return errors.NewWithContext(ErrCodeLockHeld, msgLockHeld, map[string]interface{}{
		"keys": keys,
	}).AsRetryable()
}

// NewErrGeneric wraps an arbitrary loader/transaction failure as error(reason)
// (spec.md §7's generic wrapper kind).
func NewErrGeneric(operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.Wrap(cause, ErrCodeGeneric, "operation failed").
		WithContext("operation", operation)
}

// IsMissing reports whether err is a "key not present" error.
func IsMissing(err error) bool { return errors.HasCode(err, ErrCodeMissing) }

// IsNonNumeric reports whether err is a non-numeric-value error.
func IsNonNumeric(err error) bool { return errors.HasCode(err, ErrCodeNonNumeric) }

// IsKilled reports whether err signals a dead Courier executor.
func IsKilled(err error) bool { return errors.HasCode(err, ErrCodeKilled) }

// IsRetryableErr reports whether err can be retried, per go-errors' Retryable
// interface.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// ErrorCode extracts the structured error code from err, or "" if err does
// not carry one.
func ErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
