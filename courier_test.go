// courier_test.go: single-flight load-through fetching (spec.md §4.4).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	stderrors "errors"
	"testing"
)

func newTestCourier() *courier {
	tbl := newTable(8)
	return newCourier(tbl, func() int64 { return 1000 }, true, 0, NoOpLogger{}, nil)
}

func TestCourier_Fetch_ReturnsCachedValueWithoutLoading(t *testing.T) {
	tbl := newTable(8)
	tbl.set("k", newEntry("k", 1000, 0, "cached"))
	c := newCourier(tbl, func() int64 { return 1000 }, true, 0, NoOpLogger{}, nil)

	called := false
	res, err := c.fetch(context.Background(), "k", func(ctx context.Context, key string) (interface{}, error) {
		called = true
		return "loaded", nil
	})
	if err != nil || res.Value != "cached" {
		t.Fatalf("expected cached value, got %+v err=%v", res, err)
	}
	if called {
		t.Error("loader must not run when the value is already cached")
	}
}

func TestCourier_Fetch_CommitsAndCallsAfterCommit(t *testing.T) {
	tbl := newTable(8)
	var committedKey string
	c := newCourier(tbl, func() int64 { return 1000 }, true, 0, NoOpLogger{}, func(key string, e entry) {
		committedKey = key
	})

	res, err := c.fetch(context.Background(), "k", func(ctx context.Context, key string) (interface{}, error) {
		return "v", nil
	})
	if err != nil || res.Status != StatusCommit || res.Value != "v" {
		t.Fatalf("unexpected result: %+v err=%v", res, err)
	}
	if committedKey != "k" {
		t.Error("expected afterCommit to be invoked with the key")
	}
	if e, ok := tbl.peek("k"); !ok || e.value != "v" {
		t.Error("expected the committed value to be written to the table")
	}
}

func TestCourier_Fetch_RequiresLoaderForMissingKey(t *testing.T) {
	c := newTestCourier()
	_, err := c.fetch(context.Background(), "missing", nil)
	if err == nil {
		t.Error("expected an error when no loader is provided for a missing key")
	}
}

func TestCourier_Fetch_EmptyKeyRejected(t *testing.T) {
	c := newTestCourier()
	_, err := c.fetch(context.Background(), "", func(ctx context.Context, key string) (interface{}, error) {
		return "v", nil
	})
	if err == nil {
		t.Error("expected an error for an empty key")
	}
}

func TestCourier_Fetch_LoaderErrorNotCached(t *testing.T) {
	tbl := newTable(8)
	c := newCourier(tbl, func() int64 { return 1000 }, true, 0, NoOpLogger{}, nil)
	wantErr := stderrors.New("boom")

	_, err := c.fetch(context.Background(), "k", func(ctx context.Context, key string) (interface{}, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the loader error to propagate, got %v", err)
	}
	if _, ok := tbl.peek("k"); ok {
		t.Error("a failed load must not write anything to the table")
	}
}

func TestCourier_Fetch_PanicBecomesKilledError(t *testing.T) {
	c := newTestCourier()
	_, err := c.fetch(context.Background(), "k", func(ctx context.Context, key string) (interface{}, error) {
		panic("executor died")
	})
	if !IsKilled(err) {
		t.Fatalf("expected a killed error, got %v", err)
	}
}

func TestCourier_InFlight(t *testing.T) {
	c := newTestCourier()
	if c.inFlight("k") {
		t.Error("expected no in-flight call before any fetch runs")
	}
}
