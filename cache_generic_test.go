// cache_generic_test.go: the type-safe generic wrapper (spec.md §6).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"context"
	"testing"
)

type genericUser struct {
	Name string
}

func TestGenericCache_SetGet(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	c, err := NewGenericCache[string, genericUser](cfg)
	if err != nil {
		t.Fatalf("NewGenericCache failed: %v", err)
	}
	defer c.Close()

	c.Set("u1", genericUser{Name: "alice"})
	v, found := c.Get("u1")
	if !found || v.Name != "alice" {
		t.Fatalf("expected alice found=true, got %+v found=%v", v, found)
	}

	if _, found := c.Get("missing"); found {
		t.Error("expected missing key to report not found")
	}
}

func TestGenericCache_IntKeys(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	c, err := NewGenericCache[int, string](cfg)
	if err != nil {
		t.Fatalf("NewGenericCache failed: %v", err)
	}
	defer c.Close()

	c.Set(42, "the answer")
	v, found := c.Get(42)
	if !found || v != "the answer" {
		t.Fatalf("expected 'the answer', got %v found=%v", v, found)
	}
}

func TestGenericCache_Take(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	c, err := NewGenericCache[string, int](cfg)
	if err != nil {
		t.Fatalf("NewGenericCache failed: %v", err)
	}
	defer c.Close()

	c.Set("k", 7)
	v, found := c.Take("k")
	if !found || v != 7 {
		t.Fatalf("expected Take to return 7, got %v found=%v", v, found)
	}
	if c.Has("k") {
		t.Error("Take must remove the key")
	}
}

func TestGenericCache_Fetch(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	c, err := NewGenericCache[int, genericUser](cfg)
	if err != nil {
		t.Fatalf("NewGenericCache failed: %v", err)
	}
	defer c.Close()

	calls := 0
	loader := func(ctx context.Context, id int) (genericUser, error) {
		calls++
		return genericUser{Name: "loaded"}, nil
	}

	v, err := c.Fetch(context.Background(), 1, loader)
	if err != nil || v.Name != "loaded" {
		t.Fatalf("unexpected fetch result: %+v err=%v", v, err)
	}
	c.Fetch(context.Background(), 1, loader)
	if calls != 1 {
		t.Errorf("expected loader to run once, got %d", calls)
	}
}

func TestGenericCache_ClearAndStats(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	c, err := NewGenericCache[string, int](cfg)
	if err != nil {
		t.Fatalf("NewGenericCache failed: %v", err)
	}
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	if n := c.Clear(); n != 2 {
		t.Errorf("expected Clear to report 2, got %d", n)
	}
	s := c.Stats()
	if s.Sets != 2 {
		t.Errorf("expected 2 recorded sets, got %d", s.Sets)
	}
}

func TestGenericCache_TypeMismatchReportsMissing(t *testing.T) {
	cfg := DefaultConfig(t.Name())
	raw, err := NewCache(cfg)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	defer raw.Close()
	// Write a value of the wrong dynamic type directly through the
	// untyped facade the generic wrapper shares a registry with.
	raw.Set("k", "a string, not an int")

	gc := &GenericCache[string, int]{inner: raw}
	if v, found := gc.Get("k"); found {
		t.Errorf("expected a type mismatch to report not-found, got %v", v)
	}
}
