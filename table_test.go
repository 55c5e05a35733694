// table_test.go: the sharded Entry Table (spec.md §4.1).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"sync"
	"testing"
)

func TestTable_SetGet(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 0, "v1"))

	e, found := tbl.get("a", 200, false)
	if !found {
		t.Fatal("expected to find a")
	}
	if e.value != "v1" {
		t.Errorf("expected v1, got %v", e.value)
	}
	if tbl.size() != 1 {
		t.Errorf("expected size 1, got %d", tbl.size())
	}
}

func TestTable_Get_ExpiredIsMiss(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 50, "v1"))

	if _, found := tbl.get("a", 200, false); found {
		t.Error("expired entry must not be returned")
	}
}

func TestTable_Get_LazyRemovesExpired(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 50, "v1"))

	tbl.get("a", 200, true)
	if _, ok := tbl.peek("a"); ok {
		t.Error("lazy get should have deleted the expired entry")
	}
	if tbl.size() != 0 {
		t.Errorf("expected size 0 after lazy eviction, got %d", tbl.size())
	}
}

func TestTable_Get_NonLazyLeavesExpiredInPlace(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 50, "v1"))

	tbl.get("a", 200, false)
	if _, ok := tbl.peek("a"); !ok {
		t.Error("non-lazy get must not remove the expired row")
	}
}

func TestTable_InsertNew(t *testing.T) {
	tbl := newTable(8)
	if !tbl.insertNew("a", newEntry("a", 100, 0, "v1"), 100) {
		t.Fatal("first insertNew should succeed")
	}
	if tbl.insertNew("a", newEntry("a", 100, 0, "v2"), 100) {
		t.Error("insertNew must not overwrite a live entry")
	}
	e, _ := tbl.peek("a")
	if e.value != "v1" {
		t.Errorf("value should remain v1, got %v", e.value)
	}

	// Expired existing entry should be replaceable.
	tbl.set("b", newEntry("b", 100, 10, "old"))
	if !tbl.insertNew("b", newEntry("b", 200, 0, "new"), 200) {
		t.Error("insertNew should succeed over an expired entry")
	}
	e, _ = tbl.peek("b")
	if e.value != "new" {
		t.Errorf("expected new value after insertNew over expired, got %v", e.value)
	}
}

func TestTable_Delete(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 0, "v1"))
	e, ok := tbl.delete("a")
	if !ok || e.value != "v1" {
		t.Fatalf("expected delete to return v1, got %v ok=%v", e.value, ok)
	}
	if _, ok := tbl.delete("a"); ok {
		t.Error("second delete should report false")
	}
	if tbl.size() != 0 {
		t.Errorf("expected size 0, got %d", tbl.size())
	}
}

func TestTable_Has(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 50, "v1"))
	if !tbl.has("a", 120) {
		t.Error("expected has to report true for a live entry")
	}
	if tbl.has("a", 200) {
		t.Error("expected has to report false for an expired entry")
	}
	if tbl.has("missing", 120) {
		t.Error("expected has to report false for a missing key")
	}
}

func TestTable_Mutate_InsertOnMissing(t *testing.T) {
	tbl := newTable(8)
	result, found, applied := tbl.mutate("a", 100, func(cur entry, found bool) (entry, bool, bool) {
		if found {
			t.Fatal("key should not be found")
		}
		return newEntry("a", 100, 0, "created"), true, false
	})
	if found {
		t.Error("found should be false for a fresh key")
	}
	if !applied {
		t.Error("applied should be true when fn writes")
	}
	if result.value != "created" {
		t.Errorf("expected created, got %v", result.value)
	}
}

func TestTable_Mutate_Delete(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 0, "v1"))
	_, found, applied := tbl.mutate("a", 200, func(cur entry, found bool) (entry, bool, bool) {
		return entry{}, false, true
	})
	if !found || !applied {
		t.Errorf("expected found=true applied=true, got found=%v applied=%v", found, applied)
	}
	if tbl.size() != 0 {
		t.Errorf("expected size 0 after mutate-delete, got %d", tbl.size())
	}
}

func TestTable_Mutate_NoOp(t *testing.T) {
	tbl := newTable(8)
	tbl.set("a", newEntry("a", 100, 0, "v1"))
	_, found, applied := tbl.mutate("a", 200, func(cur entry, found bool) (entry, bool, bool) {
		return cur, false, false
	})
	if !found {
		t.Error("expected found=true")
	}
	if applied {
		t.Error("expected applied=false for a no-op mutate")
	}
	e, _ := tbl.peek("a")
	if e.value != "v1" {
		t.Errorf("value must be unchanged, got %v", e.value)
	}
}

func TestTable_Clear(t *testing.T) {
	tbl := newTable(8)
	for i := 0; i < 10; i++ {
		tbl.set(string(rune('a'+i)), newEntry(string(rune('a'+i)), 100, 0, i))
	}
	if n := tbl.clear(); n != 10 {
		t.Errorf("expected clear to report 10, got %d", n)
	}
	if tbl.size() != 0 {
		t.Errorf("expected size 0 after clear, got %d", tbl.size())
	}
}

func TestTable_Sweep_RemovesOnlyExpired(t *testing.T) {
	tbl := newTable(8)
	tbl.set("live", newEntry("live", 100, 0, "v"))
	tbl.set("dead", newEntry("dead", 100, 10, "v"))

	removed := tbl.sweep(200, 0)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := tbl.peek("dead"); ok {
		t.Error("expired entry should have been swept")
	}
	if _, ok := tbl.peek("live"); !ok {
		t.Error("live entry must survive a sweep")
	}
}

func TestTable_Sweep_RespectsLimit(t *testing.T) {
	tbl := newTable(4)
	for i := 0; i < 20; i++ {
		k := string(rune('a' + i))
		tbl.set(k, newEntry(k, 100, 10, "v"))
	}
	removed := tbl.sweep(200, 5)
	if removed != 5 {
		t.Errorf("expected sweep to stop at limit 5, got %d", removed)
	}
}

func TestTable_Scan(t *testing.T) {
	tbl := newTable(8)
	tbl.set("user:1", newEntry("user:1", 100, 0, "alice"))
	tbl.set("user:2", newEntry("user:2", 100, 0, "bob"))
	tbl.set("order:1", newEntry("order:1", 100, 0, "widget"))

	it := tbl.scan(Query{Predicate: KeyPrefix("user:"), Projection: ProjectValue})
	got := it.Collect()
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
}

func TestTable_ConcurrentAccess(t *testing.T) {
	tbl := newTable(16)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := string(rune('a' + i%26))
			tbl.set(k, newEntry(k, 100, 0, i))
			tbl.get(k, 100, false)
			tbl.mutate(k, 100, func(cur entry, found bool) (entry, bool, bool) {
				return cur, false, false
			})
		}(i)
	}
	wg.Wait()
}
