// query.go: match-specification style predicates and projections over
// entries (spec.md §6 "Query expressions").
//
// cachex (the Elixir system this spec was distilled from) compiles queries
// into Erlang match-specs; Go has no equivalent runtime, so keepr expresses
// the same idea as composable predicate functions over a read-only view of
// an entry, with a small set of boolean combinators and named projections.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

// QueryEntry is the read-only view of an entry exposed to predicates and
// scans. TTL is 0 when the entry never expires.
type QueryEntry struct {
	Key      string
	Modified int64
	TTL      int64
	Value    interface{}
}

func toQueryEntry(e entry) QueryEntry {
	return QueryEntry{Key: e.key, Modified: e.modified, TTL: e.ttlNanos, Value: e.value}
}

// Predicate decides whether an entry belongs in a scan's result set.
type Predicate func(QueryEntry) bool

// Always matches every entry. The zero value of Query uses this.
func Always(QueryEntry) bool { return true }

// And composes predicates with boolean AND.
func And(preds ...Predicate) Predicate {
	return func(e QueryEntry) bool {
		for _, p := range preds {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}

// Or composes predicates with boolean OR. An empty Or matches nothing.
func Or(preds ...Predicate) Predicate {
	return func(e QueryEntry) bool {
		for _, p := range preds {
			if p != nil && p(e) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(e QueryEntry) bool { return !p(e) }
}

// KeyPrefix matches entries whose key starts with prefix. A common enough
// building block in match-spec style scans to warrant a named helper.
func KeyPrefix(prefix string) Predicate {
	return func(e QueryEntry) bool {
		return len(e.Key) >= len(prefix) && e.Key[:len(prefix)] == prefix
	}
}

// Unexpired wraps a predicate with the spec.md §6 helper clause: restrict
// results to entries where "ttl = none ∨ modified + ttl > now". Scans pass
// the clock in explicitly so the clause is evaluated against one consistent
// "now" for the whole scan rather than drifting per entry.
func Unexpired(now int64, p Predicate) Predicate {
	if p == nil {
		p = Always
	}
	return func(e QueryEntry) bool {
		if e.TTL > 0 && e.Modified+e.TTL <= now {
			return false
		}
		return p(e)
	}
}

// Projection names what a scan yields for each matching entry.
type Projection int

const (
	// ProjectEntry yields the whole QueryEntry.
	ProjectEntry Projection = iota
	// ProjectKey yields only the key (string).
	ProjectKey
	// ProjectValue yields only the value (interface{}).
	ProjectValue
)

// Query names a predicate plus what to project for matches. The zero Query
// matches everything and projects the whole entry.
type Query struct {
	Predicate  Predicate
	Projection Projection
}

func (q Query) predicate() Predicate {
	if q.Predicate == nil {
		return Always
	}
	return q.Predicate
}

func (q Query) project(e entry) interface{} {
	switch q.Projection {
	case ProjectKey:
		return e.key
	case ProjectValue:
		return e.value
	default:
		return toQueryEntry(e)
	}
}

// Iterator is a restartable lazy sequence of projected results, as required
// by the Entry Table's scan contract (spec.md §4.1). The Table collects the
// matches at Scan() time one shard at a time, so the set is not a
// point-in-time snapshot across shards (eventual consistency against
// concurrent writers, as spec.md §9 "Design Notes" allows); the collected
// results are then served lazily and can be replayed with Reset.
type Iterator struct {
	items []interface{}
	pos   int
}

// Next returns the next projected result, or (nil, false) when exhausted.
func (it *Iterator) Next() (interface{}, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

// Reset rewinds the iterator to replay the same snapshot from the start.
func (it *Iterator) Reset() { it.pos = 0 }

// Len reports how many results the iterator holds in total.
func (it *Iterator) Len() int { return len(it.items) }

// Collect drains the remaining results into a slice.
func (it *Iterator) Collect() []interface{} {
	out := make([]interface{}, 0, len(it.items)-it.pos)
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
