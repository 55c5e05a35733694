// persistence.go: export/import a cache's contents to/from a file
// (spec.md §6 Persistence).
//
// No example repo in the retrieved pack imports a third-party
// compression library, so this uses compress/zlib from the standard
// library — see DESIGN.md for that justification. The on-wire record
// format is a length-prefixed stream of gob-encoded persistedEntry
// values so Export/Import round-trip through an ordinary io.Writer/
// io.Reader without needing the whole table in memory twice.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keepr

import (
	"compress/zlib"
	"encoding/gob"
	"io"
	"os"
)

// persistedEntry is the on-disk record for one table row.
type persistedEntry struct {
	Key      string
	Modified int64
	TTL      int64
	Value    interface{}
}

// Export writes every live (unexpired) entry in the cache to path,
// zlib-compressed gob. gob requires concrete value types to have been
// registered with gob.Register if they are not one of its built-ins.
func (e *engine) Export(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, NewErrUnreachableFile(path, err)
	}
	defer f.Close()

	zw := zlib.NewWriter(f)
	enc := gob.NewEncoder(zw)

	now := e.timeProvider.Now()
	count := 0
	it := e.tbl.scan(Query{Predicate: Unexpired(now, Always), Projection: ProjectEntry})
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		qe := v.(QueryEntry)
		rec := persistedEntry{Key: qe.Key, Modified: qe.Modified, TTL: qe.TTL, Value: qe.Value}
		if encErr := enc.Encode(&rec); encErr != nil {
			zw.Close()
			return count, NewErrUnreachableFile(path, encErr)
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, NewErrUnreachableFile(path, err)
	}
	return count, nil
}

// Import loads entries from a file previously written by Export, writing
// each one through the table directly (bypassing Set's hook dispatch, so
// a bulk restore does not replay per-key pre/post hooks). Entries whose
// original TTL window has already elapsed by the current clock are
// skipped rather than inserted pre-expired.
func (e *engine) Import(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, NewErrUnreachableFile(path, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return 0, NewErrUnreachableFile(path, err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	now := e.timeProvider.Now()
	count := 0
	for {
		var rec persistedEntry
		if decErr := dec.Decode(&rec); decErr != nil {
			if decErr == io.EOF {
				break
			}
			return count, NewErrUnreachableFile(path, decErr)
		}
		ent := entry{key: rec.Key, modified: rec.Modified, ttlNanos: rec.TTL, value: rec.Value}
		if ent.expired(now) {
			continue
		}
		e.tbl.set(rec.Key, ent)
		count++
	}
	if e.limit != nil {
		e.limit.afterWrite()
	}
	return count, nil
}
