/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package joiner

import (
	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

// entry groups the rows sharing one canonical key.
type entry struct {
	parts []string
	hash  uint64
	rows  []int
}

// Index maps each canonical key of a table to the ordered list of rows that
// carry it. Rows with the same key keep their table order.
type Index struct {
	keys    *keyExtractor
	buckets map[uint64][]*entry
	entries []*entry // first-seen order
}

// BuildIndex indexes t on opts.Keys.
func BuildIndex(t *table.Table, opts Options) (*Index, error) {
	keys, err := newKeyExtractor(t, opts)
	if err != nil {
		return nil, err
	}
	ix := &Index{
		keys:    keys,
		buckets: make(map[uint64][]*entry, t.Len()),
	}
	err = t.Each(func(i int, row []string) error {
		parts, hash, err := keys.key(i, row)
		if err != nil {
			return err
		}
		if e := ix.find(parts, hash); e != nil {
			e.rows = append(e.rows, i)
			return nil
		}
		e := &entry{parts: parts, hash: hash, rows: []int{i}}
		ix.buckets[hash] = append(ix.buckets[hash], e)
		ix.entries = append(ix.entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// find resolves hash collisions by comparing the key parts.
func (ix *Index) find(parts []string, hash uint64) *entry {
	for _, e := range ix.buckets[hash] {
		if equalParts(e.parts, parts) {
			return e
		}
	}
	return nil
}

// lookup returns the rows whose key equals parts, in table order.
func (ix *Index) lookup(parts []string, hash uint64) []int {
	if e := ix.find(parts, hash); e != nil {
		return e.rows
	}
	return nil
}

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Stats reports the key cardinality of the indexed table.
func (ix *Index) Stats() KeyStats {
	stats := KeyStats{
		Table:        ix.keys.table.Name(),
		Rows:         ix.keys.table.Len(),
		DistinctKeys: len(ix.entries),
	}
	for _, e := range ix.entries {
		if len(e.rows) > 1 {
			stats.DuplicatedKeys++
		}
		if len(e.rows) > stats.MaxRowsPerKey {
			stats.MaxRowsPerKey = len(e.rows)
		}
	}
	return stats
}

// Overlap compares the keys of two indexes built with the same options.
func (ix *Index) Overlap(other *Index) Overlap {
	var o Overlap
	for _, e := range ix.entries {
		if match := other.find(e.parts, e.hash); match != nil {
			o.SharedKeys++
			o.ExpectedRows += len(e.rows) * len(match.rows)
		}
	}
	return o
}
