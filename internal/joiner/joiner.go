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

// Package joiner implements a hash inner join of two tables on shared key columns.
package joiner

import (
	"fmt"

	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

// InnerJoin returns the rows of left and right whose keys match.
//
// The right table is indexed by key and every left row is looked up in it, so
// the join is linear in the size of both tables. Output rows follow left's
// row order; for one left row, matches are emitted in right's row order. A key
// found on m left rows and n right rows yields m*n output rows.
//
// The output header is every left column in order followed by every non-key
// right column in order. A right column whose name is already in the output is
// renamed by appending opts.Suffix until it is unique.
func InnerJoin(left, right *table.Table, opts Options) (*table.Table, error) {
	leftKeys, err := newKeyExtractor(left, opts)
	if err != nil {
		return nil, err
	}
	rightIndex, err := BuildIndex(right, opts)
	if err != nil {
		return nil, err
	}

	header, rightColumns := outputColumns(left, right, opts)
	builder, err := table.NewBuilder(fmt.Sprintf("%s+%s", left.Name(), right.Name()), header)
	if err != nil {
		return nil, err
	}
	builder.Grow(left.Len())

	err = left.Each(func(i int, leftRow []string) error {
		parts, hash, err := leftKeys.key(i, leftRow)
		if err != nil {
			return err
		}
		for _, r := range rightIndex.lookup(parts, hash) {
			rightRow := right.Row(r)
			joined := make([]string, 0, len(header))
			joined = append(joined, leftRow...)
			for _, pos := range rightColumns {
				joined = append(joined, rightRow[pos])
			}
			if err := builder.Append(joined); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// outputColumns returns the joined header and the positions of the right
// table's columns that are carried into it.
func outputColumns(left, right *table.Table, opts Options) ([]string, []int) {
	header := left.Header()
	used := make(map[string]bool, len(header))
	for _, name := range header {
		used[name] = true
	}
	keySet := make(map[string]bool, len(opts.Keys))
	for _, k := range opts.Keys {
		keySet[k] = true
	}

	var positions []int
	for pos, name := range right.Header() {
		if keySet[name] {
			continue
		}
		for used[name] {
			name += opts.suffix()
		}
		used[name] = true
		header = append(header, name)
		positions = append(positions, pos)
	}
	return header, positions
}
