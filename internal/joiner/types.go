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

// DefaultSuffix is appended to right-table columns whose name is already taken
const DefaultSuffix = "_right"

// Options configures the join
type Options struct {
	Keys        []string // Key columns, present in both tables
	NumericKeys []string // Subset of Keys compared by parsed numeric value
	Suffix      string   // Suffix for clashing right-table column names
}

// DefaultOptions joins on Entity, Code and Year with Year compared numerically
func DefaultOptions() Options {
	return Options{
		Keys:        []string{"Entity", "Code", "Year"},
		NumericKeys: []string{"Year"},
		Suffix:      DefaultSuffix,
	}
}

func (o Options) suffix() string {
	if o.Suffix == "" {
		return DefaultSuffix
	}
	return o.Suffix
}

func (o Options) isNumeric(column string) bool {
	for _, k := range o.NumericKeys {
		if k == column {
			return true
		}
	}
	return false
}

// KeyStats summarizes key cardinality for one table
type KeyStats struct {
	Table          string
	Rows           int
	DistinctKeys   int
	DuplicatedKeys int // Keys that occur on more than one row
	MaxRowsPerKey  int
}

// Overlap summarizes how two tables' keys intersect
type Overlap struct {
	SharedKeys   int // Distinct keys present in both tables
	ExpectedRows int // Rows an inner join of the two tables produces
}
