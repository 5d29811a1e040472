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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

// keyExtractor computes canonical join keys for the rows of one table.
type keyExtractor struct {
	table     *table.Table
	columns   []string
	positions []int
	numeric   []bool
}

// newKeyExtractor resolves the key columns against t's header.
func newKeyExtractor(t *table.Table, opts Options) (*keyExtractor, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("no key columns configured")
	}
	ke := &keyExtractor{
		table:     t,
		columns:   opts.Keys,
		positions: make([]int, len(opts.Keys)),
		numeric:   make([]bool, len(opts.Keys)),
	}
	var missing []string
	for i, col := range opts.Keys {
		pos, ok := t.ColumnIndex(col)
		if !ok {
			missing = append(missing, col)
			continue
		}
		ke.positions[i] = pos
		ke.numeric[i] = opts.isNumeric(col)
	}
	if len(missing) > 0 {
		return nil, &table.ErrMissingKeyColumn{Table: t.Name(), Columns: missing}
	}
	return ke, nil
}

// key returns the canonical key parts of row and their hash.
// rowIndex is 0-based and only used for error reporting.
func (ke *keyExtractor) key(rowIndex int, row []string) ([]string, uint64, error) {
	parts := make([]string, len(ke.positions))
	d := xxhash.New()
	for i, pos := range ke.positions {
		value := row[pos]
		if ke.numeric[i] {
			canonical, err := canonicalNumber(value)
			if err != nil {
				return nil, 0, &table.ErrMalformedInput{
					Path: ke.table.Name(),
					Msg:  fmt.Sprintf("row %d: key column %q: value %q is not an integer", rowIndex+1, ke.columns[i], value),
					Err:  err,
				}
			}
			value = canonical
		}
		parts[i] = value
		_, _ = d.WriteString(value)
		_, _ = d.Write([]byte{0})
	}
	return parts, d.Sum64(), nil
}

// maxKeyExponent bounds the decimal exponent accepted in a numeric key, so
// inputs such as "1e30000000" are rejected before they are expanded.
const maxKeyExponent = 32

var (
	minKeyValue = decimal.NewFromInt(math.MinInt64)
	maxKeyValue = decimal.NewFromInt(math.MaxInt64)
)

// parseInteger parses a numeric key value. Surrounding whitespace is ignored.
// "2020", "2020.0", "02020" and "2.02e3" all parse to 2020. ok is false for
// the empty missing marker.
func parseInteger(value string) (n int64, ok bool, err error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, false, err
	}
	if exp := d.Exponent(); exp > maxKeyExponent || exp < -maxKeyExponent {
		return 0, false, fmt.Errorf("exponent %d out of range", exp)
	}
	if !d.IsInteger() {
		return 0, false, fmt.Errorf("fractional value")
	}
	if d.LessThan(minKeyValue) || d.GreaterThan(maxKeyValue) {
		return 0, false, fmt.Errorf("value out of range")
	}
	return d.IntPart(), true, nil
}

// canonicalNumber returns the decimal text of a numeric key value so that
// equal integers have equal text. The empty missing marker stays empty.
func canonicalNumber(value string) (string, error) {
	n, ok, err := parseInteger(value)
	if err != nil || !ok {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
