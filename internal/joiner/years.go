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
	"sort"
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

// YearRange selects rows whose year column lies in [From, To].
type YearRange struct {
	Column string
	From   int64
	To     int64
}

func (r YearRange) String() string {
	if r.From == r.To {
		return strconv.FormatInt(r.From, 10)
	}
	return fmt.Sprintf("%d:%d", r.From, r.To)
}

// ParseYearRange parses "2015", "2000-2020" or "2000:2020". Negative years
// need the colon form.
func ParseYearRange(column, value string) (*YearRange, error) {
	value = strings.TrimSpace(value)
	from, to := value, value
	if i := strings.Index(value, ":"); i >= 0 {
		from, to = value[:i], value[i+1:]
	} else if i := strings.Index(value, "-"); i > 0 {
		from, to = value[:i], value[i+1:]
	}

	r := &YearRange{Column: column}
	var err error
	if r.From, err = strconv.ParseInt(strings.TrimSpace(from), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid year range %q", value)
	}
	if r.To, err = strconv.ParseInt(strings.TrimSpace(to), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid year range %q", value)
	}
	if r.From > r.To {
		return nil, fmt.Errorf("invalid year range %q: %d is after %d", value, r.From, r.To)
	}
	return r, nil
}

// FilterYears returns the rows of t whose year falls in r. Rows with an empty
// year are dropped.
func FilterYears(t *table.Table, r YearRange) (*table.Table, error) {
	pos, ok := t.ColumnIndex(r.Column)
	if !ok {
		return nil, &table.ErrMissingKeyColumn{Table: t.Name(), Columns: []string{r.Column}}
	}
	builder, err := table.NewBuilder(t.Name(), t.Header())
	if err != nil {
		return nil, err
	}

	err = t.Each(func(i int, row []string) error {
		year, present, err := parseInteger(row[pos])
		if err != nil {
			return &table.ErrMalformedInput{
				Path: t.Name(),
				Msg:  fmt.Sprintf("row %d: column %q: value %q is not an integer", i+1, r.Column, row[pos]),
				Err:  err,
			}
		}
		if !present || year < r.From || year > r.To {
			return nil
		}
		return builder.Append(append([]string(nil), row...))
	})
	if err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// ValueOverlap is the part of an Overlap whose keys share one column value.
type ValueOverlap struct {
	Value string
	Overlap
}

// OverlapBy splits ix.Overlap(other) by the canonical value of one key column.
// Integer values come first in numeric order, other values follow as text.
func (ix *Index) OverlapBy(other *Index, column string) ([]ValueOverlap, error) {
	pos := -1
	for i, c := range ix.keys.columns {
		if c == column {
			pos = i
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("column %q is not a key column", column)
	}

	byValue := make(map[string]*ValueOverlap)
	var out []*ValueOverlap
	for _, e := range ix.entries {
		match := other.find(e.parts, e.hash)
		if match == nil {
			continue
		}
		v, ok := byValue[e.parts[pos]]
		if !ok {
			v = &ValueOverlap{Value: e.parts[pos]}
			byValue[v.Value] = v
			out = append(out, v)
		}
		v.SharedKeys++
		v.ExpectedRows += len(e.rows) * len(match.rows)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.ParseInt(out[i].Value, 10, 64)
		b, errB := strconv.ParseInt(out[j].Value, 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil || errB == nil:
			return errA == nil
		}
		return out[i].Value < out[j].Value
	})
	result := make([]ValueOverlap, len(out))
	for i, v := range out {
		result[i] = *v
	}
	return result, nil
}
