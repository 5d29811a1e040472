package joiner

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

func mustTable(t *testing.T, name string, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.New(name, header, rows)
	require.NoError(t, err)
	return tbl
}

func rows(t *table.Table) [][]string {
	out := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, t.Row(i))
	}
	return out
}

func TestInnerJoinSingleMatch(t *testing.T) {
	poverty := mustTable(t, "poverty", []string{"Entity", "Code", "Year", "poverty"},
		[]string{"Chad", "TCD", "2015", "40.2"},
	)
	life := mustTable(t, "life", []string{"Entity", "Code", "Year", "life_exp"},
		[]string{"Chad", "TCD", "2015", "52.1"},
		[]string{"Chad", "TCD", "2016", "53.0"},
	)

	got, err := InnerJoin(poverty, life, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Entity", "Code", "Year", "poverty", "life_exp"}, got.Header())
	require.Equal(t, 1, got.Len())
	assert.Equal(t, map[string]string{
		"Entity": "Chad", "Code": "TCD", "Year": "2015", "poverty": "40.2", "life_exp": "52.1",
	}, got.Record(0))
}

func TestInnerJoinCrossProductOnDuplicateKeys(t *testing.T) {
	left := mustTable(t, "left", []string{"Entity", "Code", "Year", "a"},
		[]string{"Chad", "TCD", "2015", "a1"},
		[]string{"Peru", "PER", "2015", "p1"},
		[]string{"Chad", "TCD", "2015", "a2"},
	)
	right := mustTable(t, "right", []string{"Entity", "Code", "Year", "b"},
		[]string{"Chad", "TCD", "2015", "b1"},
		[]string{"Chad", "TCD", "2015", "b2"},
		[]string{"Mali", "MLI", "2015", "m1"},
		[]string{"Chad", "TCD", "2015", "b3"},
	)

	got, err := InnerJoin(left, right, DefaultOptions())
	require.NoError(t, err)

	// Left order first, then right order within one left row.
	assert.Equal(t, [][]string{
		{"Chad", "TCD", "2015", "a1", "b1"},
		{"Chad", "TCD", "2015", "a1", "b2"},
		{"Chad", "TCD", "2015", "a1", "b3"},
		{"Chad", "TCD", "2015", "a2", "b1"},
		{"Chad", "TCD", "2015", "a2", "b2"},
		{"Chad", "TCD", "2015", "a2", "b3"},
	}, rows(got))
}

func TestInnerJoinNumericKeyEquivalence(t *testing.T) {
	tests := []struct {
		name      string
		leftYear  string
		rightYear string
		wantMatch bool
		wantErr   bool
	}{
		{name: "Same text", leftYear: "2020", rightYear: "2020", wantMatch: true},
		{name: "Trailing decimal zero", leftYear: "2020", rightYear: "2020.0", wantMatch: true},
		{name: "Leading zero", leftYear: "02020", rightYear: "2020", wantMatch: true},
		{name: "Surrounding whitespace", leftYear: " 2020 ", rightYear: "2020", wantMatch: true},
		{name: "Exponent form", leftYear: "2.02e3", rightYear: "2020", wantMatch: true},
		{name: "Different years", leftYear: "2020", rightYear: "2021"},
		{name: "Both missing", leftYear: "", rightYear: "", wantMatch: true},
		{name: "One missing", leftYear: "", rightYear: "2020"},
		{name: "Fractional year", leftYear: "2020", rightYear: "2020.5", wantErr: true},
		{name: "Huge exponent", leftYear: "1e30000000", rightYear: "2020", wantErr: true},
		{name: "Beyond int64", leftYear: "2020", rightYear: "99999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := mustTable(t, "left", []string{"Entity", "Code", "Year", "a"}, []string{"Chad", "TCD", tt.leftYear, "x"})
			right := mustTable(t, "right", []string{"Entity", "Code", "Year", "b"}, []string{"Chad", "TCD", tt.rightYear, "y"})

			got, err := InnerJoin(left, right, DefaultOptions())
			if tt.wantErr {
				var malformed *table.ErrMalformedInput
				assert.True(t, errors.As(err, &malformed), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			if tt.wantMatch {
				require.Equal(t, 1, got.Len())
				year, _ := got.Value(0, "Year")
				assert.Equal(t, tt.leftYear, year, "key values are taken from the left table")
			} else {
				assert.Equal(t, 0, got.Len())
			}
		})
	}
}

func TestInnerJoinStringKeysAreExact(t *testing.T) {
	left := mustTable(t, "left", []string{"Entity", "Code", "Year"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Africa", "", "2015"},
	)
	right := mustTable(t, "right", []string{"Entity", "Code", "Year", "b"},
		[]string{"chad", "TCD", "2015", "lower"},
		[]string{"Chad ", "TCD", "2015", "space"},
		[]string{"Africa", "", "2015", "region"},
	)

	got, err := InnerJoin(left, right, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Africa", "", "2015", "region"}}, rows(got))
}

func TestInnerJoinEmptyIntersection(t *testing.T) {
	left := mustTable(t, "left", []string{"Entity", "Code", "Year", "poverty"}, []string{"Chad", "TCD", "2015", "40.2"})
	right := mustTable(t, "right", []string{"Entity", "Code", "Year", "life_exp"}, []string{"Peru", "PER", "2015", "75.1"})

	got, err := InnerJoin(left, right, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"Entity", "Code", "Year", "poverty", "life_exp"}, got.Header())
}

func TestInnerJoinColumnCollisions(t *testing.T) {
	left := mustTable(t, "left", []string{"Entity", "Code", "Year", "Note", "Source"},
		[]string{"Chad", "TCD", "2015", "left note", "WID"},
	)
	right := mustTable(t, "right", []string{"Year", "Note", "Entity", "Note_right", "Code", "Source"},
		[]string{"2015", "right note", "Chad", "already suffixed", "TCD", "UN WPP"},
	)

	got, err := InnerJoin(left, right, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Entity", "Code", "Year", "Note", "Source", "Note_right", "Note_right_right", "Source_right"}, got.Header())
	assert.Equal(t, []string{"Chad", "TCD", "2015", "left note", "WID", "right note", "already suffixed", "UN WPP"}, got.Row(0))
}

func TestInnerJoinCustomSuffixAndKeys(t *testing.T) {
	left := mustTable(t, "left", []string{"id", "value"}, []string{"1", "l"})
	right := mustTable(t, "right", []string{"id", "value"}, []string{"1", "r"})

	got, err := InnerJoin(left, right, Options{Keys: []string{"id"}, Suffix: "_y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "value", "value_y"}, got.Header())
	assert.Equal(t, []string{"1", "l", "r"}, got.Row(0))
}

func TestInnerJoinMissingKeyColumn(t *testing.T) {
	complete := mustTable(t, "complete.csv", []string{"Entity", "Code", "Year"})
	noYear := mustTable(t, "no-year.csv", []string{"Entity", "Code", "year"})
	noCode := mustTable(t, "no-code.csv", []string{"Year", "Entity"})

	tests := []struct {
		name        string
		left, right *table.Table
		wantTable   string
		wantColumns []string
	}{
		{"Left lacks Year", noYear, complete, "no-year.csv", []string{"Year"}},
		{"Right lacks Code", complete, noCode, "no-code.csv", []string{"Code"}},
		{"Both lack columns, left reported", noCode, noYear, "no-code.csv", []string{"Code"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InnerJoin(tt.left, tt.right, DefaultOptions())
			var missing *table.ErrMissingKeyColumn
			require.True(t, errors.As(err, &missing), "expected ErrMissingKeyColumn, got %v", err)
			assert.Equal(t, tt.wantTable, missing.Table)
			assert.Equal(t, tt.wantColumns, missing.Columns)
		})
	}
}

func TestInnerJoinNonNumericYear(t *testing.T) {
	left := mustTable(t, "left.csv", []string{"Entity", "Code", "Year"}, []string{"Chad", "TCD", "2015"})
	right := mustTable(t, "right.csv", []string{"Entity", "Code", "Year"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Chad", "TCD", "n/a"},
	)

	_, err := InnerJoin(left, right, DefaultOptions())
	var malformed *table.ErrMalformedInput
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "right.csv", malformed.Path)
	assert.Contains(t, err.Error(), `row 2: key column "Year": value "n/a" is not an integer`)
}

func TestInnerJoinNoKeys(t *testing.T) {
	left := mustTable(t, "left", []string{"a"})
	_, err := InnerJoin(left, left, Options{})
	assert.Error(t, err)
}

func TestInnerJoinDeterministic(t *testing.T) {
	left, right := randomTables(t, rand.New(rand.NewSource(7)))

	render := func() []byte {
		joined, err := InnerJoin(left, right, DefaultOptions())
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, table.Write(&buf, joined, table.Options{}))
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())
}

// TestInnerJoinMatchesNestedLoop checks the hash join against a direct
// nested-loop evaluation of the inner join definition.
func TestInnerJoinMatchesNestedLoop(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			left, right := randomTables(t, rand.New(rand.NewSource(seed)))

			got, err := InnerJoin(left, right, DefaultOptions())
			require.NoError(t, err)

			var want [][]string
			for i := 0; i < left.Len(); i++ {
				l := left.Record(i)
				for j := 0; j < right.Len(); j++ {
					r := right.Record(j)
					ly, _ := canonicalNumber(l["Year"])
					ry, _ := canonicalNumber(r["Year"])
					if l["Entity"] == r["Entity"] && l["Code"] == r["Code"] && ly == ry {
						want = append(want, append(left.Row(i), r["life_exp"]))
					}
				}
			}
			if want == nil {
				want = [][]string{}
			}
			assert.Equal(t, want, rows(got))
		})
	}
}

func randomTables(t *testing.T, rng *rand.Rand) (*table.Table, *table.Table) {
	t.Helper()
	entities := []struct{ name, code string }{
		{"Chad", "TCD"}, {"Peru", "PER"}, {"Mali", "MLI"}, {"Africa", ""},
	}
	yearFormats := []string{"%d", "%d.0", "0%d"}

	gen := func(name, column string, n int) *table.Table {
		var data [][]string
		for i := 0; i < n; i++ {
			e := entities[rng.Intn(len(entities))]
			year := 2015 + rng.Intn(4)
			format := yearFormats[rng.Intn(len(yearFormats))]
			data = append(data, []string{e.name, e.code, fmt.Sprintf(format, year), fmt.Sprintf("%s-%d", column, i)})
		}
		return mustTable(t, name, []string{"Entity", "Code", "Year", column}, data...)
	}
	return gen("left", "poverty", 5+rng.Intn(20)), gen("right", "life_exp", 5+rng.Intn(20))
}

func TestIndexStatsAndOverlap(t *testing.T) {
	left := mustTable(t, "left", []string{"Entity", "Code", "Year"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Chad", "TCD", "2015.0"},
		[]string{"Peru", "PER", "2015"},
	)
	right := mustTable(t, "right", []string{"Entity", "Code", "Year"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Chad", "TCD", "2015"},
		[]string{"Mali", "MLI", "2015"},
	)

	leftIndex, err := BuildIndex(left, DefaultOptions())
	require.NoError(t, err)
	rightIndex, err := BuildIndex(right, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, KeyStats{Table: "left", Rows: 3, DistinctKeys: 2, DuplicatedKeys: 1, MaxRowsPerKey: 2}, leftIndex.Stats())
	assert.Equal(t, KeyStats{Table: "right", Rows: 4, DistinctKeys: 2, DuplicatedKeys: 1, MaxRowsPerKey: 3}, rightIndex.Stats())
	assert.Equal(t, 2, leftIndex.Len())

	overlap := leftIndex.Overlap(rightIndex)
	assert.Equal(t, Overlap{SharedKeys: 1, ExpectedRows: 6}, overlap)

	joined, err := InnerJoin(left, right, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, overlap.ExpectedRows, joined.Len())
}

func TestCanonicalNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2020", "2020", false},
		{"2020.000", "2020", false},
		{"002020", "2020", false},
		{"-5", "-5", false},
		{"-0", "0", false},
		{"2.02e3", "2020", false},
		{"2.020e3", "2020", false},
		{"9223372036854775807", "9223372036854775807", false},
		{"9223372036854775808", "", true},
		{"1.50", "", true},
		{"2020.5", "", true},
		{"1e30000000", "", true},
		{"1e300000000", "", true},
		{"0e-40", "", true},
		{"", "", false},
		{"   ", "", false},
		{"twenty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := canonicalNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
