package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnsFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "Empty", input: "", want: nil},
		{name: "Blank", input: "   ", want: nil},
		{name: "Single", input: "Year", want: []string{"Year"}},
		{name: "Trimmed", input: " Entity , Code,Year ", want: []string{"Entity", "Code", "Year"}},
		{name: "Spaces inside names kept", input: "Life expectancy,Year", want: []string{"Life expectancy", "Year"}},
		{name: "Empty entry", input: "Entity,,Year", wantErr: true},
		{name: "Trailing comma", input: "Entity,", wantErr: true},
		{name: "Duplicate", input: "Year, Year", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColumnsFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		input   string
		want    rune
		wantErr bool
	}{
		{input: "", want: ','},
		{input: ",", want: ','},
		{input: ";", want: ';'},
		{input: "|", want: '|'},
		{input: "tab", want: '\t'},
		{input: `\t`, want: '\t'},
		{input: "\t", want: '\t'},
		{input: "§", want: '§'},
		{input: ";;", wantErr: true},
		{input: `"`, wantErr: true},
		{input: "\n", wantErr: true},
		{input: "\xff", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDelimiter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetOutputFilePath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, DefaultOutputFileName, GetOutputFilePath(""))
	assert.Equal(t, filepath.Join(dir, DefaultOutputFileName), GetOutputFilePath(dir))
	assert.Equal(t, filepath.Join(dir, "out.csv"), GetOutputFilePath(filepath.Join(dir, "out.csv")))
}
