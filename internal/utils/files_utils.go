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
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultOutputFileName is used when the output path names a directory.
const DefaultOutputFileName = "combined_all_years.csv"

// ParseColumnsFlag splits a comma separated list of column names.
// Surrounding whitespace is dropped; empty and repeated names are rejected.
func ParseColumnsFlag(columnsFlag string) ([]string, error) {
	if strings.TrimSpace(columnsFlag) == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	var columns []string
	for _, part := range strings.Split(columnsFlag, ",") {
		col := strings.TrimSpace(part)
		if col == "" {
			return nil, fmt.Errorf("empty column name in list: %q", columnsFlag)
		}
		if seen[col] {
			return nil, fmt.Errorf("column %q listed more than once", col)
		}
		seen[col] = true
		columns = append(columns, col)
	}
	return columns, nil
}

// ParseDelimiter turns a flag value into a field delimiter. The empty string
// selects a comma, "tab" and `\t` select a tab.
func ParseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError || size != len(value) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	switch r {
	case '"', '\r', '\n':
		return 0, fmt.Errorf("invalid delimiter %q", value)
	}
	return r, nil
}

// GetOutputFilePath resolves the output flag. An empty value or an existing
// directory gets DefaultOutputFileName.
func GetOutputFilePath(out string) string {
	if out == "" {
		return DefaultOutputFileName
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, DefaultOutputFileName)
	}
	return out
}
