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
package table

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
)

// Write serializes t to w, header first.
func Write(w io.Writer, t *Table, opts Options) error {
	writer := csv.NewWriter(w)
	writer.Comma = opts.delimiter()

	if err := writer.Write(t.header); err != nil {
		return err
	}
	if err := t.Each(func(_ int, row []string) error {
		return writer.Write(row)
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes t to path. The table is written to a temporary file in the
// same directory and renamed into place, so path is either fully written or
// left untouched.
func WriteFile(path string, t *Table, opts Options) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return &ErrIO{Path: path, Msg: "failed to create output file", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	buffered := bufio.NewWriter(tmp)
	if err := Write(buffered, t, opts); err != nil {
		return &ErrIO{Path: path, Msg: "failed to write table", Err: err}
	}
	if err := buffered.Flush(); err != nil {
		return &ErrIO{Path: path, Msg: "failed to write table", Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &ErrIO{Path: path, Msg: "failed to set file mode", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &ErrIO{Path: path, Msg: "failed to sync output file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ErrIO{Path: path, Msg: "failed to close output file", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &ErrIO{Path: path, Msg: "failed to move output file into place", Err: err}
	}
	committed = true
	return nil
}
