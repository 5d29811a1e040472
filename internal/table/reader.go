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
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	DefaultDelimiter = ','

	byteOrderMark = "\ufeff"

	// ctxCheckInterval is how many records are read between context checks.
	ctxCheckInterval = 1024
)

// Options controls how delimited text is read and written.
type Options struct {
	// Delimiter separates fields. Zero means DefaultDelimiter.
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// ReadFile opens path and parses it as delimited text.
func ReadFile(ctx context.Context, path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ErrIO{Path: path, Msg: "failed to open file", Err: err}
	}
	defer f.Close()

	return Read(ctx, path, f, opts)
}

// Read parses delimited text from r. name identifies the source in errors.
func Read(ctx context.Context, name string, r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.delimiter()
	// Field counts are checked here so the error can carry the line number.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ErrMalformedInput{Path: name, Msg: "missing header"}
	}
	if err != nil {
		return nil, readError(name, err)
	}
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)

	builder, err := NewBuilder(name, header)
	if err != nil {
		return nil, err
	}

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(name, err)
		}
		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &ErrMalformedInput{
				Path: name,
				Line: line,
				Msg:  fmt.Sprintf("row has %d fields, header has %d", len(record), len(header)),
			}
		}
		if err := builder.Append(record); err != nil {
			return nil, err
		}
	}

	return builder.Build(), nil
}

func readError(name string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &ErrMalformedInput{Path: name, Line: parseErr.Line, Msg: "invalid delimited text", Err: parseErr.Err}
	}
	return &ErrIO{Path: name, Msg: "failed to read", Err: err}
}
