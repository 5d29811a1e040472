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
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/table-joiner/internal/config"
	"github.com/GoogleCloudPlatform/table-joiner/internal/joiner"
	"github.com/GoogleCloudPlatform/table-joiner/internal/merger"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Report key cardinality of both tables",
		Long:    `Reads both tables and reports how often each key occurs and how many rows a merge would produce, without writing anything.`,
		Example: `./table_joiner inspect --left wid.csv --right life-expectancy.csv`,
		Args:    cobra.NoArgs,
		RunE:    runInspect,
	}

	// Flags for inspect command
	addSourceFlags(cmd.Flags())
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := config.Current()
	params, err := merger.ParamsFromConfig(cfg.Merge)
	if err != nil {
		return err
	}

	svc := merger.NewService(databaseOpener(cfg.Database), logger)
	report, err := svc.Inspect(cmd.Context(), params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	writeKeyStats(out, "Left", report.Left)
	writeKeyStats(out, "Right", report.Right)
	fmt.Fprintf(out, "Shared keys:     %d\n", report.Overlap.SharedKeys)
	fmt.Fprintf(out, "Merged rows:     %d\n", report.Overlap.ExpectedRows)
	if len(report.ByYear) > 0 {
		fmt.Fprintf(out, "Merged rows by %s:\n", params.YearColumn)
		for _, y := range report.ByYear {
			fmt.Fprintf(out, "  %s: %d\n", y.Value, y.ExpectedRows)
		}
	}
	return nil
}

func writeKeyStats(w io.Writer, side string, s joiner.KeyStats) {
	fmt.Fprintf(w, "%s: %s\n", side, s.Table)
	fmt.Fprintf(w, "  rows:             %d\n", s.Rows)
	fmt.Fprintf(w, "  distinct keys:    %d\n", s.DistinctKeys)
	fmt.Fprintf(w, "  duplicated keys:  %d\n", s.DuplicatedKeys)
	fmt.Fprintf(w, "  max rows per key: %d\n", s.MaxRowsPerKey)
}
