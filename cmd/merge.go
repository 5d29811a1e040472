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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/table-joiner/internal/config"
	"github.com/GoogleCloudPlatform/table-joiner/internal/merger"
	"github.com/GoogleCloudPlatform/table-joiner/internal/utils"
)

var (
	outputPath string
	suffix     string
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [LEFT RIGHT OUT]",
		Short: "Inner join two tables and save the result",
		Long: `Reads the left and right tables, keeps every combination of rows that share
the same key, and writes the joined table. Columns of the left table come first,
followed by the non-key columns of the right table.`,
		Example: `./table_joiner merge --left wid.csv --right life-expectancy.csv --out combined_all_years.csv
./table_joiner merge wid.csv life-expectancy.csv combined_all_years.csv
./table_joiner merge --right-table life_expectancy --dialect postgres --host localhost --username owid --database owid`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("accepts 0 or 3 arg(s) (LEFT RIGHT OUT), received %d", len(args))
			}
			return nil
		},
		RunE: runMerge,
	}

	defaults := config.GetConfig().Merge

	// Flags for merge command
	addSourceFlags(cmd.Flags())
	cmd.Flags().StringVarP(&outputPath, "out", "o", defaults.Output, "Output file path (a directory gets "+utils.DefaultOutputFileName+")")
	cmd.Flags().StringVar(&suffix, "suffix", defaults.Suffix, "Suffix for right table columns whose name is already used")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := config.Current()
	if len(args) == 3 {
		for _, name := range []string{"left", "right", "out"} {
			if cmd.Flags().Changed(name) {
				return fmt.Errorf("positional LEFT RIGHT OUT cannot be combined with --%s", name)
			}
		}
		cfg.Merge.Left, cfg.Merge.Right, cfg.Merge.Output = args[0], args[1], args[2]
	}
	cfg.Merge.Output = utils.GetOutputFilePath(cfg.Merge.Output)

	params, err := merger.ParamsFromConfig(cfg.Merge)
	if err != nil {
		return err
	}

	logger.Info("Starting merge operation",
		zap.String("left", params.Left.String()),
		zap.String("right", params.Right.String()),
		zap.Strings("keys", params.Join.Keys),
	)

	svc := merger.NewService(databaseOpener(cfg.Database), logger)
	result, err := svc.Run(cmd.Context(), params)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged file saved as %s\n", result.Output)
	logger.Info("Merge operation completed",
		zap.Int("left_rows", result.LeftRows),
		zap.Int("right_rows", result.RightRows),
		zap.Int("joined_rows", result.JoinedRows),
	)
	return nil
}
