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
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/table-joiner/internal/config"
	"github.com/GoogleCloudPlatform/table-joiner/internal/database"
	_ "github.com/GoogleCloudPlatform/table-joiner/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/table-joiner/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/table-joiner/internal/database/sqlserver"
	"github.com/GoogleCloudPlatform/table-joiner/internal/logging"
	"github.com/GoogleCloudPlatform/table-joiner/internal/merger"
	"github.com/GoogleCloudPlatform/table-joiner/internal/utils"
)

var supportedDialects = []string{"postgres", "mysql", "sqlserver", "cloudsqlpostgres", "cloudsqlmysql", "cloudsqlsqlserver"}

var (
	configFile string
	logLevel   string

	// Input and join flags, shared by merge and inspect
	leftPath    string
	rightPath   string
	leftTable   string
	rightTable  string
	keys        string
	numericKeys string
	delimiter   string
	years       string
	yearColumn  string

	// Database connection flags
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	sslMode                        string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool

	logger      = zap.NewNop()
	syncLogger  = func() {}
	rootCmd     = newRootCmd()
	flagOverlay = []struct {
		name  string
		apply func(cfg *config.Config) error
	}{
		{"log-level", func(cfg *config.Config) error { cfg.LogLevel = logLevel; return nil }},
		{"left", func(cfg *config.Config) error { cfg.Merge.Left = leftPath; return nil }},
		{"right", func(cfg *config.Config) error { cfg.Merge.Right = rightPath; return nil }},
		{"left-table", func(cfg *config.Config) error { cfg.Merge.LeftTable = leftTable; return nil }},
		{"right-table", func(cfg *config.Config) error { cfg.Merge.RightTable = rightTable; return nil }},
		{"out", func(cfg *config.Config) error { cfg.Merge.Output = outputPath; return nil }},
		{"suffix", func(cfg *config.Config) error { cfg.Merge.Suffix = suffix; return nil }},
		{"delimiter", func(cfg *config.Config) error { cfg.Merge.Delimiter = delimiter; return nil }},
		{"years", func(cfg *config.Config) error { cfg.Merge.Years = years; return nil }},
		{"year-column", func(cfg *config.Config) error { cfg.Merge.YearColumn = yearColumn; return nil }},
		{"keys", func(cfg *config.Config) (err error) {
			cfg.Merge.Keys, err = utils.ParseColumnsFlag(keys)
			return err
		}},
		{"numeric-keys", func(cfg *config.Config) (err error) {
			cfg.Merge.NumericKeys, err = utils.ParseColumnsFlag(numericKeys)
			return err
		}},
		{"dialect", func(cfg *config.Config) error { cfg.Database.Dialect = dialect; return nil }},
		{"host", func(cfg *config.Config) error { cfg.Database.Host = host; return nil }},
		{"port", func(cfg *config.Config) error { cfg.Database.Port = port; return nil }},
		{"username", func(cfg *config.Config) error { cfg.Database.User = username; return nil }},
		{"password", func(cfg *config.Config) error { cfg.Database.Password = password; return nil }},
		{"database", func(cfg *config.Config) error { cfg.Database.DBName = dbName; return nil }},
		{"sslmode", func(cfg *config.Config) error { cfg.Database.SSLMode = sslMode; return nil }},
		{"cloudsql-instance-connection-name", func(cfg *config.Config) error {
			cfg.Database.CloudSQLInstanceConnectionName = cloudSQLInstanceConnectionName
			return nil
		}},
		{"cloudsql-use-private-ip", func(cfg *config.Config) error {
			cfg.Database.UsePrivateIP = cloudSQLUsePrivateIP
			return nil
		}},
	}
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table_joiner",
		Short: "A tool to inner join two tables on Entity, Code and Year",
		Long: `table_joiner reads two delimited text tables (or database tables), keeps the
rows whose key columns appear in both, and writes the joined table to a new file.`,
		PersistentPreRunE: initFlagsAndConfig,
		SilenceUsage:      true,
	}

	defaults := config.GetConfig()

	// Global persistent flags
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json) overlaid on the defaults")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	// Database connection flags
	cmd.PersistentFlags().StringVar(&dialect, "dialect", defaults.Database.Dialect, fmt.Sprintf("Database dialect for table sources (%s)", strings.Join(supportedDialects, ", ")))
	cmd.PersistentFlags().StringVar(&host, "host", defaults.Database.Host, "Database host")
	cmd.PersistentFlags().IntVar(&port, "port", defaults.Database.Port, "Database port")
	cmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	cmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	cmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	cmd.PersistentFlags().StringVar(&sslMode, "sslmode", defaults.Database.SSLMode, "SSL mode (postgres)")
	cmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	cmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Add subcommands
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newInspectCmd())
	return cmd
}

// addSourceFlags registers the input and join flags shared by merge and inspect.
func addSourceFlags(flags *pflag.FlagSet) {
	defaults := config.GetConfig().Merge

	flags.StringVar(&leftPath, "left", defaults.Left, "Left input file")
	flags.StringVar(&rightPath, "right", defaults.Right, "Right input file")
	flags.StringVar(&leftTable, "left-table", "", "Database table read instead of --left")
	flags.StringVar(&rightTable, "right-table", "", "Database table read instead of --right")
	flags.StringVar(&keys, "keys", strings.Join(defaults.Keys, ","), "Comma separated key columns")
	flags.StringVar(&numericKeys, "numeric-keys", strings.Join(defaults.NumericKeys, ","), "Comma separated key columns compared as numbers")
	flags.StringVar(&delimiter, "delimiter", defaults.Delimiter, `Field delimiter of input and output files ("tab" for a tab)`)
	flags.StringVar(&years, "years", defaults.Years, `Keep only rows from one year or an inclusive range ("2015", "2000-2020")`)
	flags.StringVar(&yearColumn, "year-column", defaults.YearColumn, "Column holding the year")
}

// initFlagsAndConfig loads the config file, applies explicitly set flags on
// top of it and sets up logging.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cmd != nil {
		for _, o := range flagOverlay {
			if f := cmd.Flags().Lookup(o.name); f == nil || !f.Changed {
				continue
			}
			if err := o.apply(cfg); err != nil {
				return fmt.Errorf("invalid --%s: %w", o.name, err)
			}
		}
	}
	config.SetConfig(cfg)

	l, cleanup, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	syncLogger()
	logger, syncLogger = l, cleanup
	zap.ReplaceGlobals(logger)
	return nil
}

func validateDialect(dialect string) error {
	for _, supportedDialect := range supportedDialects {
		if dialect == supportedDialect {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
}

// databaseOpener connects lazily, only when a table source is requested.
func databaseOpener(cfg config.DatabaseConfig) merger.Opener {
	return func(ctx context.Context) (database.TableSource, error) {
		if err := validateDialect(cfg.Dialect); err != nil {
			return nil, err
		}
		db, err := database.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", zap.String("dialect", cfg.Dialect), zap.Error(err))
			return nil, err
		}
		return db, nil
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { syncLogger() }()
	return rootCmd.Execute()
}
