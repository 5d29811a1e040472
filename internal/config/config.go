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
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Merge    MergeConfig    `mapstructure:"merge"`
	Database DatabaseConfig `mapstructure:"database"`
	LogLevel string         `mapstructure:"log_level"`
}

// MergeConfig holds the inputs, output and join settings
type MergeConfig struct {
	Left        string   `mapstructure:"left"`
	Right       string   `mapstructure:"right"`
	LeftTable   string   `mapstructure:"left_table"`  // Database table used instead of Left
	RightTable  string   `mapstructure:"right_table"` // Database table used instead of Right
	Output      string   `mapstructure:"output"`
	Keys        []string `mapstructure:"keys"`
	NumericKeys []string `mapstructure:"numeric_keys"`
	Suffix      string   `mapstructure:"suffix"`
	Delimiter   string   `mapstructure:"delimiter"`
	Years       string   `mapstructure:"years"`       // Year or range kept in the output, e.g. "2000-2020"
	YearColumn  string   `mapstructure:"year_column"` // Column the Years filter applies to
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"user"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"name"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"cloudsql_use_private_ip"`
}

var globalConfig *Config

// GetConfig returns a default configuration. Configuration will be set by flags in root.go
func GetConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			Left:        "income-share-distribution-before-tax-wid.csv",
			Right:       "life-expectancy.csv",
			Output:      "combined_all_years.csv",
			Keys:        []string{"Entity", "Code", "Year"},
			NumericKeys: []string{"Year"},
			Suffix:      "_right",
			Delimiter:   ",",
			YearColumn:  "Year",
		},
		Database: DatabaseConfig{
			Dialect: "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		LogLevel: "info",
	}
}

// Load returns the defaults overlaid with the settings in the config file at
// path. An empty path returns the defaults. The file format follows its
// extension (yaml, toml, json).
func Load(path string) (*Config, error) {
	cfg := GetConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}

// Current returns the configuration set with SetConfig, or the defaults.
func Current() *Config {
	if globalConfig == nil {
		return GetConfig()
	}
	return globalConfig
}
