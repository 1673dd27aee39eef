// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the per-project config file looked up under the
// project root.
const DefaultConfigName = ".bughound.yaml"

// Config is the optional per-project configuration.
type Config struct {
	// Tier is the default scan tier when --tier is not given.
	Tier string `yaml:"tier"`

	// Includes and Excludes override the built-in discovery globs.
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`

	// CacheDir overrides where persisted documents live, relative to
	// the project root.
	CacheDir string `yaml:"cache_dir"`

	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`
}

// LoadConfig reads the config file. An explicit path must exist; the
// default per-project file is optional.
func LoadConfig(root, explicit string) (Config, error) {
	var cfg Config

	path := explicit
	if path == "" {
		path = filepath.Join(root, DefaultConfigName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && explicit == "" {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
