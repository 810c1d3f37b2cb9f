// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML configuration file. Every field
// has a matching command-line flag; flags set explicitly on the
// command line override file values.
type fileConfig struct {
	Target    string   `yaml:"target"`
	Retain    string   `yaml:"retain"`
	ASCIIOnly bool     `yaml:"ascii_only"`
	Palette   string   `yaml:"palette"`
	NoColor   []string `yaml:"no_color"`
	LogLevel  string   `yaml:"log_level"`
	LogOutput string   `yaml:"log_output"`
}

// loadConfigFile reads and parses a YAML config file. Unknown keys
// are rejected so a typo fails loudly instead of being ignored.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &config, nil
}
