// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads the YAML description of a batch analysis run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/pincer/analysis"
	"gopkg.in/yaml.v3"
)

// Config describes a batch run over a cell index.
type Config struct {
	Source    string      `yaml:"source"`  // Directory holding the recordings
	Index     string      `yaml:"index"`   // Cell index CSV
	Labels    string      `yaml:"labels"`  // Optional cell labels CSV
	Channel   int         `yaml:"channel"` // Recording channel to analyse
	Naming    Naming      `yaml:"naming"`
	Analyses  []Analysis  `yaml:"analyses"`
	Secondary []Secondary `yaml:"secondary"`
	Output    Output      `yaml:"output"`
	Log       Log         `yaml:"log"`
}

// Naming controls how recording codes map to file names.
type Naming struct {
	Width int    `yaml:"width"` // Codes are zero padded to this many digits
	Ext   string `yaml:"ext"`   // File extension, including the dot
}

// Analysis assigns an analysis to every trace of an index group.
type Analysis struct {
	Group         string `yaml:"group"`
	analysis.Spec `yaml:",inline"`
}

// Secondary is a derived measure: the mean of several results of the same cell.
type Secondary struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Column addresses one result of a cell.
type Column struct {
	Trace string `yaml:"trace"`
	Label string `yaml:"label"`
}

// Output lists the export destinations. Empty entries are skipped.
type Output struct {
	CSV    string `yaml:"csv"`
	SQLite string `yaml:"sqlite"`
}

// Log configures diagnostics.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"` // 0 keeps rotated files regardless of age
}

// Defaults returns a Config with every optional field set.
func Defaults() Config {
	return Config{
		Naming: Naming{Width: 3, Ext: ".edf"},
		Log:    Log{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// Load reads the config at path over the defaults, applies environment
// overrides and resolves relative paths against the config's directory.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	cfg.ApplyEnv(os.Environ())
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes raw YAML over the defaults, rejecting unknown fields.
func Parse(raw []byte) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides a small set of keys from PINCER_ prefixed variables:
// SOURCE, LOG_LEVEL, LOG_FILE, OUTPUT_CSV and OUTPUT_SQLITE.
func (c *Config) ApplyEnv(environ []string) {
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "PINCER_") {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch strings.TrimPrefix(key, "PINCER_") {
		case "SOURCE":
			c.Source = val
		case "LOG_LEVEL":
			c.Log.Level = val
		case "LOG_FILE":
			c.Log.File = val
		case "OUTPUT_CSV":
			c.Output.CSV = val
		case "OUTPUT_SQLITE":
			c.Output.SQLite = val
		}
	}
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Source, &c.Index, &c.Labels, &c.Output.CSV, &c.Output.SQLite, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Index == "" {
		errs = append(errs, errors.New("index is required"))
	}
	if c.Channel < 0 {
		errs = append(errs, fmt.Errorf("channel must be >= 0, got %d", c.Channel))
	}
	if c.Log.MaxAgeDays < 0 {
		errs = append(errs, fmt.Errorf("log max_age_days must be >= 0, got %d", c.Log.MaxAgeDays))
	}
	if c.Naming.Width < 0 {
		errs = append(errs, fmt.Errorf("naming width must be >= 0, got %d", c.Naming.Width))
	}
	if len(c.Analyses) == 0 {
		errs = append(errs, errors.New("at least one analysis is required"))
	}
	for i, a := range c.Analyses {
		if a.Group == "" {
			errs = append(errs, fmt.Errorf("analyses[%d]: group is required", i))
		}
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("analyses[%d]: name is required", i))
		}
	}
	for i, s := range c.Secondary {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("secondary[%d]: name is required", i))
		}
		if len(s.Columns) == 0 {
			errs = append(errs, fmt.Errorf("secondary[%d]: at least one column is required", i))
		}
	}
	return errors.Join(errs...)
}
