// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the configuration of the command from defaults,
// a YAML file, .env files and QRCARD_* environment variables, in order
// of increasing precedence.  Command line flags are applied last by the
// caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "qrcard.yaml"

// EnvPrefix prefixes environment variable names.
const EnvPrefix = "QRCARD_"

// Config holds the configuration of the command.
type Config struct {
	OutputDir string `yaml:"output_dir"` // directory of image files

	Scale     int  `yaml:"scale"`      // preferred pixels per module
	QuietZone bool `yaml:"quiet_zone"` // add a quiet zone
	MinSize   int  `yaml:"min_size"`   // minimum code side in pixels, 0 for none
	MaxSize   int  `yaml:"max_size"`   // maximum code side in pixels, 0 for none

	Width  int `yaml:"width"`  // canvas width
	Top    int `yaml:"top"`    // margin above the code
	Gap    int `yaml:"gap"`    // margin between the code and the label
	Bottom int `yaml:"bottom"` // margin below the label

	Font     string  `yaml:"font"`      // font file, empty for Go Regular
	FontSize float64 `yaml:"font_size"` // label font size in pixels
	Label    string  `yaml:"label"`     // label date layout, see time.Layout

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console or json
}

// Defaults returns the default configuration: a code of at most 160
// pixels at 4 pixels per module without a quiet zone, on a 200 pixel
// wide canvas with 120 pixels of margins and a 20 pixel label.
func Defaults() *Config {
	return &Config{
		OutputDir: ".",
		Scale:     4,
		MaxSize:   160,
		Width:     200,
		Top:       60,
		Gap:       20,
		Bottom:    40,
		FontSize:  20,
		Label:     "Valid 2006-01-02",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadDotenv loads variables from the .env files that exist among
// paths, without overriding variables already set.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: %s: %w", p, err)
		}
	}
	return nil
}

// Load returns the defaults overridden by the YAML file at path, unless
// path is empty, and by environment variables.  If the file does not
// exist, the error wraps fs.ErrNotExist.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := cfg.parse(data); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse overrides c with YAML data.  Unknown keys are errors.
func (c *Config) parse(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// fields maps environment variable names without EnvPrefix to fields.
func (c *Config) fields() map[string]any {
	return map[string]any{
		"OUTPUT_DIR": &c.OutputDir,
		"SCALE":      &c.Scale,
		"QUIET_ZONE": &c.QuietZone,
		"MIN_SIZE":   &c.MinSize,
		"MAX_SIZE":   &c.MaxSize,
		"WIDTH":      &c.Width,
		"TOP":        &c.Top,
		"GAP":        &c.Gap,
		"BOTTOM":     &c.Bottom,
		"FONT":       &c.Font,
		"FONT_SIZE":  &c.FontSize,
		"LABEL":      &c.Label,
		"LOG_LEVEL":  &c.LogLevel,
		"LOG_FORMAT": &c.LogFormat,
	}
}

// ApplyEnv overrides c with QRCARD_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for name, p := range c.fields() {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		var err error
		switch p := p.(type) {
		case *string:
			*p = v
		case *int:
			*p, err = strconv.Atoi(v)
		case *bool:
			*p, err = strconv.ParseBool(v)
		case *float64:
			*p, err = strconv.ParseFloat(v, 64)
		}
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

// Validate checks that the sizes are usable.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, a ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("config: "+format, a...))
		}
	}
	check(c.Scale >= 0, "negative scale %d", c.Scale)
	check(c.MinSize >= 0, "negative min_size %d", c.MinSize)
	check(c.MaxSize >= 0, "negative max_size %d", c.MaxSize)
	check(c.MaxSize == 0 || c.MinSize <= c.MaxSize,
		"min_size %d above max_size %d", c.MinSize, c.MaxSize)
	check(c.Width > 0, "width %d not positive", c.Width)
	check(c.Top >= 0 && c.Gap >= 0 && c.Bottom >= 0,
		"negative margin in %d/%d/%d", c.Top, c.Gap, c.Bottom)
	check(c.FontSize > 0, "font_size %g not positive", c.FontSize)
	check(c.Label != "", "empty label")
	check(c.LogFormat == "console" || c.LogFormat == "json",
		"unknown log_format %q", c.LogFormat)
	return errors.Join(errs...)
}
