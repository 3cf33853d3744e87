// Package config holds the configuration of shadowctl.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the shadowctl configuration file.
type Config struct {
	// Script is the replay script to render.
	Script string `yaml:"script"`
	// Driver is dom or terminal.
	Driver string `yaml:"driver"`
	// Output is the html file written by the dom driver, - for stdout.
	Output      string `yaml:"output"`
	Pretty      bool   `yaml:"pretty"`
	MetricsAddr string `yaml:"metrics_addr"`

	Log     Log         `yaml:"log"`
	Watch   WatchConfig `yaml:"watch"`
	Tracing Tracing     `yaml:"tracing"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type Tracing struct {
	Stdout bool `yaml:"stdout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Driver: "dom",
		Output: "-",
		Pretty: true,
		Log:    Log{Level: "info", Format: "text"},
		Watch:  WatchConfig{Debounce: 100 * time.Millisecond},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the enumerated values.
func (c Config) Validate() error {
	var errs []error
	switch c.Driver {
	case "dom", "terminal":
	default:
		errs = append(errs, fmt.Errorf("driver must be dom or terminal, got %q", c.Driver))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch debounce must not be negative, got %s", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("log level must be debug, info, warn or error, got %q", l.Level)
	}
	return lvl, nil
}

// Logger returns the logger the log section describes, writing to w.
func (l Log) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
