// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/ringbuf"
)

// EnvPrefix starts every environment variable the loader reads.
const EnvPrefix = "OGGLY_"

// DefaultDotEnv is the file LoadDotEnv reads when given no path.
const DefaultDotEnv = ".env"

// Load builds a validated Config from the defaults, the YAML file at path and
// then the OGGLY_* environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decode(f, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. The environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// LoadDotEnv adds the variables of a .env file to the process environment
// without overriding variables already set. With an empty path it reads
// DefaultDotEnv and tolerates its absence.
func LoadDotEnv(path string) error {
	optional := path == ""
	if optional {
		path = DefaultDotEnv
	}

	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from OGGLY_* variables found through lookup.
// Malformed values are reported together.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	vars := []struct {
		name string
		set  func(string) error
	}{
		{"VOLUME", floatVar(&c.Playback.Volume)},
		{"SPEED", floatVar(&c.Playback.Speed)},
		{"CHUNK_FRAMES", intVar(&c.Playback.ChunkFrames)},
		{"BUFFER_LATENCY", durationVar(&c.Playback.BufferLatency)},
		{"BUFFER_POLICY", stringVar(&c.Playback.BufferPolicy)},
		{"DRAIN_TIMEOUT", durationVar(&c.Playback.DrainTimeout)},
		{"OUTPUT_DRIVER", stringVar(&c.Output.Driver)},
		{"OUTPUT_FILE", stringVar(&c.Output.File)},
		{"OUTPUT_SAMPLE_RATE", intVar(&c.Output.SampleRate)},
		{"OUTPUT_MAX_CHANNELS", intVar(&c.Output.MaxChannels)},
		{"OUTPUT_FRAMES_PER_PULL", intVar(&c.Output.FramesPerPull)},
		{"OUTPUT_BUFFER_SIZE", durationVar(&c.Output.BufferSize)},
		{"LOG_LEVEL", func(v string) error { c.Log.Level = LogLevel(v); return nil }},
		{"LOG_FORMAT", func(v string) error { c.Log.Format = LogFormat(v); return nil }},
		{"METRICS_ADDR", stringVar(&c.Metrics.Addr)},
	}

	var errs []error
	for _, v := range vars {
		raw, ok := lookup(EnvPrefix + v.name)
		if !ok {
			continue
		}
		if err := v.set(raw); err != nil {
			errs = append(errs, fmt.Errorf("config: %s%s=%q: %w", EnvPrefix, v.name, raw, err))
		}
	}
	return errors.Join(errs...)
}

func floatVar(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func durationVar(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func stringVar(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

// Validate checks that cfg is coherent. It returns a joined error listing
// every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if err := cfg.Parameters().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if cfg.Playback.ChunkFrames <= 0 {
		errs = append(errs, fmt.Errorf("playback.chunk_frames %d must be > 0", cfg.Playback.ChunkFrames))
	}
	if cfg.Playback.BufferLatency <= 0 {
		errs = append(errs, fmt.Errorf("playback.buffer_latency %v must be > 0", cfg.Playback.BufferLatency))
	}
	if _, err := ringbuf.ParsePolicy(cfg.Playback.BufferPolicy); err != nil {
		errs = append(errs, fmt.Errorf("playback.buffer_policy: %w", err))
	}
	if cfg.Playback.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("playback.drain_timeout %v must be >= 0", cfg.Playback.DrainTimeout))
	}

	if !slices.Contains(output.Drivers(), cfg.Output.Driver) {
		errs = append(errs, fmt.Errorf("output.driver %q is invalid; valid values: %v", cfg.Output.Driver, output.Drivers()))
	}
	if cfg.Output.Driver == "wav" && cfg.Output.File == "" {
		errs = append(errs, errors.New("output.file is required by the wav driver"))
	}
	if cfg.Output.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("output.sample_rate %d must be >= 0", cfg.Output.SampleRate))
	}
	if cfg.Output.MaxChannels < 0 {
		errs = append(errs, fmt.Errorf("output.max_channels %d must be >= 0", cfg.Output.MaxChannels))
	}
	if cfg.Output.FramesPerPull < 0 {
		errs = append(errs, fmt.Errorf("output.frames_per_pull %d must be >= 0", cfg.Output.FramesPerPull))
	}
	if cfg.Output.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("output.buffer_size %v must be >= 0", cfg.Output.BufferSize))
	}

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if !cfg.Log.Format.IsValid() {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	return errors.Join(errs...)
}
