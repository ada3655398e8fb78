// SPDX-License-Identifier: EPL-2.0

// Package config loads oggly settings from defaults, a YAML file, a .env file
// and OGGLY_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"log/slog"
	"time"

	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/playback"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// IsValid reports whether f is a known log format.
func (f LogFormat) IsValid() bool { return f == LogText || f == LogJSON }

// Config is the complete oggly configuration.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// PlaybackConfig holds the initial parameters and the engine tuning.
type PlaybackConfig struct {
	// Volume is the initial gain factor, >= 0.
	Volume float64 `yaml:"volume"`
	// Speed is the initial playback rate, > 0.
	Speed float64 `yaml:"speed"`
	// ChunkFrames is how many frames the producer prepares per step.
	ChunkFrames int `yaml:"chunk_frames"`
	// BufferLatency is how much audio the ring buffer holds.
	BufferLatency time.Duration `yaml:"buffer_latency"`
	// BufferPolicy is "block" or "fail".
	BufferPolicy string `yaml:"buffer_policy"`
	// DrainTimeout bounds draining; zero derives it from BufferLatency.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// OutputConfig selects and tunes the output driver.
type OutputConfig struct {
	// Driver is one of output.Drivers().
	Driver string `yaml:"driver"`
	// File is where the wav driver writes.
	File string `yaml:"file"`
	// SampleRate resamples every input to this rate; zero keeps the input rate.
	SampleRate int `yaml:"sample_rate"`
	// MaxChannels downmixes wider inputs to mono; zero disables the limit.
	MaxChannels int `yaml:"max_channels"`
	// FramesPerPull is the device block size; zero uses the driver default.
	FramesPerPull int `yaml:"frames_per_pull"`
	// BufferSize is the oto device buffer; zero uses the backend default.
	BufferSize time.Duration `yaml:"buffer_size"`
}

type LogConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Playback: PlaybackConfig{
			Volume:        1,
			Speed:         1,
			ChunkFrames:   playback.DefaultChunkFrames,
			BufferLatency: playback.DefaultBufferLatency,
			BufferPolicy:  "block",
		},
		Output: OutputConfig{
			Driver:        "oto",
			MaxChannels:   playback.DefaultMaxChannels,
			FramesPerPull: output.DefaultFramesPerPull,
		},
		Log: LogConfig{
			Level:  LogInfo,
			Format: LogText,
		},
	}
}

// Parameters returns the initial playback parameters.
func (c *Config) Parameters() playback.Parameters {
	return playback.Parameters{Volume: c.Playback.Volume, Speed: c.Playback.Speed}
}
