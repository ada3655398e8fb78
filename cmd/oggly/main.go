// SPDX-License-Identifier: EPL-2.0

// Command oggly plays an audio file through the streaming playback engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/config"
	"github.com/ik5/oggly/output"
	"github.com/ik5/oggly/playback"
	"github.com/ik5/oggly/ringbuf"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(argv[1:])
	switch {
	case errors.Is(err, errHelp):
		printUsage(stdout, argv[0])
		return exitOK
	case errors.Is(err, errArgCount):
		printUsage(stderr, argv[0])
		fmt.Fprintln(stderr, message(err))
		return exitUsage
	case err != nil:
		fmt.Fprintln(stderr, message(err))
		return exitUsage
	}

	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintf(stderr, "oggly: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "oggly: config file %q not found\n", opts.configPath)
			return exitUsage
		}
		fmt.Fprintf(stderr, "oggly: %v\n", err)
		return exitCode(err)
	}
	opts.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "oggly: %v\n", err)
		return exitCode(err)
	}

	if err := checkInput(opts.path); err != nil {
		fmt.Fprintln(stderr, message(err))
		return exitUsage
	}

	logger := newLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineOpts, shutdown, err := engineOptions(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up telemetry", "err", err)
		return exitUsage
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	driver, err := output.NewDriver(cfg.Output.Driver, output.DriverOptions{
		WAVPath:    cfg.Output.File,
		BufferSize: cfg.Output.BufferSize,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "oggly: %v\n", err)
		return exitCode(err)
	}

	f, err := os.Open(opts.path)
	if err != nil {
		fmt.Fprintf(stderr, "Could not open %s\n", opts.path)
		return exitUsage
	}
	defer f.Close()
	in := audio.Input{Name: opts.path, Reader: f, Hint: filepath.Ext(opts.path)}

	logger.Debug("starting playback",
		"input", opts.path,
		"driver", cfg.Output.Driver,
		"volume", cfg.Playback.Volume,
		"speed", cfg.Playback.Speed,
	)

	if opts.interactive {
		err = playInteractive(ctx, driver, engineOpts, in, cfg.Parameters(), stdin, stdout)
	} else {
		err = playback.New(driver, engineOpts...).Run(ctx, in, cfg.Parameters())
	}
	if err != nil {
		logger.Debug("playback failed", "err", err)
		fmt.Fprintf(stderr, "oggly: %v\n", err)
		return exitCode(err)
	}

	return exitOK
}

func playInteractive(ctx context.Context, driver output.Driver, opts []playback.Option, in audio.Input, p playback.Parameters, stdin io.Reader, stdout io.Writer) error {
	states := make(chan playback.State, 16)
	opts = append(opts, playback.WithStateHook(func(_ *playback.Session, _, to playback.State) {
		select {
		case states <- to:
		default:
		}
	}))

	s, err := playback.New(driver, opts...).Play(ctx, in, p)
	if err != nil {
		return err
	}
	return runInteractive(ctx, s, in.Name, states, stdin, stdout)
}

// engineOptions translates cfg into engine options. When a metrics address
// is configured the sessions record to a Prometheus-backed meter provider.
func engineOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]playback.Option, func(context.Context) error, error) {
	policy, err := ringbuf.ParsePolicy(cfg.Playback.BufferPolicy)
	if err != nil {
		return nil, nil, err
	}

	opts := []playback.Option{
		playback.WithLogger(logger),
		playback.WithChunkFrames(cfg.Playback.ChunkFrames),
		playback.WithBufferLatency(cfg.Playback.BufferLatency),
		playback.WithBufferPolicy(policy),
		playback.WithDrainTimeout(cfg.Playback.DrainTimeout),
		playback.WithMaxChannels(cfg.Output.MaxChannels),
		playback.WithSampleRate(cfg.Output.SampleRate),
		playback.WithFramesPerPull(cfg.Output.FramesPerPull),
	}

	noop := func(context.Context) error { return nil }
	if cfg.Metrics.Addr == "" {
		return opts, noop, nil
	}

	tel, err := newTelemetry()
	if err != nil {
		return nil, nil, err
	}
	shutdown, err := tel.serve(ctx, cfg.Metrics.Addr, logger)
	if err != nil {
		_ = tel.provider.Shutdown(context.Background())
		return nil, nil, err
	}

	return append(opts, playback.WithMetrics(tel.metrics)), shutdown, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.Level.Level()}
	if cfg.Format == config.LogJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// message strips the internal classification prefix from CLI errors.
func message(err error) string {
	for _, sentinel := range []error{errUsage, errInputCheck} {
		if s, ok := strings.CutPrefix(err.Error(), sentinel.Error()+": "); ok {
			return s
		}
	}
	return err.Error()
}
