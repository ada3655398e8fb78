// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/ik5/oggly/config"
)

var (
	errHelp       = errors.New("help requested")
	errUsage      = errors.New("invalid usage")
	errNoInput    = fmt.Errorf("%w: No input file specified", errUsage)
	errArgCount   = fmt.Errorf("%w: Invalid argument count", errUsage)
	errBadVolume  = fmt.Errorf("%w: Could not parse volume, value is invalid", errUsage)
	errBadSpeed   = fmt.Errorf("%w: Could not parse speed, value is invalid", errUsage)
	errInputCheck = errors.New("input check failed")
)

var helpAliases = []string{"help", "h", "--help", "-h", "/?"}

// options holds what the command line asked for. Pointer fields are nil
// when the flag was not given, so configuration values survive.
type options struct {
	path        string
	configPath  string
	volume      *float64
	speed       *float64
	driver      *string
	outFile     *string
	logLevel    *string
	metricsAddr *string
	bufferSize  *time.Duration
	interactive bool
}

func newFlagSet(o *options, raw map[string]*string) *flag.FlagSet {
	fs := flag.NewFlagSet("oggly", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	for _, name := range []string{"volume", "speed", "output", "out", "log-level", "metrics-addr", "buffer-size"} {
		raw[name] = new(string)
		fs.StringVar(raw[name], name, "", "")
	}
	fs.StringVar(&o.configPath, "config", "", "")
	fs.BoolVar(&o.interactive, "interactive", false, "")
	fs.BoolVar(&o.interactive, "i", false, "")

	return fs
}

// parseArgs reads the command line. The input path comes last, after any
// flags.
func parseArgs(args []string) (*options, error) {
	if len(args) == 0 {
		return nil, errArgCount
	}
	if len(args) == 1 && slices.Contains(helpAliases, args[0]) {
		return nil, errHelp
	}

	o := &options{}
	raw := map[string]*string{}
	fs := newFlagSet(o, raw)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errHelp
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := *raw[f.Name]
		switch f.Name {
		case "volume":
			o.volume, err = parseFloat(v, errBadVolume)
		case "speed":
			o.speed, err = parseFloat(v, errBadSpeed)
		case "output":
			o.driver = &v
		case "out":
			o.outFile = &v
		case "log-level":
			o.logLevel = &v
		case "metrics-addr":
			o.metricsAddr = &v
		case "buffer-size":
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%w: Could not parse buffer-size, value is invalid", errUsage)
				return
			}
			o.bufferSize = &d
		}
	})
	if err != nil {
		return nil, err
	}

	rest := fs.Args()
	switch {
	case len(rest) == 0:
		return nil, errNoInput
	case len(rest) > 1:
		return nil, fmt.Errorf("%w: Argument '%s' is invalid", errUsage, rest[0])
	}
	o.path = rest[0]

	return o, nil
}

func parseFloat(v string, failure error) (*float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, failure
	}
	return &f, nil
}

// apply lays the flags over cfg. Choosing --out without --output selects
// the wav driver.
func (o *options) apply(cfg *config.Config) {
	if o.volume != nil {
		cfg.Playback.Volume = *o.volume
	}
	if o.speed != nil {
		cfg.Playback.Speed = *o.speed
	}
	if o.outFile != nil {
		cfg.Output.File = *o.outFile
		if o.driver == nil {
			cfg.Output.Driver = "wav"
		}
	}
	if o.driver != nil {
		cfg.Output.Driver = *o.driver
	}
	if o.logLevel != nil {
		cfg.Log.Level = config.LogLevel(*o.logLevel)
	}
	if o.metricsAddr != nil {
		cfg.Metrics.Addr = *o.metricsAddr
	}
	if o.bufferSize != nil {
		cfg.Output.BufferSize = *o.bufferSize
	}
}

// checkInput verifies path names a readable regular file.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: Could not open %s", errInputCheck, path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: Specified path %s is not a file", errInputCheck, path)
	}
	return nil
}

func printUsage(w io.Writer, argv0 string) {
	name := filepath.Base(argv0)
	if ext := filepath.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	if name == "" || name == "." {
		name = "oggly"
	}

	fmt.Fprintln(w, "Oggly - streaming audio file player")
	fmt.Fprintf(w, "Usage: %s <optional arguments> file_path\n", name)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  --volume: Sets volume (float; default=1.0)")
	fmt.Fprintln(w, "  --speed: Sets speed (float; default=1.0)")
	fmt.Fprintln(w, "  --config: YAML configuration file")
	fmt.Fprintf(w, "  --output: Output driver (one of %v; default=oto)\n", outputDrivers())
	fmt.Fprintln(w, "  --out: Record to this WAV file (implies --output wav)")
	fmt.Fprintln(w, "  --buffer-size: Device buffer length (duration, e.g. 100ms)")
	fmt.Fprintln(w, "  --interactive, -i: Keyboard controls while playing")
	fmt.Fprintln(w, "  --log-level: debug, info, warn or error (default=info)")
	fmt.Fprintln(w, "  --metrics-addr: Serve Prometheus metrics on this address")
}
