// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"strings"
	"sync"
)

// Source is a decoded PCM stream.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// BitDepth of the encoded samples (16 for CD audio, 32 for float codecs).
	BitDepth() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	// BufSize is the preferred read size in samples.
	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Sniffer reports whether header looks like the start of a container it understands.
type Sniffer func(header []byte) bool

// Format describes an opened stream. It does not change for the life of the stream.
type Format struct {
	Container  string
	Channels   int
	SampleRate int
	BitDepth   int
}

// Input identifies what to play: a sequential byte reader plus an optional
// format hint, usually the file extension.
type Input struct {
	Name   string
	Reader io.Reader
	Hint   string
}

type codec struct {
	name    string
	decoder Decoder
	sniff   Sniffer
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs  []codec
	aliases map[string]string

	mtx *sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		aliases: make(map[string]string),
		mtx:     &sync.Mutex{},
	}
}

// Register adds d under format. sniff may be nil, in which case the decoder is
// only reachable through its name or one of its aliases. Registering an existing
// format replaces it.
func (r *Registry) Register(format string, d Decoder, sniff Sniffer, aliases ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	format = normalizeKey(format)
	c := codec{name: format, decoder: d, sniff: sniff}

	replaced := false
	for i := range r.codecs {
		if r.codecs[i].name == format {
			r.codecs[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		r.codecs = append(r.codecs, c)
	}

	r.aliases[format] = format
	for _, a := range aliases {
		r.aliases[normalizeKey(a)] = format
	}
}

// Get returns the decoder registered under format or one of its aliases.
func (r *Registry) Get(format string) (Decoder, bool) {
	name, ok := r.Resolve(format)
	if !ok {
		return nil, false
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, c := range r.codecs {
		if c.name == name {
			return c.decoder, true
		}
	}
	return nil, false
}

// Resolve maps a format name, alias or file extension (with or without the
// leading dot) to the registered format key.
func (r *Registry) Resolve(key string) (string, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	name, ok := r.aliases[normalizeKey(key)]
	return name, ok
}

// Detect returns the first registered format whose sniffer accepts header.
// Formats are tried in registration order.
func (r *Registry) Detect(header []byte) (string, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, c := range r.codecs {
		if c.sniff != nil && c.sniff(header) {
			return c.name, true
		}
	}
	return "", false
}

// Formats lists registered format keys in registration order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.codecs))
	for _, c := range r.codecs {
		names = append(names, c.name)
	}
	return names
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "."))
}
