// SPDX-License-Identifier: EPL-2.0

// Package audio holds the decoding and sample processing primitives of oggly.
//
// # Sources
//
// Every decoder yields a Source producing interleaved float32 samples in
// [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    BitDepth() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// # Streams
//
// Open sniffs the leading bytes of an Input against a Registry, falls back to
// the file extension hint and validates the header before any audio is
// produced. The resulting Stream hands out frame aligned batches:
//
//	s, err := audio.Open(audio.Input{Name: path, Reader: f, Hint: ext}, formats.Default())
//	if err != nil {
//	    // errors.Is(err, audio.ErrUnsupportedFormat), ErrCorruptStream or ErrIOFailure
//	}
//	defer s.Close()
//
//	for {
//	    batch, err := s.Next(2048)
//	    ...
//	}
//
// WithChannels(1) downmixes through a MonoMixer and WithSampleRate converts
// the rate through the cubic Resampler.
//
// # Processing
//
// ApplyGain scales and hard clips a batch. Retime and the streaming Retimer
// change playback speed by linear interpolation along the time axis; pitch
// follows speed.
package audio
