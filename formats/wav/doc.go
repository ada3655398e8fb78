// SPDX-License-Identifier: EPL-2.0

// Package wav decodes RIFF/WAVE files.
//
// The decoder walks the chunk list sequentially, so it works on pipes and
// other non-seekable readers:
//
//	src, err := wav.Decoder{}.Decode(f)
//	if errors.Is(err, audio.ErrUnsupportedFormat) {
//	    // not a WAV file, or an encoding this package does not read
//	}
//
// # Encodings
//
//   - PCM 8, 16, 24 and 32 bit
//   - IEEE float 32 bit
//   - WAVE_FORMAT_EXTENSIBLE wrapping either of the above
//
// Chunks other than fmt and data are skipped. A data chunk with size 0 or
// 0xFFFFFFFF, as left by streaming writers, is read until the end of input.
//
// # Writing
//
// WritePCM16 produces a canonical 44-byte header file. It does not seek, which
// makes it handy for building fixtures in memory.
package wav
