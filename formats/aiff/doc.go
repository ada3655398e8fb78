// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF and uncompressed AIFF-C through
// github.com/go-audio/aiff.
//
// go-audio seeks between chunks, so input that is not an io.ReadSeeker is
// read into memory before decoding. Sample sizes of 8, 16, 24 and 32 bits are
// scaled to float32 in [-1, 1].
//
//	src, err := aiff.Decoder{}.Decode(f)
//	switch {
//	case errors.Is(err, aiff.ErrNotAiffFile):
//	case errors.Is(err, aiff.ErrUnsupportedBitDepth):
//	}
package aiff
