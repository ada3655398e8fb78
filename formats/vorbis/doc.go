// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis through github.com/jfreymuth/oggvorbis.
//
// Samples arrive as float32 and are clamped to [-1, 1]:
//
//	src, err := vorbis.Decoder{}.Decode(f)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// Sniff looks past the first Ogg page header for the Vorbis identification
// packet, so .ogg files carrying Opus are reported as unsupported instead of
// failing halfway through the headers.
package vorbis
