// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 audio layer III through
// github.com/hajimehoshi/go-mp3.
//
// The decoder always yields 16-bit stereo at the file's sample rate; mono
// files are duplicated to both channels by go-mp3. Use audio.WithChannels(1)
// on the stream to fold it back:
//
//	s, err := audio.Open(audio.Input{Reader: f, Hint: "mp3"}, reg, audio.WithChannels(1))
//
// Sniff recognizes a leading ID3v2 tag or a layer III frame header. Files
// starting with anything else are still decoded when the hint says mp3.
package mp3
