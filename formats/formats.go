// SPDX-License-Identifier: EPL-2.0

// Package formats wires every container decoder into one registry.
package formats

import (
	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/formats/aiff"
	"github.com/ik5/oggly/formats/flac"
	"github.com/ik5/oggly/formats/mp3"
	"github.com/ik5/oggly/formats/vorbis"
	"github.com/ik5/oggly/formats/wav"
)

// Default returns a new registry holding every supported container. The mp3
// sniffer is registered last since a bare frame sync is the weakest signature.
func Default() *audio.Registry {
	reg := audio.NewRegistry()
	Register(reg)
	return reg
}

// Register adds every supported container to reg.
func Register(reg *audio.Registry) {
	reg.Register("wav", wav.Decoder{}, wav.Sniff, "wave")
	reg.Register("aiff", aiff.Decoder{}, aiff.Sniff, "aif", "aifc")
	reg.Register("flac", flac.Decoder{}, flac.Sniff)
	reg.Register("ogg", vorbis.Decoder{}, vorbis.Sniff, "oga", "vorbis")
	reg.Register("mp3", mp3.Decoder{}, mp3.Sniff, "mpga")
}
