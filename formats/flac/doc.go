// SPDX-License-Identifier: EPL-2.0

// Package flac decodes native FLAC streams through github.com/mewkiz/flac.
//
// Frames are parsed one at a time, so memory use does not grow with the file.
// Samples up to 32 bits wide are scaled to float32 in [-1, 1]. FLAC inside an
// Ogg container is not supported.
package flac
