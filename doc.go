// SPDX-License-Identifier: EPL-2.0

// Package oggly plays audio files through a streaming playback engine.
//
// A file is decoded incrementally, scaled by a volume factor, retimed by a
// speed factor and buffered in a bounded ring buffer that an output device
// drains on its own real-time cadence. Playback runs as a session with an
// explicit state machine that can be paused, resumed, retuned and stopped
// while it plays.
//
// # Supported Formats
//
//   - WAV (8/16/24/32-bit PCM and 32/64-bit float) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF via formats/aiff
//   - FLAC via formats/flac
//
// # Quick Start
//
// The simplest way to play a file is PlayFile, which blocks until the file
// played out or ctx is cancelled:
//
//	err := oggly.PlayFile(ctx, "song.ogg", output.OtoDriver{}, playback.DefaultParameters())
//
// RenderFile plays into a WAV file as fast as the pipeline allows:
//
//	err := oggly.RenderFile(ctx, "song.mp3", "out.wav", playback.Parameters{Volume: 0.8, Speed: 1.5})
//
// # Sessions
//
// For live control use the playback package directly:
//
//	engine := playback.New(output.OtoDriver{})
//	s, err := engine.Play(ctx, audio.Input{Name: path, Reader: f, Hint: ".ogg"}, playback.DefaultParameters())
//	...
//	s.SetVolume(0.5)
//	s.Pause()
//	s.Resume()
//	s.Stop()
//	<-s.Done()
//
// # Audio Processing Pipeline
//
// The stages are usable on their own through the audio subpackage:
//
//	stream, err := audio.Open(in, formats.Default(), audio.WithSampleRate(48000))
//	frames, err := stream.Next(2048)
//	frames = audio.ApplyGain(frames, frames, 0.5)
//	out, err := audio.NewRetimer(stream.Format().Channels).Process(frames, 1.25)
package oggly
