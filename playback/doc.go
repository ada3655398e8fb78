// SPDX-License-Identifier: EPL-2.0

// Package playback plays one decoded input on one output device.
//
// An Engine turns an audio.Input into a Session. Each session runs two
// goroutines: a producer that decodes, applies volume and speed and fills a
// ring buffer, and a supervisor that starts the device once the buffer is
// primed, watches it and ends the Draining state. The device pulls frames
// from the buffer on its own schedule and never waits on the producer.
//
// Sessions move through Idle, Loading, Playing, Paused, Draining and end in
// Stopped or Failed:
//
//	Idle -> Loading -> Playing <-> Paused
//	                      |          |
//	                      +-> Draining -> Stopped
//
// Decode, I/O, device and buffer errors end a session in Failed. Running out
// of input, Stop and cancelling the context passed to Play end it in Stopped.
package playback
