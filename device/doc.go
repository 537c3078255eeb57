// SPDX-License-Identifier: EPL-2.0

// Package device holds the pieces shared by capture device adapters.
//
// A Ring is the fixed-size circular buffer a device writes interleaved
// float32 frames into. Its Position is the write index the capture loop
// polls, and ReadAt serves the loop's reads. Streams maps device ids to
// their active rings so an adapter can implement capture.Device's
// Position, ReadSamples and EndCapture with a lookup.
//
// The adapters live in sub-packages: replay plays audio files into a ring
// at real-time pace, malgo captures from a sound card through miniaudio.
package device
