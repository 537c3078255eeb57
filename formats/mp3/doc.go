// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG Layer III files into an audio.Source, using
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so every source reports two
// channels (a mono file has both channels equal) and samples are scaled
// by 1/32767 like pcm.Bits16. The rate is that of the first frame.
//
// A stereo frame that go-mp3 splits across two reads is held back until
// both halves have arrived; ReadSamples never returns part of a frame.
//
// There is no encoder.
package mp3
