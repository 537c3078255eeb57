// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files into an audio.Source, using
// github.com/go-audio/aiff.
//
// 8, 16, 24 and 32-bit PCM is supported at any rate and channel count.
// Samples are scaled like the pcm package scales the same depth, except
// that AIFF stores 8-bit audio signed where WAV stores it unsigned.
//
// go-audio needs an io.ReadSeeker; any other reader is read into memory
// first. Errors wrap one of ErrNotAiffFile, ErrUnsupportedBitDepth,
// ErrUnsupportedAiffLayout or ErrUnsupportedAiffChunks.
package aiff
