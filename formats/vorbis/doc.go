// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files into an audio.Source, using the
// pure Go github.com/jfreymuth/oggvorbis.
//
// Vorbis decodes to float32 natively, so samples pass through unscaled.
// Rate and channel count come from the identification header, and reads
// are trimmed to whole frames.
//
// There is no encoder.
package vorbis
