// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files holding PCM audio.
//
// Decoder walks the chunk list itself, skipping LIST, fact and any other
// chunk before "data", and accepts 8-bit unsigned and 16, 24 or 32-bit
// signed little-endian PCM, including WAVE_FORMAT_EXTENSIBLE files with a
// PCM sub-format. Quantization is the pcm package's, so a file written
// here decodes to exactly what pcm.Decode gives for its data chunk.
//
// Writing comes in two shapes. WriteWAV and WritePCM emit a finished file
// in one call, with the canonical 44-byte header:
//
//	err := wav.WriteWAV(w, 16000, 1, pcm.Bits16, samples)
//
// StreamWriter, built on github.com/go-audio/wav, appends to a seekable
// file as a recording runs and fixes up the header sizes on Close:
//
//	sw, _ := wav.NewStreamWriter(f, 16000, 1, pcm.Bits16)
//	_ = sw.Write(chunk)
//	_ = sw.Close()
//
// Inspect reports the layout and duration of an existing file. Errors wrap
// ErrNotWavFile, ErrUnsupportedFormat, ErrUnsupportedWavLayout or
// ErrUnsupportedWavChunks.
package wav
