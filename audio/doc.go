// SPDX-License-Identifier: EPL-2.0

// Package audio holds the sample-level types shared by capture, decoding
// and transcoding.
//
// Samples are float32 in [-1, 1], interleaved by channel. A frame is one
// sample per channel; rates are frames per second.
//
// # Sources
//
// A Source is a pull stream of frames. ReadSamples returns a count of
// values, never a partial frame, and io.EOF once the stream is done. The
// last non-empty read may already carry io.EOF, so callers consume n
// before looking at the error:
//
//	for {
//		n, err := src.ReadSamples(buf)
//		consume(buf[:n])
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//	}
//
// Buffer is a captured or decoded block with its layout, and
// NewBufferSource replays one as a Source.
//
// # Resampling
//
// Rate conversion is linear interpolation everywhere. Output frame i sits
// at input position i*inRate/outRate, computed in integers so long
// captures do not drift, and positions past the last input frame repeat
// it. A whole block resamples to round(frames*outRate/inRate) frames
// (ResampledLength); a stream downsampled by more than 2:1 may end one
// frame longer, since frames already emitted are never taken back.
//
// Resample and Buffer.Resample work on a complete block. LinearStream
// applies the same rule to chunks as a capture loop reads them from a
// device ring, and Resampler wraps a Source with it:
//
//	r := audio.NewResampler(src, 16000)
//
// # Decoders
//
// A Registry maps format names to Decoders. ForPath resolves a file by
// its extension:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	dec, ok := reg.ForPath("take.WAV")
package audio
