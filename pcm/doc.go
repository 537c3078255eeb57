// SPDX-License-Identifier: EPL-2.0

// Package pcm converts normalized float32 samples to and from fixed-width
// pulse-code modulation bytes.
//
// # Formats
//
// Four bit depths are supported, all little-endian:
//
//	Bits8   unsigned, 1 byte,  round(s*127 + 128)
//	Bits16  signed,   2 bytes, trunc(s*32767)
//	Bits24  signed,   3 bytes, trunc(s*(2^23-1)), no sign-extension byte
//	Bits32  signed,   4 bytes, trunc(s*(2^31-1))
//
// Samples are clamped to [-1, 1] before quantization. Out-of-range input is
// never an error.
//
// # Encoding
//
//	data, err := pcm.Encode(samples, pcm.Bits16)
//
// With silence trimming, leading and trailing samples whose magnitude does
// not exceed the threshold are dropped, keeping one sample of pre-roll:
//
//	data, err := pcm.EncodeTrimmed(samples, pcm.Bits16, pcm.DefaultSilenceThreshold)
//	if errors.Is(err, pcm.ErrEmptyTrim) {
//	    // the whole signal was silent
//	}
//
// # Decoding
//
//	samples, err := pcm.Decode(data, pcm.Bits24)
//
// Decode only fails when the byte length is not a multiple of the format
// stride (ErrLengthMismatch). The 24-bit path sign-extends from bit 23.
package pcm
