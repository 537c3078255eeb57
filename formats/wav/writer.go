// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audcap/pcm"
)

// HeaderSize is the size of the canonical PCM WAV header.
const HeaderSize = 44

// Header returns the canonical 44-byte header for dataSize bytes of PCM.
func Header(sampleRate, channels int, f pcm.Format, dataSize uint32) []byte {
	bitsPerSample := uint16(f.BitDepth())
	blockAlign := uint16(channels) * uint16(f.Stride())
	byteRate := uint32(sampleRate) * uint32(blockAlign)

	header := make([]byte, HeaderSize)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	// data chunk header (8 bytes)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}

// WriteWAV quantizes interleaved samples to f and writes a complete WAV
// file. Samples are encoded in chunks to bound the intermediate buffer.
func WriteWAV(w io.Writer, sampleRate, channels int, f pcm.Format, samples []float32) error {
	if err := checkLayout(sampleRate, channels, f); err != nil {
		return err
	}

	dataSize := uint32(len(samples) * f.Stride())
	if _, err := w.Write(Header(sampleRate, channels, f, dataSize)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	const chunkSize = 8192
	buf := make([]byte, 0, min(len(samples), chunkSize)*f.Stride())

	for i := 0; i < len(samples); i += chunkSize {
		end := min(i+chunkSize, len(samples))

		var err error
		buf, err = pcm.AppendEncode(buf[:0], samples[i:end], f)
		if err != nil {
			return err
		}

		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write WAV data: %w", err)
		}
	}

	return nil
}

// WritePCM wraps already encoded PCM bytes in a WAV container.
func WritePCM(w io.Writer, sampleRate, channels int, f pcm.Format, data []byte) error {
	if err := checkLayout(sampleRate, channels, f); err != nil {
		return err
	}
	if len(data)%(f.Stride()*channels) != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %d-channel frames", pcm.ErrLengthMismatch, len(data), channels)
	}

	if _, err := w.Write(Header(sampleRate, channels, f, uint32(len(data)))); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}

func checkLayout(sampleRate, channels int, f pcm.Format) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %d bits", ErrUnsupportedFormat, int(f))
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWavLayout, channels, sampleRate)
	}
	return nil
}
