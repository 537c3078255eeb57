// SPDX-License-Identifier: EPL-2.0

// Package audcap captures audio from a device ring buffer and turns it
// into PCM frames, files and in-memory recordings.
//
// The work is split across subpackages:
//
//   - capture: the session loop. It polls a device write position, reads
//     new ring contents, resamples them, and delivers encoded frames to a
//     Sink while accumulating the whole recording.
//   - recorder: one-at-a-time recording coordinator with duration limits,
//     rate clamping, disk or in-memory output and Prometheus metrics.
//   - device/malgo: capture from a sound card through miniaudio.
//   - device/replay: a device that plays audio files in real time, for
//     tests and offline runs.
//   - pcm: float32 to 8, 16, 24 and 32-bit little-endian PCM and back,
//     with silence trimming.
//   - audio: Source, Buffer and linear resampling, batch and streaming.
//   - formats/wav, formats/aiff, formats/mp3, formats/vorbis: decoders
//     producing audio.Source, plus a WAV writer.
//   - config: YAML settings for the recorder.
//
// # Quick Start
//
// Converting a file needs only a decoder and Transcode:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	defer src.Close()
//	data, _ := audcap.Transcode(src, 16000, pcm.Bits16, 4096)
//
// Recording from the default sound card into a WAV file:
//
//	dev, _ := malgo.New()
//	defer dev.Close()
//
//	coord := recorder.New(dev)
//	rec, _, _ := coord.Start(ctx, recorder.Request{Path: "take.wav"})
//	time.Sleep(10 * time.Second)
//	coord.End()
//	res, _ := rec.Wait(ctx)
//
// See the individual subpackages for details.
package audcap
