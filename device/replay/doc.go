// SPDX-License-Identifier: EPL-2.0

// Package replay implements capture.Device on top of audio files.
//
// Each device id names a file, either registered with WithFile or found
// in the directory given to WithDir. Files are opened through an
// afero.Fs and decoded with whatever audio.Registry the device was built
// with, so any format that has a decoder (wav, mp3, ogg, aiff) can stand
// in for a microphone:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	reg.Register("mp3", mp3.Decoder{})
//
//	dev := replay.New(reg, replay.WithDir("testdata/clips"))
//	coord := recorder.New(dev)
//
// StartCapture resamples the file to the requested rate and feeds the ring
// in step with the wall clock. When the file runs out the ring keeps
// advancing with silence, so a capture session never stalls.
package replay
