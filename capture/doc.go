// SPDX-License-Identifier: EPL-2.0

// Package capture turns a polled device write position into an ordered
// stream of encoded PCM frames.
//
// A Device writes interleaved float32 frames into a circular buffer of
// fixed capacity and reports where it will write next. On every tick a
// Session reads the range written since the previous tick, resamples it to
// the output rate with audio.LinearStream, encodes it with the pcm codec
// and hands one Frame to the Sink. The un-encoded samples are kept in the
// session's accumulation buffer and returned in Result.
//
// # Wrap-around
//
// A position lower than the previous one means the device wrapped. That
// tick reads only the tail of the ring, from the previous position to the
// end; the head written after the wrap is read on the next tick. A
// position of zero on the very first tick means nothing was written yet.
//
// # Stopping
//
// The loop stops when Cancel is called, when the Run context is done,
// when MaxFrames output frames were collected, or when the device fails.
// Sink failures are logged and counted but never stop a session. The
// device stream is released exactly once, whatever the exit path.
//
//	s, err := capture.Open(dev, capture.Config{OutputRate: 16000, MaxFrames: 16000 * 30}, sink)
//	if err != nil {
//	    return err
//	}
//	ticker := capture.NewIntervalTicker(20 * time.Millisecond)
//	defer ticker.Stop()
//	res, err := s.Run(ctx, ticker)
package capture
