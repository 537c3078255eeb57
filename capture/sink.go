// SPDX-License-Identifier: EPL-2.0

package capture

import "context"

// Frame is one encoded PCM chunk. Each delivery gets a fresh slice and the
// sink owns it afterwards.
type Frame []byte

// Sink receives encoded frames in capture order. WriteFrame is awaited
// before the next frame is produced.
type Sink interface {
	WriteFrame(ctx context.Context, f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Frame) error

func (fn SinkFunc) WriteFrame(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// Discard drops every frame. A session writing to Discard skips frame
// encoding and reports no deliveries.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) WriteFrame(context.Context, Frame) error { return nil }
