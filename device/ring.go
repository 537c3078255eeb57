// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"sync"
)

// Ring is the circular buffer a capture device writes into. It holds
// Capacity interleaved frames and overwrites the oldest frame when full.
// Position is the frame index the next write lands on.
type Ring struct {
	mu       sync.Mutex
	buf      []float32
	channels int
	capacity int
	pos      int
	written  int64
}

func NewRing(capacity, channels int) (*Ring, error) {
	if capacity <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: capacity %d, channels %d", ErrInvalidRing, capacity, channels)
	}

	return &Ring{
		buf:      make([]float32, capacity*channels),
		channels: channels,
		capacity: capacity,
	}, nil
}

func (r *Ring) Capacity() int { return r.capacity }
func (r *Ring) Channels() int { return r.channels }

// Write copies the whole frames of samples into the ring, wrapping at the
// end, and returns the number of frames written. A trailing partial frame
// is ignored.
func (r *Ring) Write(samples []float32) int {
	frames := len(samples) / r.channels
	if frames == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// only the newest capacity frames survive
	src := samples[:frames*r.channels]
	if frames > r.capacity {
		skip := frames - r.capacity
		src = src[skip*r.channels:]
		r.pos = (r.pos + skip) % r.capacity
	}

	for len(src) > 0 {
		n := copy(r.buf[r.pos*r.channels:], src)
		src = src[n:]
		r.pos = (r.pos + n/r.channels) % r.capacity
	}

	r.written += int64(frames)
	return frames
}

// WriteSilence advances the ring by frames zero-valued frames.
func (r *Ring) WriteSilence(frames int) {
	if frames <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.written += int64(frames)
	frames = min(frames, r.capacity)
	for range frames {
		clear(r.buf[r.pos*r.channels : (r.pos+1)*r.channels])
		r.pos = (r.pos + 1) % r.capacity
	}
}

func (r *Ring) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Written is the total number of frames written since the ring was created.
func (r *Ring) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// ReadAt copies len(dst)/Channels frames starting at frame offset. The
// range must not cross the end of the ring.
func (r *Ring) ReadAt(offset int, dst []float32) error {
	if len(dst)%r.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrOutOfRange, len(dst), r.channels)
	}
	frames := len(dst) / r.channels
	if offset < 0 || offset+frames > r.capacity {
		return fmt.Errorf("%w: offset %d, %d frames, capacity %d", ErrOutOfRange, offset, frames, r.capacity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copy(dst, r.buf[offset*r.channels:])
	return nil
}
