// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audcap/pcm"
)

// Recording length bounds. A request outside them is clamped, not refused.
const (
	MinDuration     = 30 * time.Second
	MaxDuration     = 300 * time.Second
	DefaultDuration = 60 * time.Second
)

const (
	DefaultSampleRate       = 16000
	DefaultSilenceThreshold = 0.001
	DefaultBufferSeconds    = 2
	DefaultPollInterval     = 20 * time.Millisecond
	DefaultCodec            = "wav"
)

// Request describes one recording.
type Request struct {
	// DeviceID selects the capture device; empty means the first listed.
	DeviceID string

	// SampleRate is the output rate, clamped to the device's range.
	SampleRate int

	// MaxDuration is clamped to [MinDuration, MaxDuration]; 0 means
	// DefaultDuration.
	MaxDuration time.Duration

	Format pcm.Format
	Codec  string

	// Path, when set, streams the recording to this file. Otherwise the
	// encoded bytes are returned in Result.Encoded.
	Path string

	// Trim drops leading and trailing silence from Result.Encoded.
	Trim             bool
	SilenceThreshold float32

	// BufferSeconds sizes the device ring.
	BufferSeconds int
	PollInterval  time.Duration
}

func (r Request) withDefaults() Request {
	if r.SampleRate == 0 {
		r.SampleRate = DefaultSampleRate
	}
	if r.MaxDuration == 0 {
		r.MaxDuration = DefaultDuration
	}
	if r.Format == 0 {
		r.Format = pcm.Bits16
	}
	if r.Codec == "" {
		r.Codec = DefaultCodec
	}
	if r.SilenceThreshold == 0 {
		r.SilenceThreshold = DefaultSilenceThreshold
	}
	if r.BufferSeconds == 0 {
		r.BufferSeconds = DefaultBufferSeconds
	}
	if r.PollInterval == 0 {
		r.PollInterval = DefaultPollInterval
	}
	return r
}

// Validate reports every invalid field at once. Zero values are valid and
// take their defaults.
func (r Request) Validate() error {
	var errs []error

	if r.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate %d", ErrInvalidRequest, r.SampleRate))
	}
	if r.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("%w: max duration %s", ErrInvalidRequest, r.MaxDuration))
	}
	if r.Format != 0 && !r.Format.Valid() {
		errs = append(errs, fmt.Errorf("%w: bit depth %d", ErrInvalidRequest, int(r.Format)))
	}
	if r.SilenceThreshold < 0 || r.SilenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("%w: silence threshold %g", ErrInvalidRequest, r.SilenceThreshold))
	}
	if r.BufferSeconds < 0 {
		errs = append(errs, fmt.Errorf("%w: buffer seconds %d", ErrInvalidRequest, r.BufferSeconds))
	}
	if r.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: poll interval %s", ErrInvalidRequest, r.PollInterval))
	}

	return errors.Join(errs...)
}

// ClampDuration limits d to [MinDuration, MaxDuration].
func ClampDuration(d time.Duration) time.Duration {
	return min(max(d, MinDuration), MaxDuration)
}
