// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	// ErrInvalidRing indicates a ring with no capacity or no channels
	ErrInvalidRing = errors.New("ring capacity and channels must be positive")

	// ErrOutOfRange indicates a read that does not fit inside the ring
	ErrOutOfRange = errors.New("read range outside ring")

	// ErrStreamActive indicates StartCapture on a device that is already capturing
	ErrStreamActive = errors.New("capture stream already active")

	// ErrStreamNotStarted indicates a call that needs an active capture stream
	ErrStreamNotStarted = errors.New("capture stream not started")
)
