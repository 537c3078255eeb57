// SPDX-License-Identifier: EPL-2.0

package capture

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid capture config")
	ErrSessionClosed   = errors.New("capture session already started or closed")
	ErrDeviceFault     = errors.New("capture device fault")
	ErrInvalidPosition = errors.New("device reported a negative write position")
)
