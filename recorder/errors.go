// SPDX-License-Identifier: EPL-2.0

package recorder

import "errors"

var (
	// ErrUnknownCodec indicates a codec name with no registered encoder
	ErrUnknownCodec = errors.New("unknown codec")

	// ErrNoDevices indicates no capture device appeared within the wait
	ErrNoDevices = errors.New("no capture devices available")

	// ErrDeviceNotFound indicates a device id the device does not list
	ErrDeviceNotFound = errors.New("capture device not found")

	// ErrInvalidRequest indicates a request field out of range
	ErrInvalidRequest = errors.New("invalid recording request")

	// ErrShutdown indicates Start after Shutdown
	ErrShutdown = errors.New("coordinator is shut down")
)
