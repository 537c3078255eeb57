// SPDX-License-Identifier: EPL-2.0

package replay

import "errors"

var (
	// ErrUnknownDevice indicates an id with no file behind it
	ErrUnknownDevice = errors.New("unknown replay device")

	// ErrNoDecoder indicates a file extension with no registered decoder
	ErrNoDecoder = errors.New("no decoder for file")
)
