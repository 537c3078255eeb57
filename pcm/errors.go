// SPDX-License-Identifier: EPL-2.0

package pcm

import "errors"

var (
	ErrInvalidFormat  = errors.New("invalid PCM bit depth")
	ErrLengthMismatch = errors.New("PCM byte length is not a multiple of the sample stride")
	ErrEmptyTrim      = errors.New("trim produced empty range")
)
