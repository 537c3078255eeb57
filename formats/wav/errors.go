// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile           = errors.New("not a WAV file")
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")
	ErrUnsupportedFormat    = errors.New("unsupported WAV sample format")
	ErrUnsupportedWavChunks = errors.New("unsupported WAV chunks")
	ErrWriterClosed         = errors.New("WAV writer closed")
)
