// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Source is a pull-based stream of interleaved float32 samples.
type Source interface {
	SampleRate() int
	Channels() int

	// ReadSamples fills dst and returns the number of values written,
	// not frames. (0, io.EOF) means the stream is finished; a final
	// non-empty read may also carry io.EOF.
	ReadSamples(dst []float32) (n int, err error)

	Close() error
}

// Decoder builds a Source from an encoded stream.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format names ("wav", "mp3", ...) to decoders. It is safe
// for concurrent use.
type Registry struct {
	mtx      sync.RWMutex
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds d under format, replacing any earlier decoder.
func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.decoders[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	d, ok := r.decoders[format]
	return d, ok
}

// ForPath looks up the decoder for a file by its extension, ignoring
// case: "take.WAV" resolves to the "wav" decoder.
func (r *Registry) ForPath(path string) (Decoder, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, false
	}
	return r.Get(ext)
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	keys := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
