// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"slices"
	"sync"
)

// Streams tracks the active ring of every device id. Device adapters use
// it to serve Position and ReadSamples.
type Streams struct {
	mtx   sync.RWMutex
	rings map[string]*Ring
}

func NewStreams() *Streams {
	return &Streams{rings: make(map[string]*Ring)}
}

// Open creates the ring for id. Only one stream per id may be active.
func (s *Streams) Open(id string, capacity, channels int) (*Ring, error) {
	ring, err := NewRing(capacity, channels)
	if err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.rings[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamActive, id)
	}
	s.rings[id] = ring
	return ring, nil
}

func (s *Streams) Get(id string) (*Ring, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	ring, ok := s.rings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotStarted, id)
	}
	return ring, nil
}

// Close forgets the ring for id and returns it.
func (s *Streams) Close(id string) (*Ring, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ring, ok := s.rings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotStarted, id)
	}
	delete(s.rings, id)
	return ring, nil
}

func (s *Streams) Position(id string) (int, error) {
	ring, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return ring.Position(), nil
}

func (s *Streams) ReadSamples(id string, offset int, dst []float32) error {
	ring, err := s.Get(id)
	if err != nil {
		return err
	}
	return ring.ReadAt(offset, dst)
}

// Active returns the ids with an open stream, sorted.
func (s *Streams) Active() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	ids := make([]string, 0, len(s.rings))
	for id := range s.rings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
