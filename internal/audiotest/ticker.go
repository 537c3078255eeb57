// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"context"
	"sync"
)

// ManualTicker is a capture.Ticker driven by the test. Tick blocks until
// the loop asks for its next iteration, so once Tick returns every earlier
// iteration has completed.
type ManualTicker struct {
	c chan struct{}
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan struct{})}
}

func (t *ManualTicker) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.c:
		return nil
	}
}

// Tick releases one iteration.
func (t *ManualTicker) Tick() { t.c <- struct{}{} }

// TickContext is Tick that gives up when ctx is done.
func (t *ManualTicker) TickContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.c <- struct{}{}:
		return nil
	}
}

// CountTicker fires n times without waiting and then blocks until the
// context is done. Drained is closed when the loop asks for tick n+1.
type CountTicker struct {
	remaining int
	drained   chan struct{}
	once      sync.Once
}

func NewCountTicker(n int) *CountTicker {
	return &CountTicker{remaining: n, drained: make(chan struct{})}
}

func (t *CountTicker) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.remaining > 0 {
		t.remaining--
		return nil
	}

	t.once.Do(func() { close(t.drained) })
	<-ctx.Done()
	return ctx.Err()
}

func (t *CountTicker) Drained() <-chan struct{} { return t.drained }
