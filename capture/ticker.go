// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"context"
	"time"
)

// Ticker paces the capture loop. Next blocks until the next iteration is
// due or ctx is done.
type Ticker interface {
	Next(ctx context.Context) error
}

// IntervalTicker fires at a fixed wall-clock interval.
type IntervalTicker struct {
	t *time.Ticker
}

func NewIntervalTicker(d time.Duration) *IntervalTicker {
	return &IntervalTicker{t: time.NewTicker(d)}
}

func (it *IntervalTicker) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-it.t.C:
		return nil
	}
}

func (it *IntervalTicker) Stop() { it.t.Stop() }
