package safety

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces real-world actions at a sustained rate so bursts of
// automation look less mechanical. It complements the windowed limits: the
// monitor decides whether an action may happen at all, the pacer decides
// how soon.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing actionsPerMinute sustained actions with
// a burst of one. Non-positive rates fall back to 2 per minute.
func NewPacer(actionsPerMinute float64) *Pacer {
	if actionsPerMinute <= 0 {
		actionsPerMinute = 2
	}
	interval := time.Duration(float64(time.Minute) / actionsPerMinute)
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next action slot or until the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether an action may proceed right now without blocking.
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
