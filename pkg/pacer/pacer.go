package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer keeps the minimum interval between two consecutive sends, backed by a token bucket with burst 1.
// One Pacer belongs to one sequential loop.
type Pacer struct {
	limiter *rate.Limiter
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Pacer)

// WithClock replace time source and sleep function, mostly for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) {
		if now != nil {
			p.now = now
		}

		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New returns Pacer, interval lower or equal to zero never waits.
func New(interval time.Duration, opts ...Option) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	p := &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		sleep:   Sleep,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Wait takes the next send slot, blocking until it is due. The first call never waits.
// When ctx is done while waiting, the slot is given back.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.now()
	reservation := p.limiter.ReserveN(now, 1)

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	if err := p.sleep(ctx, delay); err != nil {
		reservation.CancelAt(p.now())
		return err
	}

	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
