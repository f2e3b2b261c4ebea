package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the default SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer enforces a minimum interval between outbound calls. A zero interval
// disables pacing entirely.
type Pacer struct {
	limiter *rate.Limiter
	clock   Clock
	sleep   SleepFunc
}

type PacerOption func(*Pacer)

func WithPacerClock(c Clock) PacerOption {
	return func(p *Pacer) { p.clock = c }
}

func WithPacerSleep(fn SleepFunc) PacerOption {
	return func(p *Pacer) { p.sleep = fn }
}

func NewPacer(interval time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{
		clock: SystemClock(),
		sleep: ContextSleep,
	}
	if interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait reserves the next slot and sleeps until it is due.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := p.sleep(ctx, delay); err != nil {
		r.CancelAt(p.clock.Now())
		return err
	}
	return nil
}
