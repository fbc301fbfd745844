package assistant

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned when a poll hits its attempt or time bound.
var ErrPollExhausted = errors.New("poll limit reached")

// Poller waits between status checks, optionally backing off.
// Zero MaxAttempts and MaxWait leave the wait unbounded.
type Poller struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

// DefaultPoller checks once per second without bound.
func DefaultPoller() *Poller {
	return &Poller{Interval: time.Second, Multiplier: 1}
}

// Until sleeps, then calls check, until check reports done, returns an
// error, the context ends, or a bound is hit.
func (p *Poller) Until(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	start := time.Now()
	delay := p.Interval
	if delay <= 0 {
		delay = time.Second
	}

	for attempt := 1; ; attempt++ {
		if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
			return ErrPollExhausted
		}
		if p.MaxWait > 0 && time.Since(start)+delay > p.MaxWait {
			return ErrPollExhausted
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		delay = p.next(delay)
	}
}

func (p *Poller) next(d time.Duration) time.Duration {
	if p.Multiplier > 1 {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}
