// Package resilience provides bounded waits and retry helpers for talking to
// an unreliable remote agent.
package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimedOut is returned by Await when the condition never held within the
// timeout.
var ErrTimedOut = eris.New("condition not met before timeout")

// Condition reports whether the awaited state has been reached. An error
// aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// Await evaluates cond immediately and then every interval until it holds,
// it errors, timeout elapses, or ctx is done. A non-positive timeout checks
// the condition once.
func Await(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return ErrTimedOut
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
