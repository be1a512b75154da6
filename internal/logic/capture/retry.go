package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Handle is a hardware handle that can be torn down and reopened
// between attempts. gphoto2 in particular often only recovers from a
// failed focus after the camera connection is reset.
type Handle interface {
	Reinit() error
	Release() error
}

// Policy describes a bounded retry with optional re-initialisation.
type Policy struct {
	Attempts int // total attempts, >= 1

	// Backoff returns the pause after failed attempt n (0-based).
	Backoff func(attempt int) time.Duration

	// Reinit reports whether the handle is reopened before attempt n.
	Reinit func(attempt int) bool

	// ReleaseOnFailure releases the handle once all attempts failed.
	ReleaseOnFailure bool
}

// CapturePolicy reopens the camera before every attempt and waits
// n seconds after failed attempt n.
func CapturePolicy(attempts int) Policy {
	return Policy{
		Attempts:         attempts,
		Backoff:          func(n int) time.Duration { return time.Duration(n) * time.Second },
		Reinit:           func(int) bool { return true },
		ReleaseOnFailure: true,
	}
}

// SettingsPolicy is used for camera configuration writes: ten attempts,
// half-second steps of backoff, and a reconnect after the sixth and
// eighth failures.
func SettingsPolicy() Policy {
	return Policy{
		Attempts: 10,
		Backoff:  func(n int) time.Duration { return time.Duration(n/2) * time.Second },
		Reinit:   func(n int) bool { return n > 5 && n%2 == 0 },
	}
}

// Retrier runs operations under a Policy.
type Retrier struct {
	policy Policy
	log    *debug.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewRetrier creates a retrier. A nil logger is allowed.
func NewRetrier(p Policy, log *debug.Logger) *Retrier {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return &Retrier{policy: p, log: log, sleep: sleepCtx}
}

// Do runs op until it succeeds or the policy is exhausted. The last error
// is returned wrapped with the operation name.
func (r *Retrier) Do(ctx context.Context, name string, h Handle, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if h != nil && r.policy.Reinit != nil && r.policy.Reinit(attempt) {
			r.log.Trace("%s: reinitialising handle before attempt %d", name, attempt+1)
			if err := h.Reinit(); err != nil {
				lastErr = fmt.Errorf("reinit: %w", err)
				r.log.Warn("%s: attempt %d failed: %v", name, attempt+1, lastErr)
				if err := r.pause(ctx, attempt); err != nil {
					return err
				}
				continue
			}
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 0 {
				r.log.Info("%s succeeded after %d attempts", name, attempt+1)
			}
			return nil
		}
		r.log.Warn("%s: attempt %d failed: %v", name, attempt+1, lastErr)

		if err := r.pause(ctx, attempt); err != nil {
			return err
		}
	}

	if h != nil && r.policy.ReleaseOnFailure {
		if err := h.Release(); err != nil {
			r.log.Errorf("%s: release after failure: %v", name, err)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, r.policy.Attempts, lastErr)
}

func (r *Retrier) pause(ctx context.Context, attempt int) error {
	if attempt >= r.policy.Attempts-1 || r.policy.Backoff == nil {
		return nil
	}
	d := r.policy.Backoff(attempt)
	if d <= 0 {
		return nil
	}
	r.log.Verbose("waiting %v before next attempt", d)
	return r.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
