package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// recordingHandle records Reinit/Release calls.
type recordingHandle struct {
	reinits   int
	releases  int
	reinitErr error
	calls     []string
}

func (h *recordingHandle) Reinit() error {
	h.reinits++
	h.calls = append(h.calls, "reinit")
	return h.reinitErr
}

func (h *recordingHandle) Release() error {
	h.releases++
	h.calls = append(h.calls, "release")
	return nil
}

func newTestRetrier(p Policy) (*Retrier, *[]time.Duration) {
	r := NewRetrier(p, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	r, slept := newTestRetrier(CapturePolicy(5))
	h := &recordingHandle{}
	calls := 0
	err := r.Do(context.Background(), "capture", h, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if h.reinits != 1 {
		t.Errorf("capture policy should reopen before the first attempt, reinits = %d", h.reinits)
	}
	if len(*slept) != 0 {
		t.Errorf("unexpected sleeps: %v", *slept)
	}
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	r, slept := newTestRetrier(CapturePolicy(5))
	h := &recordingHandle{}
	calls := 0
	err := r.Do(context.Background(), "capture", h, func() error {
		calls++
		if calls < 3 {
			return errors.New("could not focus")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if h.reinits != 3 {
		t.Errorf("reinits = %d, want 3", h.reinits)
	}
	// Backoff(0) is zero and skipped.
	want := []time.Duration{time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] {
		t.Errorf("sleeps = %v, want %v", *slept, want)
	}
	if h.releases != 0 {
		t.Errorf("handle released on success")
	}
}

func TestDo_ExhaustedReleasesHandle(t *testing.T) {
	r, slept := newTestRetrier(CapturePolicy(5))
	h := &recordingHandle{}
	calls := 0
	err := r.Do(context.Background(), "capture", h, func() error {
		calls++
		return errors.New("no camera")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "after 5 attempts") || !strings.Contains(err.Error(), "no camera") {
		t.Errorf("error = %q", err)
	}
	if calls != 5 {
		t.Errorf("op called %d times, want 5", calls)
	}
	if h.releases != 1 {
		t.Errorf("releases = %d, want 1", h.releases)
	}
	if h.calls[len(h.calls)-1] != "release" {
		t.Errorf("release should be the last handle call, got %v", h.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestDo_ReinitFailureCountsAsAttempt(t *testing.T) {
	r, _ := newTestRetrier(CapturePolicy(2))
	h := &recordingHandle{reinitErr: errors.New("usb busy")}
	calls := 0
	err := r.Do(context.Background(), "capture", h, func() error {
		calls++
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "usb busy") {
		t.Fatalf("error = %v, want reinit failure", err)
	}
	if calls != 0 {
		t.Errorf("op should not run when reinit fails, ran %d times", calls)
	}
}

func TestSettingsPolicy_ReinitSchedule(t *testing.T) {
	p := SettingsPolicy()
	var reinitAt []int
	for n := 0; n < p.Attempts; n++ {
		if p.Reinit(n) {
			reinitAt = append(reinitAt, n)
		}
	}
	want := []int{6, 8}
	if len(reinitAt) != len(want) || reinitAt[0] != want[0] || reinitAt[1] != want[1] {
		t.Errorf("reinit before attempts %v, want %v", reinitAt, want)
	}
	if p.Backoff(3) != time.Second || p.Backoff(1) != 0 {
		t.Errorf("Backoff(1)=%v Backoff(3)=%v", p.Backoff(1), p.Backoff(3))
	}
}

func TestDo_SingleWithoutHandle(t *testing.T) {
	r, _ := newTestRetrier(Policy{Attempts: 1})
	err := r.Do(context.Background(), "preview", nil, func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	r := NewRetrier(CapturePolicy(5), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := r.Do(ctx, "capture", nil, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("op ran %d times after cancel", calls)
	}
}
