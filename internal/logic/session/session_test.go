package session

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// recordingStage records every call made by the session.
type recordingStage struct {
	calls      []string
	captures   []string
	captureAt  []time.Time
	saves      int
	saveAt     time.Time
	montages   int
	countdowns []int
	cues       []Cue
	captureErr error
	clock      time.Time
}

func (r *recordingStage) ShowPreview()      { r.calls = append(r.calls, "preview") }
func (r *recordingStage) ShowText(t string) { r.calls = append(r.calls, "text:"+t) }
func (r *recordingStage) ShowCountdown(n int, cue Cue) {
	r.countdowns = append(r.countdowns, n)
	r.cues = append(r.cues, cue)
}
func (r *recordingStage) ShowImage(path string) error {
	r.calls = append(r.calls, "image:"+filepath.Base(path))
	return nil
}
func (r *recordingStage) ShowMontage(paths []string) error {
	r.montages++
	return nil
}
func (r *recordingStage) CaptureImage(path string) error {
	if r.captureErr != nil {
		return r.captureErr
	}
	r.captures = append(r.captures, path)
	r.captureAt = append(r.captureAt, r.clock)
	return nil
}
func (r *recordingStage) SaveAndPrintCombined(path string, images []string) error {
	r.saves++
	r.saveAt = r.clock
	return nil
}

var debugTimings = Timings{
	CountDown:      2 * time.Second,
	ImageDisplay:   3 * time.Second,
	MontageDisplay: 8 * time.Second,
}

const tick = 40 * time.Millisecond

var t0 = time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

// runSession commits at t0 and ticks at 25 Hz until the session finishes
// or limit is reached. It returns the state names in order of appearance
// and the finishing offset.
func runSession(t *testing.T, st *recordingStage, limit time.Duration) (*Session, []string, time.Duration) {
	t.Helper()
	s := New(st, debugTimings, "/photos", t0, nil)
	seq := []string{s.StateName()}
	for d := time.Duration(0); d <= limit; d += tick {
		now := t0.Add(d)
		st.clock = now
		prevCount := s.PhotoCount
		if err := s.Update(now, d == 0); err != nil {
			t.Fatalf("Update at %v: %v", d, err)
		}
		if s.PhotoCount < prevCount || s.PhotoCount > PhotosPerSession {
			t.Fatalf("PhotoCount went from %d to %d", prevCount, s.PhotoCount)
		}
		if name := s.StateName(); name != seq[len(seq)-1] {
			seq = append(seq, name)
		}
		if s.Finished() {
			return s, seq, d
		}
	}
	return s, seq, limit
}

func TestSession_FullSequence(t *testing.T) {
	st := &recordingStage{}
	s, seq, _ := runSession(t, st, time.Minute)

	want := []string{"Waiting", "Countdown", "ShowLastCapture", "Countdown", "ShowLastCapture",
		"Countdown", "ShowLastCapture", "Countdown", "ShowLastCapture", "ShowSessionMontage", "Finished"}
	if strings.Join(seq, ",") != strings.Join(want, ",") {
		t.Errorf("sequence:\n got  %v\n want %v", seq, want)
	}
	if s.PhotoCount != PhotosPerSession {
		t.Errorf("PhotoCount = %d", s.PhotoCount)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want exactly 1", st.saves)
	}
	for i, p := range st.captures {
		if want := s.ImageName(i + 1); p != want {
			t.Errorf("capture %d = %s, want %s", i+1, p, want)
		}
	}
}

func TestSession_DebugTimeline(t *testing.T) {
	st := &recordingStage{}
	_, _, end := runSession(t, st, time.Minute)

	wantCaptures := []time.Duration{2 * time.Second, 7 * time.Second, 12 * time.Second, 17 * time.Second}
	if len(st.captureAt) != len(wantCaptures) {
		t.Fatalf("captures = %d", len(st.captureAt))
	}
	for i, at := range st.captureAt {
		if got := at.Sub(t0); got != wantCaptures[i] {
			t.Errorf("capture %d at %v, want %v", i+1, got, wantCaptures[i])
		}
	}
	if got := st.saveAt.Sub(t0); got <= 20*time.Second || got > 20*time.Second+2*tick {
		t.Errorf("save at %v, want just after 20s", got)
	}
	if end != 28*time.Second {
		t.Errorf("finished at %v, want 28s", end)
	}
}

func TestSession_MontageShownBeforeSave(t *testing.T) {
	st := &recordingStage{}
	s := New(st, debugTimings, "/photos", t0, nil)
	s.PhotoCount = PhotosPerSession
	s.CaptureStart = t0
	m := &ShowSessionMontage{deadline: t0.Add(time.Second)}
	s.state = m

	_ = s.Update(t0, false)
	if st.montages != 1 || st.saves != 0 {
		t.Fatalf("first tick: montages=%d saves=%d", st.montages, st.saves)
	}
	for i := 1; i < 50; i++ {
		_ = s.Update(t0.Add(time.Duration(i)*tick), false)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
	if !s.Finished() {
		t.Error("session should be finished after the montage deadline")
	}
}

func TestSession_WaitingIgnoresTimeWithoutPress(t *testing.T) {
	st := &recordingStage{}
	s := New(st, debugTimings, "/photos", t0, nil)
	for i := 0; i < 100; i++ {
		_ = s.Update(t0.Add(time.Duration(i)*tick), false)
	}
	if s.StateName() != "Waiting" || s.Committed() {
		t.Errorf("state = %s committed = %v", s.StateName(), s.Committed())
	}
	if st.calls[1] != "text:Push when ready!" {
		t.Errorf("calls = %v", st.calls[:2])
	}
}

func TestSession_IdleExpired(t *testing.T) {
	idle := 30 * time.Second
	s := New(&recordingStage{}, debugTimings, "/photos", t0, nil)
	if s.IdleExpired(t0.Add(idle), idle) {
		t.Error("expired exactly at the idle time")
	}
	if !s.IdleExpired(t0.Add(idle+time.Millisecond), idle) {
		t.Error("not expired after the idle time")
	}
	_ = s.Update(t0.Add(time.Second), true)
	if s.IdleExpired(t0.Add(time.Hour), idle) {
		t.Error("committed session must never expire")
	}
}

func TestSession_CaptureErrorIsReturned(t *testing.T) {
	boom := errors.New("camera gone")
	st := &recordingStage{captureErr: boom}
	s := New(st, debugTimings, "/photos", t0, nil)
	_ = s.Update(t0, true)
	err := s.Update(t0.Add(2*time.Second), false)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if s.PhotoCount != 0 {
		t.Errorf("PhotoCount = %d after failed capture", s.PhotoCount)
	}
}

func TestSession_CountdownNumbers(t *testing.T) {
	st := &recordingStage{}
	s := New(st, debugTimings, "/photos", t0, nil)
	_ = s.Update(t0, true)
	for _, d := range []time.Duration{0, 500 * time.Millisecond, 1000 * time.Millisecond, 1960 * time.Millisecond} {
		_ = s.Update(t0.Add(d), false)
	}
	want := []int{2, 2, 1, 1}
	for i, n := range want {
		if st.countdowns[i] != n {
			t.Errorf("countdown %d = %d, want %d", i, st.countdowns[i], n)
		}
	}
}

func TestSession_Names(t *testing.T) {
	s := New(&recordingStage{}, debugTimings, "/photos", t0, nil)
	s.CaptureStart = time.Date(2024, 6, 1, 9, 5, 7, 0, time.UTC)
	if got := s.ImageName(3); got != filepath.Join("/photos", "20240601-090507-3.jpg") {
		t.Errorf("ImageName = %s", got)
	}
	if got := s.CombinedName(); got != filepath.Join("/photos", "20240601-090507-combined.jpg") {
		t.Errorf("CombinedName = %s", got)
	}
	if len(s.ImageNames()) != PhotosPerSession {
		t.Error("ImageNames length")
	}
	if s.ID == "" {
		t.Error("missing session ID")
	}
}

func TestCueAt(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      Cue
	}{
		{4 * time.Second, CueNone},
		{2500 * time.Millisecond, CueNone},
		{2400 * time.Millisecond, CueLook},
		{2000 * time.Millisecond, CueLook},
		{1900 * time.Millisecond, CueArrow},
		{1500 * time.Millisecond, CueArrow},
		{1200 * time.Millisecond, CueLook},
		{700 * time.Millisecond, CueArrow},
		{200 * time.Millisecond, CueLook},
	}
	for _, tc := range cases {
		if got := CueAt(tc.remaining); got != tc.want {
			t.Errorf("CueAt(%v) = %d, want %d", tc.remaining, got, tc.want)
		}
	}
}
