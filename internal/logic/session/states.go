package session

import (
	"math"
	"time"
)

// State is one step of the session. Run performs the side effects of
// the current tick; Next returns the state for the following tick, the
// receiver itself when nothing changes, or nil when the session is over.
type State interface {
	Name() string
	Run(s *Session, now time.Time) error
	Next(s *Session, now time.Time, pressed bool) State
}

// Waiting shows the preview until the customer commits.
type Waiting struct{}

func (Waiting) Name() string { return "Waiting" }

func (Waiting) Run(s *Session, _ time.Time) error {
	s.stage.ShowPreview()
	s.stage.ShowText("Push when ready!")
	return nil
}

func (w Waiting) Next(s *Session, now time.Time, pressed bool) State {
	if !pressed {
		return w
	}
	s.CaptureStart = now
	s.log.Info("Session %s committed, prefix %s", s.ID, now.Format(FilenameLayout))
	return newCountdown(s, now)
}

// Countdown shows the preview with the seconds left, then captures.
type Countdown struct {
	deadline time.Time
	captured string
}

func newCountdown(s *Session, now time.Time) *Countdown {
	return &Countdown{deadline: now.Add(s.timings.CountDown)}
}

func (*Countdown) Name() string { return "Countdown" }

func (c *Countdown) Run(s *Session, now time.Time) error {
	remaining := c.deadline.Sub(now)
	if remaining > 0 {
		s.stage.ShowPreview()
		s.stage.ShowCountdown(int(math.Ceil(remaining.Seconds())), CueAt(remaining))
		return nil
	}
	if c.captured != "" {
		return nil
	}
	path := s.ImageName(s.PhotoCount + 1)
	if err := s.stage.CaptureImage(path); err != nil {
		return err
	}
	s.PhotoCount++
	c.captured = path
	s.log.Shot(s.PhotoCount, path)
	return nil
}

func (c *Countdown) Next(s *Session, now time.Time, _ bool) State {
	if c.captured == "" {
		return c
	}
	return &ShowLastCapture{path: c.captured, deadline: now.Add(s.timings.ImageDisplay)}
}

// ShowLastCapture displays the picture just taken.
type ShowLastCapture struct {
	path     string
	deadline time.Time
}

func (*ShowLastCapture) Name() string { return "ShowLastCapture" }

func (l *ShowLastCapture) Run(s *Session, _ time.Time) error {
	return s.stage.ShowImage(l.path)
}

func (l *ShowLastCapture) Next(s *Session, now time.Time, _ bool) State {
	if now.Before(l.deadline) {
		return l
	}
	if s.PhotoCount < PhotosPerSession {
		return newCountdown(s, now)
	}
	return &ShowSessionMontage{deadline: now.Add(s.timings.MontageDisplay)}
}

// ShowSessionMontage displays the collage. It is drawn on the first tick
// and saved, printed and uploaded on the second, once.
type ShowSessionMontage struct {
	deadline time.Time
	shown    bool
	saved    bool
}

func (*ShowSessionMontage) Name() string { return "ShowSessionMontage" }

func (m *ShowSessionMontage) Run(s *Session, _ time.Time) error {
	if err := s.stage.ShowMontage(s.ImageNames()); err != nil {
		return err
	}
	if !m.shown {
		m.shown = true
		return nil
	}
	if m.saved {
		return nil
	}
	m.saved = true
	return s.stage.SaveAndPrintCombined(s.CombinedName(), s.ImageNames())
}

func (m *ShowSessionMontage) Next(_ *Session, now time.Time, _ bool) State {
	if m.saved && !now.Before(m.deadline) {
		return nil
	}
	return m
}
