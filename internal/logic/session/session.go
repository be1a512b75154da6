// Package session implements the customer interaction of the booth: wait
// for a commit, take four pictures with a countdown and a review of each,
// then show the collage while it is saved, printed and uploaded.
package session

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/google/uuid"
)

// PhotosPerSession is the number of captures making up a collage.
const PhotosPerSession = 4

// FilenameLayout formats CaptureStart into the image file prefix.
const FilenameLayout = "20060102-150405"

// CueWindow is the final part of a countdown where cues are shown.
const CueWindow = 2500 * time.Millisecond

// Cue is the attention prompt overlaid near the end of a countdown.
type Cue int

const (
	CueNone  Cue = iota
	CueLook      // "Look at the camera!"
	CueArrow     // arrow pointing at the lens
)

// CueAt picks the cue for the remaining countdown time. Inside the cue
// window it alternates every half second, starting with CueLook for
// remaining times in [2.0s, 2.5s).
func CueAt(remaining time.Duration) Cue {
	if remaining >= CueWindow {
		return CueNone
	}
	if int(math.Floor(remaining.Seconds()*2))%2 == 0 {
		return CueLook
	}
	return CueArrow
}

// Stage is what the session draws on and acts through. The booth
// implements it.
type Stage interface {
	ShowPreview()
	ShowText(text string)
	ShowCountdown(n int, cue Cue)
	ShowImage(path string) error
	ShowMontage(paths []string) error
	CaptureImage(path string) error
	SaveAndPrintCombined(path string, images []string) error
}

// Timings are the state durations.
type Timings struct {
	CountDown      time.Duration
	ImageDisplay   time.Duration
	MontageDisplay time.Duration
}

// Session is one customer interaction. It is driven by Update from a
// single goroutine.
type Session struct {
	ID           string
	SaveTo       string
	SessionStart time.Time
	CaptureStart time.Time // zero until committed
	PhotoCount   int

	state   State
	stage   Stage
	timings Timings
	log     *debug.Logger
}

// New creates a session in the Waiting state.
func New(stage Stage, timings Timings, saveTo string, now time.Time, log *debug.Logger) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		SaveTo:       saveTo,
		SessionStart: now,
		state:        Waiting{},
		stage:        stage,
		timings:      timings,
		log:          log,
	}
	log.Info("Session %s started", s.ID)
	return s
}

// Update runs the current state then moves to the next one. An error
// means the session cannot continue.
func (s *Session) Update(now time.Time, pressed bool) error {
	if s.state == nil {
		return nil
	}
	if err := s.state.Run(s, now); err != nil {
		return fmt.Errorf("session %s in %s: %w", s.ID, s.state.Name(), err)
	}
	next := s.state.Next(s, now, pressed)
	if next != s.state {
		s.log.Transition(s.ID, s.state.Name(), stateName(next))
		s.state = next
	}
	return nil
}

func stateName(st State) string {
	if st == nil {
		return "Finished"
	}
	return st.Name()
}

// State returns the current state, nil once finished.
func (s *Session) State() State {
	return s.state
}

// StateName returns the current state name, "Finished" at the end.
func (s *Session) StateName() string {
	return stateName(s.state)
}

// Finished reports whether the state machine reached its end.
func (s *Session) Finished() bool {
	return s.state == nil
}

// Committed reports whether the customer started the first countdown.
func (s *Session) Committed() bool {
	return !s.CaptureStart.IsZero()
}

// IdleExpired reports an uncommitted session older than idle.
func (s *Session) IdleExpired(now time.Time, idle time.Duration) bool {
	return !s.Committed() && now.Sub(s.SessionStart) > idle
}

// ImageName returns the path of capture n (1-based).
func (s *Session) ImageName(n int) string {
	return filepath.Join(s.SaveTo, fmt.Sprintf("%s-%d.jpg", s.CaptureStart.Format(FilenameLayout), n))
}

// CombinedName returns the path of the collage.
func (s *Session) CombinedName() string {
	return filepath.Join(s.SaveTo, s.CaptureStart.Format(FilenameLayout)+"-combined.jpg")
}

// ImageNames returns the paths of all captures of the session.
func (s *Session) ImageNames() []string {
	names := make([]string, PhotosPerSession)
	for i := range names {
		names[i] = s.ImageName(i + 1)
	}
	return names
}
