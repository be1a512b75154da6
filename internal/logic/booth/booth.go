// Package booth runs the kiosk: a fixed-rate loop that reads the trigger,
// drives the current session and publishes a frame per tick.
package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	rtdebug "runtime/debug"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/display"
	"github.com/cjeanneret/PhotoBooth/internal/hw/button"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/hw/printer"
	"github.com/cjeanneret/PhotoBooth/internal/logic/session"
	"github.com/cjeanneret/PhotoBooth/internal/upload"
	"github.com/looplab/fsm"
)

// Key names delivered by a Keys source.
const (
	KeySpace  = "Space"
	KeyQuit   = "q"
	KeyEscape = "Escape"
)

// Lifecycle states and events.
const (
	StateIdle    = "idle"
	StateSession = "session"
	StateAsleep  = "asleep"

	EventBegin = "begin"
	EventEnd   = "end"
	EventSleep = "sleep"
)

// PrinterPollInterval bounds how often the idle screen asks the printer
// for its state.
const PrinterPollInterval = 5 * time.Second

// IdleText is shown when no session is running.
const IdleText = "Push the button to start"

// Keys supplies the names of keys released since the previous call.
type Keys interface {
	Released() []string
}

// Deps are the devices the booth drives. Printer, Uploads and Keys may be nil.
type Deps struct {
	Camera  camera.Camera
	Button  button.Button
	Printer printer.Printer
	Uploads upload.Scheduler
	Surface *display.Surface
	Keys    Keys
}

// Booth owns the session lifecycle. All methods except Start's loop
// control must be called from the loop goroutine.
type Booth struct {
	cfg *config.Config
	Deps
	log *debug.Logger
	now func() time.Time

	session      *session.Session
	lifecycle    *fsm.FSM
	lastActivity time.Time

	printerErr     error
	printerChecked time.Time

	scaled  map[string]image.Image // display-sized captures
	montage *image.RGBA
}

// New creates a booth and its output directory.
func New(cfg *config.Config, deps Deps, log *debug.Logger) (*Booth, error) {
	if deps.Camera == nil || deps.Surface == nil {
		return nil, errors.New("booth needs a camera and a surface")
	}
	if deps.Button == nil {
		deps.Button = button.None{}
	}
	if err := os.MkdirAll(cfg.Booth.SaveTo, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Booth.SaveTo, err)
	}
	b := &Booth{
		cfg:    cfg,
		Deps:   deps,
		log:    log,
		now:    time.Now,
		scaled: make(map[string]image.Image),
	}
	b.lifecycle = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventBegin, Src: []string{StateIdle, StateAsleep}, Dst: StateSession},
			{Name: EventEnd, Src: []string{StateSession}, Dst: StateIdle},
			{Name: EventSleep, Src: []string{StateIdle}, Dst: StateAsleep},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.log.Live("Booth %s -> %s", e.Src, e.Dst)
			},
			"enter_" + StateAsleep: func(_ context.Context, _ *fsm.Event) {
				b.log.Info("Camera going to sleep")
				if err := b.Camera.Sleep(); err != nil {
					b.log.Errorf("camera sleep: %v", err)
				}
			},
			"leave_" + StateAsleep: func(_ context.Context, _ *fsm.Event) {
				b.log.Info("Waking camera")
			},
		},
	)
	return b, nil
}

// SetClock replaces the wall clock, for tests and replays.
func (b *Booth) SetClock(now func() time.Time) {
	b.now = now
}

// Lifecycle returns the current lifecycle state.
func (b *Booth) Lifecycle() string {
	return b.lifecycle.Current()
}

// Session returns the running session, nil when idle.
func (b *Booth) Session() *session.Session {
	return b.session
}

// Start runs the loop until a quit key, ctx cancellation or a panic in the
// loop, which is returned as an error. The camera is put to sleep on exit.
func (b *Booth) Start(ctx context.Context) (err error) {
	interval := b.cfg.FrameInterval()
	b.log.Section("Booth")
	b.log.Value("Frame interval", interval)
	b.log.Value("Save to", b.cfg.Booth.SaveTo)

	b.lastActivity = b.now()
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("booth loop panic: %v\n%s", r, rtdebug.Stack())
			err = fmt.Errorf("booth loop panic: %v", r)
		}
		if b.Lifecycle() != StateAsleep {
			if serr := b.Camera.Sleep(); serr != nil {
				b.log.Errorf("camera sleep: %v", serr)
			}
		}
		b.log.Info("Booth stopped after %d frames", b.Surface.Frames())
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !b.Tick(b.now()) {
			b.log.Info("Quit requested")
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick renders one frame. It returns false when a quit key was released.
func (b *Booth) Tick(now time.Time) bool {
	b.Surface.Clear()

	pressed, quit := b.pollInput()
	if quit {
		return false
	}
	if pressed {
		b.lastActivity = now
	}

	if b.session != nil && b.session.IdleExpired(now, b.cfg.IdleTime()) {
		b.log.Info("Session %s idle for %s, discarding", b.session.ID, now.Sub(b.session.SessionStart).Round(time.Second))
		b.endSession(now)
	}

	switch {
	case b.session != nil:
		if err := b.session.Update(now, pressed); err != nil {
			b.log.Error(err)
			b.log.Info("Session %s aborted", b.session.ID)
			b.endSession(now)
		} else if b.session.Finished() {
			b.log.Info("Session %s finished", b.session.ID)
			b.endSession(now)
		}
	case pressed:
		b.beginSession(now)
	default:
		b.idle(now)
	}

	if err := b.Surface.Flip(); err != nil {
		b.log.Errorf("flip: %v", err)
	}
	return true
}

// pollInput folds keyboard and button into one trigger per tick.
func (b *Booth) pollInput() (pressed, quit bool) {
	if b.Keys != nil {
		for _, k := range b.Keys.Released() {
			switch k {
			case KeySpace:
				pressed = true
			case KeyQuit, KeyEscape:
				quit = true
			}
		}
	}
	if b.Button.IsPressed() {
		b.log.Live("Button pressed")
		pressed = true
	}
	return pressed, quit
}

func (b *Booth) beginSession(now time.Time) {
	b.fire(EventBegin)
	b.session = session.New(b, session.Timings{
		CountDown:      b.cfg.CountDown(),
		ImageDisplay:   b.cfg.ImageDisplay(),
		MontageDisplay: b.cfg.MontageDisplay(),
	}, b.cfg.Booth.SaveTo, now, b.log)
}

func (b *Booth) endSession(now time.Time) {
	b.session = nil
	b.lastActivity = now
	b.scaled = make(map[string]image.Image)
	b.montage = nil
	b.fire(EventEnd)
}

func (b *Booth) idle(now time.Time) {
	if b.Lifecycle() == StateIdle && now.Sub(b.lastActivity) > b.cfg.IdleTime() {
		b.fire(EventSleep)
	}
	if b.Printer != nil && b.cfg.PrintingEnabled() {
		if b.printerChecked.IsZero() || now.Sub(b.printerChecked) >= PrinterPollInterval {
			b.printerChecked = now
			b.printerErr = b.Printer.Err()
			if b.printerErr != nil {
				b.log.Verbose("Printer state: %v", b.printerErr)
			}
		}
		if b.printerErr != nil {
			b.Surface.RenderTextCentred("Printer problem: " + b.printerErr.Error())
			return
		}
	}
	b.Surface.RenderTextCentred(IdleText)
}

func (b *Booth) fire(event string) {
	if err := b.lifecycle.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			b.log.Errorf("lifecycle %s: %v", event, err)
		}
	}
}
