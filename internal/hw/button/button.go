package button

import (
	"fmt"
	"os"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
)

// Button is a physical trigger polled once per tick.
type Button interface {
	// IsPressed returns true exactly once per physical press.
	IsPressed() bool
	Close() error
}

// Latch turns a sampled line level into a single press event: it fires on
// the first pressed sample and stays quiet until a released sample is seen.
type Latch struct {
	pressed bool
}

// Update feeds one sample and reports whether a new press started.
func (l *Latch) Update(down bool) bool {
	if down && !l.pressed {
		l.pressed = true
		return true
	}
	if !down {
		l.pressed = false
	}
	return false
}

// None is the always-absent button (keyboard-only booth).
type None struct{}

func (None) IsPressed() bool { return false }
func (None) Close() error    { return nil }

// New selects a button implementation from configuration. A serial button
// whose device does not exist degrades to None, so the booth still works
// from the keyboard.
func New(cfg config.ButtonConfig, g gpio.Driver, log *debug.Logger) (Button, error) {
	switch cfg.Type {
	case config.ButtonNone:
		return None{}, nil
	case config.ButtonSerial:
		if _, err := os.Stat(cfg.TTY); err != nil {
			log.Warn("Button device %s not found, keyboard only", cfg.TTY)
			return None{}, nil
		}
		return OpenSerial(cfg.TTY, cfg.BaudRate, log)
	case config.ButtonGPIO:
		if g == nil {
			return nil, fmt.Errorf("gpio button requires a GPIO driver")
		}
		return NewGPIO(g, cfg.Pin, cfg.ActiveLow, log)
	default:
		return nil, fmt.Errorf("unsupported button type: %s", cfg.Type)
	}
}
