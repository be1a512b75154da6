package button

import (
	"fmt"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
)

// GPIO is a push button wired to a GPIO input.
// With activeLow the pin uses the internal pull-up and the button shorts it
// to ground; otherwise the pin is pulled down and the button drives it HIGH.
type GPIO struct {
	gpio      gpio.Driver
	pin       int
	activeLow bool
	latch     Latch
	log       *debug.Logger
}

// NewGPIO configures pin as an input and returns the button.
func NewGPIO(g gpio.Driver, pin int, activeLow bool, log *debug.Logger) (*GPIO, error) {
	mode := gpio.InputPullDown
	if activeLow {
		mode = gpio.InputPullUp
	}
	if err := g.SetupPin(pin, mode); err != nil {
		return nil, fmt.Errorf("setup button pin %d: %w", pin, err)
	}
	log.Verbose("Button on GPIO %d (active low: %v)", pin, activeLow)
	return &GPIO{gpio: g, pin: pin, activeLow: activeLow, log: log}, nil
}

// IsPressed samples the pin once.
func (b *GPIO) IsPressed() bool {
	level, err := b.gpio.ReadPin(b.pin)
	if err != nil {
		b.log.Errorf("read button pin %d: %v", b.pin, err)
		return false
	}
	down := level == gpio.High
	if b.activeLow {
		down = level == gpio.Low
	}
	if b.latch.Update(down) {
		b.log.Info("Button press detected")
		return true
	}
	return false
}

// Close leaves the GPIO driver open; it is owned by the caller.
func (b *GPIO) Close() error { return nil }
