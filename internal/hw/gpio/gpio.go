package gpio

import (
	"sync"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
	InputPullUp   // input with the internal pull-up resistor enabled
	InputPullDown // input with the internal pull-down resistor enabled
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// MockDriver is an in-memory implementation used on a PC and in tests.
// Input pins read back whatever was last set with SetLevel or WritePin;
// pins configured with a pull-up idle HIGH.
type MockDriver struct {
	log    *debug.Logger
	mu     sync.Mutex
	levels map[int]Level
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool, log *debug.Logger) (Driver, error) {
	if mock {
		log.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(log), nil
	}
	return NewRPiRealDriver(log)
}

// NewMockDriver creates an empty mock driver.
func NewMockDriver(log *debug.Logger) *MockDriver {
	return &MockDriver{log: log, levels: make(map[int]Level)}
}

// SetLevel simulates an external signal on pin.
func (m *MockDriver) SetLevel(pin int, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	m.log.GPIO("SetupPin", pin, mode)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[pin]; !ok && mode == InputPullUp {
		m.levels[pin] = High
	}
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.log.GPIO("WritePin", pin, level)
	m.SetLevel(pin, level)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level := m.levels[pin]
	m.log.GPIO("ReadPin", pin, level)
	return level, nil
}

func (m *MockDriver) Close() error {
	m.log.Trace("GPIO Close (mock)")
	return nil
}
