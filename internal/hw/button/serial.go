package button

import (
	"fmt"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"go.bug.st/serial"
)

// modemLines is the part of serial.Port the button needs.
type modemLines interface {
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// Serial is an arcade button wired between DTR and carrier detect of a
// USB serial adapter: DTR is held high and the press closes it onto DCD.
type Serial struct {
	port  modemLines
	tty   string
	latch Latch
	log   *debug.Logger
}

// OpenSerial opens tty and raises DTR.
func OpenSerial(tty string, baud int, log *debug.Logger) (*Serial, error) {
	port, err := serial.Open(tty, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open button port %s: %w", tty, err)
	}
	if err := port.SetDTR(true); err != nil {
		port.Close()
		return nil, fmt.Errorf("raise DTR on %s: %w", tty, err)
	}
	log.Info("Button on serial port %s", tty)
	return &Serial{port: port, tty: tty, log: log}, nil
}

// IsPressed samples the carrier-detect line once.
func (b *Serial) IsPressed() bool {
	bits, err := b.port.GetModemStatusBits()
	if err != nil {
		b.log.Errorf("read button port %s: %v", b.tty, err)
		return false
	}
	b.log.Trace("Serial %s DCD=%v", b.tty, bits.DCD)
	if b.latch.Update(bits.DCD) {
		b.log.Info("Button press detected")
		return true
	}
	return false
}

func (b *Serial) Close() error {
	return b.port.Close()
}
