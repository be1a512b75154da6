package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/phin1x/go-ipp"
)

// IPP printer-state values.
const (
	stateIdle       = 3
	stateProcessing = 4
	stateStopped    = 5
)

var stateNames = map[int]string{
	stateIdle:       "Idle",
	stateProcessing: "Printing",
	stateStopped:    "Off",
}

// ErrPrinterNotFound is returned when the named destination is unknown to CUPS.
var ErrPrinterNotFound = errors.New("printer not found")

// ippClient is the part of *ipp.CUPSClient the spooler uses.
type ippClient interface {
	GetPrinters(attributes []string) (map[string]ipp.Attributes, error)
	GetPrinterAttributes(printer string, attributes []string) (ipp.Attributes, error)
	PrintFile(filePath, printer string, jobAttributes map[string]interface{}) (int, error)
}

// Spooler submits jobs to CUPS over IPP.
type Spooler struct {
	client ippClient
	name   string
	copies int
	dryRun bool
	log    *debug.Logger
}

// DialSpooler connects to the configured CUPS server. With no printer
// name, the system default destination (lpstat -d) is used.
func DialSpooler(cfg config.PrinterConfig, log *debug.Logger) (*Spooler, error) {
	client := ipp.NewCUPSClient(cfg.CUPSHost, cfg.CUPSPort, cfg.CUPSUser, "", false)
	name := cfg.Name
	if name == "" {
		def, err := defaultDestination(context.Background(), execRunner)
		if err != nil {
			return nil, err
		}
		name = def
	}
	return NewSpooler(client, name, cfg.Count, cfg.DryRun, log)
}

// NewSpooler checks that name exists on the server.
func NewSpooler(client ippClient, name string, copies int, dryRun bool, log *debug.Logger) (*Spooler, error) {
	printers, err := client.GetPrinters([]string{"printer-name"})
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	if _, ok := printers[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, name)
	}
	log.Info("Using printer: %s", name)
	return &Spooler{client: client, name: name, copies: copies, dryRun: dryRun, log: log}, nil
}

// defaultDestination parses "system default destination: NAME".
func defaultDestination(ctx context.Context, run Runner) (string, error) {
	out, err := run(ctx, "lpstat", "-d")
	if err != nil {
		return "", fmt.Errorf("lpstat -d: %w", err)
	}
	line := strings.TrimSpace(string(out))
	if i := strings.LastIndex(line, ":"); i >= 0 {
		if name := strings.TrimSpace(line[i+1:]); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("no default printer: %q", line)
}

// State returns the printer state name.
func (s *Spooler) State() (string, error) {
	attrs, err := s.client.GetPrinterAttributes(s.name, []string{
		"printer-state", "printer-state-reasons", "printer-state-message",
	})
	if err != nil {
		return "", fmt.Errorf("printer %s attributes: %w", s.name, err)
	}
	state, ok := firstInt(attrs["printer-state"])
	s.log.Verbose("Printer state: %d", state)
	if name, known := stateNames[state]; ok && known {
		return name, nil
	}
	s.log.Warn("Unknown printer state: %d message %v reason %v",
		state, firstValue(attrs["printer-state-message"]), firstValue(attrs["printer-state-reasons"]))
	return "Unknown", nil
}

// Err reports anything but Idle or Printing as a fault.
func (s *Spooler) Err() error {
	state, err := s.State()
	if err != nil {
		return err
	}
	if state == "Idle" || state == "Printing" {
		return nil
	}
	return errors.New(state)
}

// PrintImage submits path with the configured copy count.
func (s *Spooler) PrintImage(_ context.Context, path string) error {
	if s.dryRun {
		s.log.Info("Would be printing! %s", path)
		return nil
	}
	s.log.Info("Printing: %s", path)
	id, err := s.client.PrintFile(path, s.name, map[string]interface{}{
		"copies":   s.copies,
		"job-name": path,
	})
	if err != nil {
		return fmt.Errorf("print %s on %s: %w", path, s.name, err)
	}
	s.log.Verbose("Print job %d queued on %s", id, s.name)
	return nil
}

func firstValue(attrs []ipp.Attribute) interface{} {
	if len(attrs) == 0 {
		return nil
	}
	return attrs[0].Value
}

func firstInt(attrs []ipp.Attribute) (int, bool) {
	switch v := firstValue(attrs).(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	}
	return 0, false
}
