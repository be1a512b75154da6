package printer

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Printer sends finished collages to paper.
type Printer interface {
	// PrintImage submits one job for path.
	PrintImage(ctx context.Context, path string) error

	// Err returns nil when the printer can accept jobs, otherwise an
	// error describing its state ("Off", "Unknown", ...).
	Err() error
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// New selects a printer implementation based on configuration.
func New(cfg config.PrinterConfig, log *debug.Logger) (Printer, error) {
	switch cfg.Type {
	case config.PrinterCommand:
		return NewCommand(cfg.Name, cfg.Count, cfg.DryRun, log), nil
	case config.PrinterSpooler:
		return DialSpooler(cfg, log)
	case config.PrinterFile:
		return NewFile(log), nil
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", cfg.Type)
	}
}
