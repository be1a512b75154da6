package printer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Command prints through the lpr command line queue.
type Command struct {
	name   string
	copies int
	dryRun bool
	run    Runner
	log    *debug.Logger
}

// NewCommand creates an lpr printer. An empty name uses the system default.
func NewCommand(name string, copies int, dryRun bool, log *debug.Logger) *Command {
	return &Command{name: name, copies: copies, dryRun: dryRun, run: execRunner, log: log}
}

// Args returns the lpr arguments for path.
func (c *Command) Args(path string) []string {
	var args []string
	if c.name != "" {
		args = append(args, "-P", c.name)
	}
	return append(args, "-#", strconv.Itoa(c.copies), path)
}

// PrintImage runs lpr, or only logs the command in dry-run mode.
func (c *Command) PrintImage(ctx context.Context, path string) error {
	args := c.Args(path)
	c.log.Info("lpr %s", strings.Join(args, " "))
	if c.dryRun {
		return nil
	}
	out, err := c.run(ctx, "lpr", args...)
	if err != nil {
		return fmt.Errorf("lpr %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Err always reports a healthy queue; lpr gives no status.
func (c *Command) Err() error { return nil }
