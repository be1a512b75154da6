// Package printwatch prints every JPEG that appears in a folder, once.
// Printed names are appended to a ledger so restarts do not reprint.
package printwatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/printer"
	"github.com/fsnotify/fsnotify"
)

// LedgerName is the ledger file kept in the watched folder.
const LedgerName = "done.txt"

// DebounceInterval groups bursts of file events into one scan.
const DebounceInterval = 500 * time.Millisecond

// RescanInterval is how often the folder is listed again without file
// events, so failed prints are retried.
const RescanInterval = time.Second

// Watcher prints new images of one folder.
type Watcher struct {
	dir     string
	ledger  string
	printer printer.Printer
	done    map[string]bool
	log     *debug.Logger
}

// New opens the ledger of dir, creating it when missing.
func New(dir string, p printer.Printer, log *debug.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("print folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("print folder %s is not a directory", dir)
	}
	w := &Watcher{
		dir:     dir,
		ledger:  filepath.Join(dir, LedgerName),
		printer: p,
		done:    make(map[string]bool),
		log:     log,
	}
	if err := w.loadLedger(); err != nil {
		return nil, err
	}
	log.Info("Watching %s, %d images already printed", dir, len(w.done))
	return w, nil
}

func (w *Watcher) loadLedger() error {
	f, err := os.OpenFile(w.ledger, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			w.done[name] = true
		}
	}
	return sc.Err()
}

// Printed reports whether name is in the ledger.
func (w *Watcher) Printed(name string) bool {
	return w.done[name]
}

// Pending lists the images not printed yet, sorted by name.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", w.dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".jpg") {
			continue
		}
		if !w.done[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Scan prints every pending image. A failed print is logged and retried
// on the next scan.
func (w *Watcher) Scan(ctx context.Context) error {
	names, err := w.Pending()
	if err != nil {
		return err
	}
	for _, name := range names {
		if ctx.Err() != nil {
			return nil
		}
		if err := w.printer.PrintImage(ctx, filepath.Join(w.dir, name)); err != nil {
			w.log.Errorf("print %s: %v", name, err)
			continue
		}
		if err := w.markDone(name); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) markDone(name string) error {
	f, err := os.OpenFile(w.ledger, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(name + "\n"); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	w.done[name] = true
	w.log.Live("Printed %s", name)
	return nil
}

// Run scans once, then on every burst of file events and every
// RescanInterval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if err := w.Scan(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(DebounceInterval)
	timer.Stop()
	rescan := time.NewTicker(RescanInterval)
	defer rescan.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Base(event.Name) == LedgerName || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Trace("fs event %s", event)
			// Debounce: reset timer on each event.
			timer.Reset(DebounceInterval)

		case <-timer.C:
			if err := w.Scan(ctx); err != nil {
				return err
			}

		case <-rescan.C:
			if err := w.Scan(ctx); err != nil {
				return err
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.log.Errorf("watcher error for %s: %v", w.dir, err)
		}
	}
}
