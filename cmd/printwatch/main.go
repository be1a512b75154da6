package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/printer"
	"github.com/cjeanneret/PhotoBooth/internal/printwatch"
)

// logFile is where the watcher keeps its log, in the working directory.
const logFile = "printer.log"

type options struct {
	printFrom  string
	printCount int
	printer    string
	backend    string
	verbose    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%v", err)
	}

	f, err := debug.OpenLogFile(logFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer f.Close()
	level := debug.LevelLive
	if opts.verbose {
		level = debug.LevelTrace
	}
	logger := debug.New(io.MultiWriter(os.Stdout, f), level)
	logger.Info("Args were: %+v", *opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prn, err := printer.New(printerConfig(opts), logger)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	w, err := printwatch.New(opts.printFrom, prn, logger)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	if err := w.Run(ctx); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// parseFlags reads: printwatch [flags] print_from.
func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("printwatch", flag.ContinueOnError)
	fs.IntVar(&opts.printCount, "p", 1, "number of copies to print")
	fs.IntVar(&opts.printCount, "print_count", 1, "number of copies to print")
	fs.StringVar(&opts.printer, "P", "", "printer to use")
	fs.StringVar(&opts.printer, "printer", "", "printer to use")
	fs.StringVar(&opts.backend, "backend", config.PrinterSpooler, "print backend: lpr, cups or file")
	fs.BoolVar(&opts.verbose, "v", false, "trace file events")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: printwatch [flags] print_from\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, errors.New("expected exactly one print_from folder")
	}
	if opts.printCount < 1 {
		return nil, fmt.Errorf("print_count must be >= 1, got %d", opts.printCount)
	}
	opts.printFrom = fs.Arg(0)
	return opts, nil
}

// printerConfig builds the printer settings from the defaults and flags.
func printerConfig(opts *options) config.PrinterConfig {
	pc := config.Default().Printer
	pc.Type = opts.backend
	pc.Name = opts.printer
	pc.Count = opts.printCount
	return pc
}
