package main

import (
	"testing"

	"github.com/cjeanneret/PhotoBooth/internal/config"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-p", "2", "--printer", "Selphy", "/photos"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.printFrom != "/photos" || opts.printCount != 2 || opts.printer != "Selphy" || opts.backend != config.PrinterSpooler {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = parseFlags([]string{"in"})
	if err != nil || opts.printCount != 1 {
		t.Errorf("default print count = %d, %v", opts.printCount, err)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"a", "b"},
		{"-p", "0", "in"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v): expected error", args)
		}
	}
}

func TestPrinterConfig(t *testing.T) {
	pc := printerConfig(&options{printCount: 3, printer: "Canon", backend: config.PrinterCommand})
	if pc.Type != config.PrinterCommand || pc.Name != "Canon" || pc.Count != 3 || pc.CUPSPort != 631 {
		t.Errorf("printer config = %+v", pc)
	}
}
