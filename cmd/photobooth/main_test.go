package main

import (
	"testing"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// ---------- parseFlags ----------

func TestParseFlags_Defaults(t *testing.T) {
	opts, err := parseFlags([]string{"photos"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.configPath != "configs/default.yaml" || opts.printCount != -1 || opts.saveTo != "photos" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestParseFlags_ShortAndLong(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want options
	}{
		{"short", []string{"-d", "-p", "2", "-P", "Selphy", "-u", "http://x/up", "/photos"},
			options{debug: true, printCount: 2, printer: "Selphy", uploadTo: "http://x/up", saveTo: "/photos"}},
		{"long", []string{"--webcam", "--print_count", "0", "--printer", "Canon", "--upload_to", "http://y", "--nofullscreen", "out"},
			options{webcam: true, printCount: 0, printer: "Canon", uploadTo: "http://y", noFullscreen: true, saveTo: "out"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseFlags(tc.args)
			if err != nil {
				t.Fatalf("parseFlags: %v", err)
			}
			opts.configPath = ""
			if *opts != tc.want {
				t.Errorf("opts = %+v, want %+v", *opts, tc.want)
			}
		})
	}
}

func TestParseFlags_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"debug_and_webcam", []string{"-d", "-w", "out"}},
		{"negative_count", []string{"-p", "-3", "out"}},
		{"two_folders", []string{"a", "b"}},
		{"no_folder", nil},
		{"flags_only", []string{"-d"}},
		{"unknown_flag", []string{"--colour", "out"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseFlags(tc.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- applyOverrides ----------

func TestApplyOverrides_Debug(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, &options{debug: true, printCount: -1, saveTo: "/tmp/out"})
	if cfg.Camera.Type != config.CameraDebug || cfg.CountDown().Seconds() != 2 {
		t.Errorf("debug preset not applied: camera=%s countdown=%v", cfg.Camera.Type, cfg.CountDown())
	}
	if cfg.Booth.SaveTo != "/tmp/out" {
		t.Errorf("SaveTo = %s", cfg.Booth.SaveTo)
	}
	if cfg.Printer.Count != 0 {
		t.Errorf("print count changed to %d", cfg.Printer.Count)
	}
}

func TestApplyOverrides_Everything(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, &options{
		webcam:       true,
		noFullscreen: true,
		printCount:   3,
		printer:      "Selphy",
		uploadTo:     "http://gallery/upload",
	})
	if cfg.Camera.Type != config.CameraWebcam || cfg.Display.Fullscreen {
		t.Errorf("camera=%s fullscreen=%v", cfg.Camera.Type, cfg.Display.Fullscreen)
	}
	if cfg.Printer.Count != 3 || cfg.Printer.Name != "Selphy" || !cfg.PrintingEnabled() {
		t.Errorf("printer = %+v", cfg.Printer)
	}
	if !cfg.UploadEnabled() || cfg.Upload.URL != "http://gallery/upload" {
		t.Errorf("upload = %+v", cfg.Upload)
	}
}

func TestApplyOverrides_ZeroPrintCountDisables(t *testing.T) {
	cfg := config.Default()
	cfg.Printer.Count = 2
	applyOverrides(cfg, &options{printCount: 0})
	if cfg.PrintingEnabled() {
		t.Error("-p 0 should disable printing")
	}
}

// ---------- logLevel ----------

func TestLogLevel(t *testing.T) {
	cfg := config.Default()
	if got := logLevel(cfg); got != debug.LevelInfo {
		t.Errorf("production level = %d", got)
	}
	cfg.ApplyDebugPreset()
	if got := logLevel(cfg); got != debug.LevelLive {
		t.Errorf("debug level = %d, want %d", got, debug.LevelLive)
	}
	cfg.Defaults.DebugLevel = debug.LevelTrace
	if got := logLevel(cfg); got != debug.LevelTrace {
		t.Errorf("explicit level = %d", got)
	}
}
