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
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/display"
	"github.com/cjeanneret/PhotoBooth/internal/hw/button"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
	"github.com/cjeanneret/PhotoBooth/internal/hw/printer"
	"github.com/cjeanneret/PhotoBooth/internal/logic/booth"
	"github.com/cjeanneret/PhotoBooth/internal/upload"
	"github.com/cjeanneret/PhotoBooth/internal/web"
)

// options are the command line settings; zero values leave the config alone.
type options struct {
	configPath   string
	debug        bool
	webcam       bool
	noFullscreen bool
	printCount   int // -1 = from config
	printer      string
	uploadTo     string
	saveTo       string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration; a missing file means built-in defaults
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.UploadEnabled() && cfg.APIToken() == "" {
		log.Fatalf("%v (set upload.api_token or %s)", upload.ErrNoToken, config.TokenEnv)
	}

	// Log to stdout, the log file and the kiosk status stream
	logFile, err := debug.OpenLogFile(debug.LogFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer logFile.Close()
	broadcaster := web.NewStatusBroadcaster()
	logger := debug.New(io.MultiWriter(os.Stdout, logFile, web.BroadcastWriter(broadcaster)), logLevel(cfg))

	if err := run(ctx, cfg, opts.configPath, broadcaster, logger); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// parseFlags reads the command line: photobooth [flags] save_to.
func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("photobooth", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	fs.BoolVar(&opts.debug, "d", false, "debug camera and short timings")
	fs.BoolVar(&opts.debug, "debug", false, "debug camera and short timings")
	fs.BoolVar(&opts.webcam, "w", false, "use the webcam")
	fs.BoolVar(&opts.webcam, "webcam", false, "use the webcam")
	fs.BoolVar(&opts.noFullscreen, "nofullscreen", false, "windowed display at half resolution")
	fs.IntVar(&opts.printCount, "p", -1, "number of copies to print, 0 disables printing")
	fs.IntVar(&opts.printCount, "print_count", -1, "number of copies to print, 0 disables printing")
	fs.StringVar(&opts.printer, "P", "", "printer to use")
	fs.StringVar(&opts.printer, "printer", "", "printer to use")
	fs.StringVar(&opts.uploadTo, "u", "", "URL to upload images to")
	fs.StringVar(&opts.uploadTo, "upload_to", "", "URL to upload images to")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: photobooth [flags] save_to\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.debug && opts.webcam {
		return nil, errors.New("-d/--debug and -w/--webcam are mutually exclusive")
	}
	if opts.printCount < -1 {
		return nil, fmt.Errorf("print_count must be >= 0, got %d", opts.printCount)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected one save_to argument, got %v", fs.Args())
	}
	opts.saveTo = fs.Arg(0)
	return opts, nil
}

// applyOverrides mutates cfg with the command line settings.
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.debug {
		cfg.ApplyDebugPreset()
	}
	if opts.webcam {
		cfg.Camera.Type = config.CameraWebcam
	}
	if opts.noFullscreen {
		cfg.Display.Fullscreen = false
	}
	if opts.printCount >= 0 {
		cfg.Printer.Count = opts.printCount
	}
	if opts.printer != "" {
		cfg.Printer.Name = opts.printer
	}
	if opts.uploadTo != "" {
		cfg.Upload.URL = opts.uploadTo
	}
	if opts.saveTo != "" {
		cfg.Booth.SaveTo = opts.saveTo
	}
}

// logLevel raises the level to live output in debug mode.
func logLevel(cfg *config.Config) int {
	if cfg.Defaults.Debug && cfg.Defaults.DebugLevel < debug.LevelLive {
		return debug.LevelLive
	}
	return cfg.Defaults.DebugLevel
}

// run wires the devices and runs the booth until quit or ctx is done.
func run(ctx context.Context, cfg *config.Config, cfgPath string, broadcaster *web.StatusBroadcaster, logger *debug.Logger) error {
	logger.Section("Initialization")
	logger.Value("Config path", cfgPath)
	logger.Value("Debug level", logger.Level())
	logger.Value("Save to", cfg.Booth.SaveTo)
	logger.Value("Camera type", cfg.Camera.Type)
	logger.Value("Button type", cfg.Button.Type)
	logger.Value("Print count", cfg.Printer.Count)
	logger.PrintStruct("Booth config", cfg.Booth)

	logger.Step(1, "Initializing camera")
	cam, err := camera.New(cfg.Camera, logger)
	if err != nil {
		return fmt.Errorf("init camera failed: %w", err)
	}

	logger.Step(2, "Initializing button")
	var gpioDriver gpio.Driver
	if cfg.Button.Type == config.ButtonGPIO {
		gpioDriver, err = gpio.NewDriver(cfg.Button.MockGPIO, logger)
		if err != nil {
			return fmt.Errorf("init GPIO failed: %w", err)
		}
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				logger.Errorf("closing GPIO driver failed: %v", err)
			}
		}()
	}
	btn, err := button.New(cfg.Button, gpioDriver, logger)
	if err != nil {
		return fmt.Errorf("init button failed: %w", err)
	}
	defer btn.Close()

	var prn printer.Printer
	if cfg.PrintingEnabled() {
		logger.Step(3, "Initializing printer")
		prn, err = printer.New(cfg.Printer, logger)
		if err != nil {
			return fmt.Errorf("init printer failed: %w", err)
		}
	}

	logger.Step(4, "Initializing uploads")
	uploads, err := upload.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init upload failed: %w", err)
	}
	if uploads != nil {
		defer uploads.Close()
	}

	logger.Step(5, "Initializing display")
	frames := web.NewFrameHub()
	width, height := cfg.SurfaceSize()
	surface, err := display.NewSurface(width, height, frames)
	if err != nil {
		return fmt.Errorf("init display failed: %w", err)
	}
	logger.Value("Surface", fmt.Sprintf("%dx%d", width, height))

	keys := web.NewKeyQueue()
	srv, err := web.NewServer(cfg.Web.Addr, broadcaster, frames, keys, web.DisplayConfig{
		Width:      width,
		Height:     height,
		Fullscreen: cfg.Display.Fullscreen,
		FPS:        cfg.Booth.FPS,
	}, logger)
	if err != nil {
		return err
	}

	b, err := booth.New(cfg, booth.Deps{
		Camera:  cam,
		Button:  btn,
		Printer: prn,
		Uploads: uploads,
		Surface: surface,
		Keys:    keys,
	}, logger)
	if err != nil {
		return err
	}

	webCtx, stopWeb := context.WithCancel(ctx)
	webErr := make(chan error, 1)
	go func() { webErr <- srv.Run(webCtx) }()

	logger.Summary("PhotoBooth ready")
	err = b.Start(ctx)
	stopWeb()
	if werr := <-webErr; werr != nil {
		logger.Errorf("web server: %v", werr)
	}
	return err
}
