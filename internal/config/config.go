package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Camera backends.
const (
	CameraDSLR   = "dslr"
	CameraWebcam = "webcam"
	CameraDebug  = "debug"
)

// Button backends.
const (
	ButtonNone   = "none"
	ButtonSerial = "serial"
	ButtonGPIO   = "gpio"
)

// Printer backends.
const (
	PrinterCommand = "lpr"
	PrinterSpooler = "cups"
	PrinterFile    = "file"
)

// TokenEnv is the environment variable consulted when upload.api_token is empty.
const TokenEnv = "PHOTOBOOTH_API_TOKEN"

// BoothConfig holds the session timings and output settings.
type BoothConfig struct {
	SaveTo                string  `yaml:"save_to"`                 // output directory for captured images
	CountDownMs           int     `yaml:"count_down_ms"`           // countdown before each shot
	ImageDisplayMs        int     `yaml:"image_display_ms"`        // how long the last capture stays on screen
	MontageDisplayMs      int     `yaml:"montage_display_ms"`      // how long the collage stays on screen
	IdleTimeMs            int     `yaml:"idle_time_ms"`            // uncommitted session / camera sleep timeout
	FPS                   int     `yaml:"fps"`                     // tick rate of the display loop
	CollagePaddingPercent float64 `yaml:"collage_padding_percent"` // gap between quadrants, percent of width
}

// DisplayConfig describes the surface the booth renders to.
type DisplayConfig struct {
	Width      int  `yaml:"width"`  // display resolution in pixels
	Height     int  `yaml:"height"` // display resolution in pixels
	Fullscreen bool `yaml:"fullscreen"`
}

// CameraConfig selects a concrete camera implementation.
type CameraConfig struct {
	Type            string `yaml:"type"`              // dslr, webcam or debug
	Device          string `yaml:"device"`            // webcam device, e.g. /dev/video0
	Width           int    `yaml:"width"`             // webcam frame width
	Height          int    `yaml:"height"`            // webcam frame height
	PreviewImage    string `yaml:"preview_image"`     // debug camera source image
	GPhoto2Path     string `yaml:"gphoto2_path"`      // gphoto2 binary
	CaptureAttempts int    `yaml:"capture_attempts"`  // DSLR capture attempts before giving up
	CaptureDelayMs  int    `yaml:"capture_delay_ms"`  // webcam/debug settle delay before capture
}

// ButtonConfig selects the physical trigger.
type ButtonConfig struct {
	Type      string `yaml:"type"`       // none, serial or gpio
	TTY       string `yaml:"tty"`        // serial device, carrier-detect line is the button
	BaudRate  int    `yaml:"baud_rate"`  // serial speed
	Pin       int    `yaml:"pin"`        // GPIO pin (BCM)
	ActiveLow bool   `yaml:"active_low"` // pressed pulls the line LOW (pull-up wiring)
	MockGPIO  bool   `yaml:"mock_gpio"`  // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// PrinterConfig selects the print backend.
type PrinterConfig struct {
	Type     string `yaml:"type"`      // lpr, cups or file
	Name     string `yaml:"name"`      // destination; empty = system default
	Count    int    `yaml:"count"`     // copies per collage; 0 disables printing
	DryRun   bool   `yaml:"dry_run"`   // log print commands without running them
	CUPSHost string `yaml:"cups_host"` // IPP server for the cups backend
	CUPSPort int    `yaml:"cups_port"`
	CUPSUser string `yaml:"cups_user"`
}

// UploadConfig configures the optional upload of captured images.
type UploadConfig struct {
	URL       string `yaml:"url"`        // endpoint; empty disables uploads
	APIToken  string `yaml:"api_token"`  // X-API-TOKEN header value
	Workers   int    `yaml:"workers"`    // in-process upload workers
	RedisAddr string `yaml:"redis_addr"` // when set, uploads go through an asynq queue
	TimeoutMs int    `yaml:"timeout_ms"` // per-request timeout
}

// WebConfig configures the kiosk web surface.
type WebConfig struct {
	Addr string `yaml:"addr"` // listen address, e.g. ":8080"
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	Debug      bool `yaml:"debug"`       // debug camera and shortened timings
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Booth    BoothConfig    `yaml:"booth"`
	Display  DisplayConfig  `yaml:"display"`
	Camera   CameraConfig   `yaml:"camera"`
	Button   ButtonConfig   `yaml:"button"`
	Printer  PrinterConfig  `yaml:"printer"`
	Upload   UploadConfig   `yaml:"upload"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the production preset.
func Default() *Config {
	cfg := &Config{
		Display:  DisplayConfig{Fullscreen: true},
		Defaults: DefaultsConfig{DebugLevel: 1},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if cfg.Defaults.Debug {
		cfg.ApplyDebugPreset()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c *Config) applyDefaults() {
	if c.Booth.SaveTo == "" {
		c.Booth.SaveTo = "."
	}
	if c.Booth.CountDownMs <= 0 {
		c.Booth.CountDownMs = 5000
	}
	if c.Booth.ImageDisplayMs <= 0 {
		c.Booth.ImageDisplayMs = 3000
	}
	if c.Booth.MontageDisplayMs <= 0 {
		c.Booth.MontageDisplayMs = 15000
	}
	if c.Booth.IdleTimeMs <= 0 {
		c.Booth.IdleTimeMs = 240000
	}
	if c.Booth.FPS <= 0 {
		c.Booth.FPS = 25
	}
	if c.Booth.CollagePaddingPercent == 0 {
		c.Booth.CollagePaddingPercent = 2
	}

	if c.Display.Width <= 0 {
		c.Display.Width = 1920
	}
	if c.Display.Height <= 0 {
		c.Display.Height = 1080
	}

	if c.Camera.Type == "" {
		c.Camera.Type = CameraDSLR
	}
	if c.Camera.Device == "" {
		c.Camera.Device = "/dev/video0"
	}
	if c.Camera.Width <= 0 {
		c.Camera.Width = 640
	}
	if c.Camera.Height <= 0 {
		c.Camera.Height = 480
	}
	if c.Camera.PreviewImage == "" {
		c.Camera.PreviewImage = "preview.jpg"
	}
	if c.Camera.GPhoto2Path == "" {
		c.Camera.GPhoto2Path = "gphoto2"
	}
	if c.Camera.CaptureAttempts <= 0 {
		c.Camera.CaptureAttempts = 5
	}
	if c.Camera.CaptureDelayMs <= 0 {
		c.Camera.CaptureDelayMs = 500
	}

	if c.Button.Type == "" {
		c.Button.Type = ButtonSerial
	}
	if c.Button.TTY == "" {
		c.Button.TTY = "/dev/ttyUSB0"
	}
	if c.Button.BaudRate <= 0 {
		c.Button.BaudRate = 9600
	}

	if c.Printer.Type == "" {
		c.Printer.Type = PrinterCommand
	}
	if c.Printer.CUPSHost == "" {
		c.Printer.CUPSHost = "localhost"
	}
	if c.Printer.CUPSPort <= 0 {
		c.Printer.CUPSPort = 631
	}

	if c.Upload.Workers <= 0 {
		c.Upload.Workers = 2
	}
	if c.Upload.TimeoutMs <= 0 {
		c.Upload.TimeoutMs = 30000
	}

	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
}

// ApplyDebugPreset switches to the debug camera and the shortened timings.
func (c *Config) ApplyDebugPreset() {
	c.Defaults.Debug = true
	c.Camera.Type = CameraDebug
	c.Booth.CountDownMs = 2000
	c.Booth.ImageDisplayMs = 3000
	c.Booth.MontageDisplayMs = 8000
	c.Booth.IdleTimeMs = 30000
	c.Printer.DryRun = true
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Camera.Type {
	case CameraDSLR, CameraWebcam, CameraDebug:
	default:
		return fmt.Errorf("unsupported camera type: %s", c.Camera.Type)
	}
	switch c.Button.Type {
	case ButtonNone, ButtonSerial, ButtonGPIO:
	default:
		return fmt.Errorf("unsupported button type: %s", c.Button.Type)
	}
	switch c.Printer.Type {
	case PrinterCommand, PrinterSpooler, PrinterFile:
	default:
		return fmt.Errorf("unsupported printer type: %s", c.Printer.Type)
	}
	if c.Printer.Count < 0 {
		return fmt.Errorf("printer.count must be >= 0, got %d", c.Printer.Count)
	}
	if c.Booth.CollagePaddingPercent < 0 || c.Booth.CollagePaddingPercent >= 50 {
		return fmt.Errorf("collage_padding_percent must be between 0 and 50, got %.2f", c.Booth.CollagePaddingPercent)
	}
	if c.Booth.FPS > 120 {
		return fmt.Errorf("fps must be <= 120, got %d", c.Booth.FPS)
	}
	if c.Button.Type == ButtonGPIO && c.Button.Pin <= 0 {
		return fmt.Errorf("button.pin is required for the gpio button")
	}
	return nil
}

// APIToken returns the upload token, from the file or the environment.
func (c *Config) APIToken() string {
	if c.Upload.APIToken != "" {
		return c.Upload.APIToken
	}
	return os.Getenv(TokenEnv)
}

// CountDown returns the countdown before each shot.
func (c *Config) CountDown() time.Duration {
	return time.Duration(c.Booth.CountDownMs) * time.Millisecond
}

// ImageDisplay returns how long a fresh capture stays on screen.
func (c *Config) ImageDisplay() time.Duration {
	return time.Duration(c.Booth.ImageDisplayMs) * time.Millisecond
}

// MontageDisplay returns how long the collage stays on screen.
func (c *Config) MontageDisplay() time.Duration {
	return time.Duration(c.Booth.MontageDisplayMs) * time.Millisecond
}

// IdleTime returns the idle timeout.
func (c *Config) IdleTime() time.Duration {
	return time.Duration(c.Booth.IdleTimeMs) * time.Millisecond
}

// FrameInterval returns the duration of one tick.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Booth.FPS)
}

// CaptureDelay returns the settle delay used by the webcam and debug cameras.
func (c *Config) CaptureDelay() time.Duration {
	return time.Duration(c.Camera.CaptureDelayMs) * time.Millisecond
}

// UploadTimeout returns the per-request upload timeout.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutMs) * time.Millisecond
}

// SurfaceSize returns the render surface size: the display resolution when
// fullscreen, half of it otherwise.
func (c *Config) SurfaceSize() (int, int) {
	if c.Display.Fullscreen {
		return c.Display.Width, c.Display.Height
	}
	return c.Display.Width / 2, c.Display.Height / 2
}

// PrintingEnabled reports whether collages are sent to the printer.
func (c *Config) PrintingEnabled() bool {
	return c.Printer.Count > 0
}

// UploadEnabled reports whether captures are uploaded.
func (c *Config) UploadEnabled() bool {
	return c.Upload.URL != ""
}
