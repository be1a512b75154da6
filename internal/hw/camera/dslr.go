package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/logic/capture"
)

// Exposure modes written to autoexposuremode.
const (
	ExposurePreview = "AV"     // aperture priority while framing
	ExposureCapture = "Manual" // fixed exposure for the flash shot
)

// Runner executes the gphoto2 binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DSLR drives a tethered camera through the gphoto2 command line tool.
// Every gphoto2 invocation opens and closes the USB connection, so the
// "handle" is the claim that the camera has been configured for preview.
type DSLR struct {
	bin      string
	run      Runner
	capture  *capture.Retrier
	settings *capture.Retrier
	log      *debug.Logger

	awake       bool
	previewPath string
}

// NewDSLR creates a gphoto2-backed camera; captures are retried under p.
func NewDSLR(bin string, p capture.Policy, log *debug.Logger) *DSLR {
	return &DSLR{
		bin:         bin,
		run:         execRunner,
		capture:     capture.NewRetrier(p, log),
		settings:    capture.NewRetrier(capture.SettingsPolicy(), log),
		log:         log,
		previewPath: filepath.Join(os.TempDir(), "photobooth-preview.jpg"),
	}
}

func (d *DSLR) gphoto(args ...string) error {
	d.log.Trace("gphoto2 %s", strings.Join(args, " "))
	out, err := d.run(context.Background(), d.bin, args...)
	if err != nil {
		return fmt.Errorf("gphoto2 %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// setExposure writes autoexposuremode, reconnecting on repeated failures.
func (d *DSLR) setExposure(mode string) error {
	return d.settings.Do(context.Background(), "set exposure "+mode, d, func() error {
		return d.gphoto("--set-config", "autoexposuremode="+mode)
	})
}

// Reinit resets the USB port, the equivalent of reopening the camera.
// Closing the session also drops the mirror, which the camera needs
// before it will autofocus for a capture.
func (d *DSLR) Reinit() error {
	d.awake = false
	return d.gphoto("--reset")
}

// Release forgets the configured state.
func (d *DSLR) Release() error {
	d.awake = false
	return nil
}

func (d *DSLR) wake() error {
	if d.awake {
		return nil
	}
	d.log.Verbose("Camera: waking DSLR")
	if err := d.setExposure(ExposurePreview); err != nil {
		return err
	}
	d.awake = true
	return nil
}

// CapturePreview grabs a live view frame.
func (d *DSLR) CapturePreview() (image.Image, error) {
	if err := d.wake(); err != nil {
		return nil, err
	}
	if err := d.gphoto("--capture-preview", "--filename", d.previewPath, "--force-overwrite"); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.previewPath)
	if err != nil {
		return nil, fmt.Errorf("read preview: %w", err)
	}
	return decodeJPEG(data)
}

// CaptureImage takes a picture and downloads it to path. gphoto2 fails
// regularly, e.g. when the camera cannot focus; the capture is retried
// with a port reset before each attempt.
func (d *DSLR) CaptureImage(path string) error {
	err := d.capture.Do(context.Background(), "capture "+filepath.Base(path), d, func() error {
		if err := d.setExposure(ExposureCapture); err != nil {
			return err
		}
		if err := d.gphoto("--capture-image-and-download", "--filename", path, "--force-overwrite"); err != nil {
			return err
		}
		if err := d.setExposure(ExposurePreview); err != nil {
			return err
		}
		d.awake = true
		return nil
	})
	if err != nil {
		return err
	}
	d.log.Verbose("Camera: DSLR capture written to %s", path)
	return nil
}

// Sleep lets the camera power down; the next preview reconfigures it.
func (d *DSLR) Sleep() error {
	d.log.Info("Camera: sleep")
	d.awake = false
	return nil
}
