package camera

import (
	"image"
	"image/color"
	"os"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Debug is a file-backed stand-in: the preview is read from a JPEG on
// disk, or a generated test pattern when the file is missing, and
// captures write that same picture.
type Debug struct {
	source string
	delay  time.Duration
	log    *debug.Logger

	cached image.Image
}

// NewDebug creates a debug camera reading source.
func NewDebug(source string, delay time.Duration, log *debug.Logger) *Debug {
	return &Debug{source: source, delay: delay, log: log}
}

// CapturePreview returns the source picture.
func (d *Debug) CapturePreview() (image.Image, error) {
	if d.cached != nil {
		return d.cached, nil
	}
	data, err := os.ReadFile(d.source)
	switch {
	case err == nil:
		img, err := decodeJPEG(data)
		if err != nil {
			return nil, err
		}
		d.cached = img
	case os.IsNotExist(err):
		d.log.Verbose("Camera: %s not found, using test pattern", d.source)
		d.cached = TestPattern(640, 480)
	default:
		return nil, err
	}
	return d.cached, nil
}

// CaptureImage pretends to take a picture.
func (d *Debug) CaptureImage(path string) error {
	time.Sleep(d.delay)
	img, err := d.CapturePreview()
	if err != nil {
		return err
	}
	if err := WriteJPEG(path, img); err != nil {
		return err
	}
	d.log.Info("Captured an image: %s", path)
	return nil
}

// Sleep drops the cached picture.
func (d *Debug) Sleep() error {
	d.log.Info("Camera: sleep")
	d.cached = nil
	return nil
}

// TestPattern draws a colour gradient of the given size.
func TestPattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 160,
				A: 255,
			})
		}
	}
	return img
}
