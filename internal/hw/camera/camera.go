package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/logic/capture"
)

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract "camera", regardless of how it's controlled
// (gphoto2, V4L2, a file on disk, etc.).
type Camera interface {
	// CapturePreview returns a low-resolution live view frame. It
	// reacquires the device if Sleep was called.
	CapturePreview() (image.Image, error)

	// CaptureImage takes a full picture and writes it to path as JPEG.
	CaptureImage(path string) error

	// Sleep releases the hardware so the camera can power down.
	Sleep() error
}

// JPEGQuality is used whenever a camera has to encode a frame itself.
const JPEGQuality = 95

// New selects a camera implementation based on configuration.
func New(cfg config.CameraConfig, log *debug.Logger) (Camera, error) {
	delay := time.Duration(cfg.CaptureDelayMs) * time.Millisecond
	switch cfg.Type {
	case config.CameraDSLR:
		return NewDSLR(cfg.GPhoto2Path, capture.CapturePolicy(cfg.CaptureAttempts), log), nil
	case config.CameraWebcam:
		return OpenWebcam(cfg.Device, cfg.Width, cfg.Height, delay, log)
	case config.CameraDebug:
		return NewDebug(cfg.PreviewImage, delay, log), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Type)
	}
}

func decodeJPEG(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// ReadJPEG loads a JPEG file.
func ReadJPEG(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeJPEG(data)
}

// WriteJPEG encodes img to path through a temporary file so readers never
// see a partially written image.
func WriteJPEG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".capture-*.jpg")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
