package camera

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/blackjack/webcam"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// pixFmtMJPEG is the V4L2 fourcc 'MJPG'.
const pixFmtMJPEG webcam.PixelFormat = 0x47504A4D

// frameTimeout is the V4L2 wait in seconds.
const frameTimeout = 2

// Webcam is a V4L2 camera streaming MJPEG. It is released on Sleep and
// reopened by the next preview.
type Webcam struct {
	device        string
	width, height int
	delay         time.Duration
	log           *debug.Logger

	cam *webcam.Webcam
}

// OpenWebcam opens device and starts streaming.
func OpenWebcam(device string, width, height int, delay time.Duration, log *debug.Logger) (*Webcam, error) {
	w := &Webcam{device: device, width: width, height: height, delay: delay, log: log}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Webcam) open() error {
	cam, err := webcam.Open(w.device)
	if err != nil {
		return fmt.Errorf("open webcam %s: %w", w.device, err)
	}
	if _, ok := cam.GetSupportedFormats()[pixFmtMJPEG]; !ok {
		cam.Close()
		return fmt.Errorf("webcam %s: MJPEG not supported", w.device)
	}
	_, fw, fh, err := cam.SetImageFormat(pixFmtMJPEG, uint32(w.width), uint32(w.height))
	if err != nil {
		cam.Close()
		return fmt.Errorf("webcam %s: set format: %w", w.device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("webcam %s: start streaming: %w", w.device, err)
	}
	w.log.Info("Webcam %s streaming %dx%d MJPEG", w.device, fw, fh)
	w.cam = cam
	return nil
}

// readFrame returns the next complete MJPEG frame.
func (w *Webcam) readFrame() ([]byte, error) {
	if w.cam == nil {
		if err := w.open(); err != nil {
			return nil, err
		}
	}
	for attempt := 0; attempt < 3; attempt++ {
		err := w.cam.WaitForFrame(frameTimeout)
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			w.log.Verbose("Webcam %s: timeout waiting for frame", w.device)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("webcam %s: wait for frame: %w", w.device, err)
		}
		frame, err := w.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("webcam %s: read frame: %w", w.device, err)
		}
		if len(frame) == 0 {
			continue
		}
		data := make([]byte, len(frame))
		copy(data, frame)
		return data, nil
	}
	return nil, fmt.Errorf("webcam %s: no frame received", w.device)
}

// CapturePreview returns the current frame.
func (w *Webcam) CapturePreview() (image.Image, error) {
	data, err := w.readFrame()
	if err != nil {
		return nil, err
	}
	return decodeJPEG(withHuffmanTables(data))
}

// CaptureImage waits for the sitter to settle and saves the current frame.
func (w *Webcam) CaptureImage(path string) error {
	time.Sleep(w.delay)
	img, err := w.CapturePreview()
	if err != nil {
		return err
	}
	return WriteJPEG(path, img)
}

// Sleep stops streaming and closes the device.
func (w *Webcam) Sleep() error {
	w.log.Info("Camera: sleep")
	if w.cam == nil {
		return nil
	}
	cam := w.cam
	w.cam = nil
	if err := cam.StopStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("webcam %s: stop streaming: %w", w.device, err)
	}
	return cam.Close()
}
