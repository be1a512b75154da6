package booth

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/cjeanneret/PhotoBooth/internal/display"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/logic/collage"
	"github.com/cjeanneret/PhotoBooth/internal/logic/session"
	xdraw "golang.org/x/image/draw"
)

// LookText is the final countdown prompt.
const LookText = "Look at the camera!"

// Booth implements session.Stage.
var _ session.Stage = (*Booth)(nil)

// ShowPreview draws the live view. A failing preview is logged and the
// frame stays black.
func (b *Booth) ShowPreview() {
	img, err := b.Camera.CapturePreview()
	if err != nil {
		b.log.Errorf("preview: %v", err)
		return
	}
	b.Surface.BlitScaled(img)
}

// ShowText draws centred text.
func (b *Booth) ShowText(text string) {
	b.Surface.RenderTextCentred(text)
}

// ShowCountdown draws the seconds left, or the look prompt.
func (b *Booth) ShowCountdown(n int, cue session.Cue) {
	switch cue {
	case session.CueLook:
		b.Surface.RenderTextCentred(LookText)
	case session.CueArrow:
		b.Surface.RenderArrow()
		b.Surface.RenderNumber(n)
	default:
		b.Surface.RenderNumber(n)
	}
}

// ShowImage draws a saved capture over the whole surface.
func (b *Booth) ShowImage(path string) error {
	img, err := b.displayImage(path)
	if err != nil {
		return err
	}
	b.Surface.Blit(img, image.Point{})
	return nil
}

// displayImage loads path scaled to the surface, once per session.
func (b *Booth) displayImage(path string) (image.Image, error) {
	if img, ok := b.scaled[path]; ok {
		return img, nil
	}
	src, err := camera.ReadJPEG(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	w, h := b.Surface.Size()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	b.scaled[path] = dst
	return dst, nil
}

// ShowMontage draws the 2x2 grid of paths.
func (b *Booth) ShowMontage(paths []string) error {
	if b.montage == nil {
		images := make([]image.Image, 0, len(paths))
		for _, p := range paths {
			img, err := b.displayImage(p)
			if err != nil {
				return err
			}
			images = append(images, img)
		}
		w, h := b.Surface.Size()
		canvas := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(display.Black), image.Point{}, draw.Src)
		l := collage.NewLayout(w, h, b.cfg.Booth.CollagePaddingPercent)
		if err := l.Draw(canvas, images, true); err != nil {
			return err
		}
		b.montage = canvas
	}
	b.Surface.Blit(b.montage, image.Point{})
	return nil
}

// CaptureImage takes a picture into path and schedules its upload.
func (b *Booth) CaptureImage(path string) error {
	b.log.Live("Capturing %s", path)
	if err := b.Camera.CaptureImage(path); err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	if b.Uploads != nil {
		b.Uploads.UploadAsync(path)
	}
	return nil
}

// SaveAndPrintCombined writes the collage of images to path, prints it
// and schedules its upload. Print failures are logged only.
func (b *Booth) SaveAndPrintCombined(path string, images []string) error {
	b.log.Info("Saving collage %s from %s", path, strings.Join(images, ", "))
	loaded := make([]image.Image, 0, len(images))
	for _, p := range images {
		img, err := camera.ReadJPEG(p)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		loaded = append(loaded, img)
	}
	combined, err := collage.Compose(loaded, b.cfg.Booth.CollagePaddingPercent)
	if err != nil {
		return err
	}
	if err := camera.WriteJPEG(path, combined); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	b.log.Info("Saved collage %s", path)

	if b.Printer != nil && b.cfg.PrintingEnabled() {
		if err := b.Printer.PrintImage(context.Background(), path); err != nil {
			b.log.Errorf("print %s: %v", path, err)
		}
	}
	if b.Uploads != nil {
		b.Uploads.UploadAsync(path)
	}
	return nil
}
