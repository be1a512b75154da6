package display

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FrameQuality is the JPEG quality of published frames.
const FrameQuality = 80

var (
	// Black is the background of every frame.
	Black = color.RGBA{A: 255}
	// TextColor is used for all on-screen text.
	TextColor = color.RGBA{R: 210, G: 210, B: 210, A: 255}
	// ArrowColor fills the "look up" cue.
	ArrowColor = color.RGBA{R: 230, G: 60, B: 40, A: 255}
)

// FrameSink receives every flipped frame as a JPEG.
type FrameSink interface {
	PublishFrame(jpeg []byte)
}

// Surface is the off-screen canvas the booth draws on. Frames become
// visible on Flip.
type Surface struct {
	mu     sync.Mutex
	canvas *image.RGBA
	text   font.Face
	big    font.Face
	sink   FrameSink
	frames int
}

// NewSurface creates a black width x height surface. sink may be nil.
func NewSurface(width, height int, sink FrameSink) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	text, err := newFace(f, float64(height)/7.6)
	if err != nil {
		return nil, err
	}
	big, err := newFace(f, float64(height)/2.5)
	if err != nil {
		return nil, err
	}
	s := &Surface{
		canvas: image.NewRGBA(image.Rect(0, 0, width, height)),
		text:   text,
		big:    big,
		sink:   sink,
	}
	s.Clear()
	return s, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %.0fpx: %w", size, err)
	}
	return face, nil
}

// Size returns the surface dimensions.
func (s *Surface) Size() (int, int) {
	b := s.canvas.Bounds()
	return b.Dx(), b.Dy()
}

// Clear paints the whole surface black.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.canvas, s.canvas.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)
}

// Blit copies img unscaled with its top-left corner at at.
func (s *Surface) Blit(img image.Image, at image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := image.Rectangle{Min: at, Max: at.Add(img.Bounds().Size())}
	draw.Draw(s.canvas, r, img, img.Bounds().Min, draw.Over)
}

// BlitScaled stretches img over the whole surface.
func (s *Surface) BlitScaled(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	xdraw.ApproxBiLinear.Scale(s.canvas, s.canvas.Bounds(), img, img.Bounds(), draw.Src, nil)
}

// RenderTextCentred draws text in the middle of the surface.
func (s *Surface) RenderTextCentred(text string) {
	s.renderCentred(s.text, text)
}

// RenderNumber draws a large centred number, used by the countdown.
func (s *Surface) RenderNumber(n int) {
	s.renderCentred(s.big, fmt.Sprint(n))
}

func (s *Surface) renderCentred(face font.Face, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &font.Drawer{Dst: s.canvas, Src: image.NewUniform(TextColor), Face: face}
	b := s.canvas.Bounds()
	m := face.Metrics()
	width := d.MeasureString(text)
	height := m.Ascent + m.Descent
	d.Dot = fixed.Point26_6{
		X: fixed.I(b.Dx()/2) - width/2,
		Y: fixed.I(b.Dy()/2) - height/2 + m.Ascent,
	}
	d.DrawString(text)
}

// RenderArrow draws a filled triangle at the top centre pointing up,
// towards the lens.
func (s *Surface) RenderArrow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.canvas.Bounds()
	h := b.Dy() / 4
	top := b.Dy() / 20
	cx := b.Dx() / 2
	for y := 0; y < h; y++ {
		half := y * 3 / 5
		for x := cx - half; x <= cx+half; x++ {
			s.canvas.SetRGBA(x, top+y, ArrowColor)
		}
	}
}

// Flip publishes the current canvas. Frames are JPEG encoded only when a
// sink is attached.
func (s *Surface) Flip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	if s.sink == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.canvas, &jpeg.Options{Quality: FrameQuality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.sink.PublishFrame(buf.Bytes())
	return nil
}

// Frames returns how many times Flip was called.
func (s *Surface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Snapshot returns a copy of the canvas.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.canvas.Bounds())
	copy(out.Pix, s.canvas.Pix)
	return out
}
