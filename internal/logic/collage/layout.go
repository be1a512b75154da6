package collage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Images is the number of pictures in a collage (2 columns x 2 rows).
const Images = 4

// ErrImageCount is returned when Compose does not get exactly four images.
var ErrImageCount = errors.New("collage needs exactly 4 images")

// Background is the colour showing through the padding.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Layout describes where each of the four pictures goes on a canvas.
//
//	+-----+-+-----+
//	|  1  | |  2  |
//	+-----+ +-----+
//	|             |   <- Pad
//	+-----+ +-----+
//	|  3  | |  4  |
//	+-----+-+-----+
type Layout struct {
	Width  int // canvas width
	Height int // canvas height
	Pad    int // gap between quadrants, in pixels
	TileW  int // width of one picture
	TileH  int // height of one picture
}

// NewLayout computes the layout for a width x height canvas with a gap
// of paddingPercent of the width, used both horizontally and vertically.
func NewLayout(width, height int, paddingPercent float64) Layout {
	pad := int(math.Round(paddingPercent / 100 * float64(width)))
	return Layout{
		Width:  width,
		Height: height,
		Pad:    pad,
		TileW:  (width - pad) / 2,
		TileH:  (height - pad) / 2,
	}
}

// Origin returns the top-left corner of picture i (0-based):
// 0 top-left, 1 top-right, 2 bottom-left, 3 bottom-right.
func (l Layout) Origin(i int) image.Point {
	x := (l.TileW + l.Pad) * (i % 2)
	y := 0
	if i > 1 {
		y = l.TileH + l.Pad
	}
	return image.Pt(x, y)
}

// Tile returns the rectangle picture i is scaled into.
func (l Layout) Tile(i int) image.Rectangle {
	o := l.Origin(i)
	return image.Rect(o.X, o.Y, o.X+l.TileW, o.Y+l.TileH)
}

// Draw scales the four pictures into their tiles on dst, offset by
// dst.Bounds().Min. Scaling uses CatmullRom for print quality; set fast
// for on-screen use.
func (l Layout) Draw(dst draw.Image, images []image.Image, fast bool) error {
	if len(images) != Images {
		return fmt.Errorf("%w, got %d", ErrImageCount, len(images))
	}
	var scaler xdraw.Scaler = xdraw.CatmullRom
	if fast {
		scaler = xdraw.ApproxBiLinear
	}
	offset := dst.Bounds().Min
	for i, img := range images {
		scaler.Scale(dst, l.Tile(i).Add(offset), img, img.Bounds(), draw.Over, nil)
	}
	return nil
}

// Compose builds the collage on a new canvas the size of the first image.
func Compose(images []image.Image, paddingPercent float64) (*image.RGBA, error) {
	if len(images) != Images {
		return nil, fmt.Errorf("%w, got %d", ErrImageCount, len(images))
	}
	b := images[0].Bounds()
	l := NewLayout(b.Dx(), b.Dy(), paddingPercent)

	canvas := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	if err := l.Draw(canvas, images, false); err != nil {
		return nil, err
	}
	return canvas, nil
}
