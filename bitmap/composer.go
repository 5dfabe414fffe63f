package bitmap

import (
	"image"
	"image/draw"
)

// Composer appends scanned pages one under another on a white canvas.
type Composer struct {
	dst *image.RGBA // destination image (canvas)
	sp  image.Point // current image position

	gap int // vertical gap between pages, in pixels
}

type ComposerOption func(*Composer)

// WithComposerGap sets the vertical gap between pages.
func WithComposerGap(gap int) ComposerOption {
	return func(c *Composer) {
		if gap >= 0 {
			c.gap = gap
		}
	}
}

// NewComposer returns a composer with a canvas of the given width.  Pages
// wider than the canvas widen it.
func NewComposer(width int, opt ...ComposerOption) *Composer {
	c := &Composer{
		dst: image.NewRGBA(image.Rect(0, 0, width, 0)),
		sp:  image.Point{},
	}
	for _, o := range opt {
		o(c)
	}
	return c
}

// AppendImage appends an image under the previously added ones.
func (c *Composer) AppendImage(img image.Image) {
	if img == nil {
		return // nothing to append
	}
	if c.sp.Y > 0 {
		c.sp.Y += c.gap
	}
	b := img.Bounds()
	width := max(c.dst.Bounds().Dx(), b.Dx())
	if c.sp.Y+b.Dy() > c.dst.Bounds().Dy() || width > c.dst.Bounds().Dx() {
		c.dst = ResizeCanvas(c.dst, width, c.sp.Y+b.Dy())
	}
	draw.Draw(c.dst, image.Rectangle{Min: c.sp, Max: c.sp.Add(b.Size())}, img, b.Min, draw.Src)
	c.sp.Y += b.Dy() // move down by the height of the new image
	c.sp.X = 0
}

// Image returns the composed image.
func (c *Composer) Image() *image.RGBA {
	return c.dst
}

// Bounds returns the canvas rectangle.
func (c *Composer) Bounds() image.Rectangle {
	return c.dst.Bounds()
}

// ResizeCanvas grows the destination image to at least width x height,
// filling the new area with white.  If the canvas is already large enough,
// it returns the original image.
func ResizeCanvas(dst *image.RGBA, width, height int) *image.RGBA {
	width = max(width, dst.Bounds().Dx())
	height = max(height, dst.Bounds().Dy())
	if width == dst.Bounds().Dx() && height == dst.Bounds().Dy() {
		return dst // no need to resize
	}
	newRect := image.Rect(0, 0, width, height)
	newImg := image.NewRGBA(newRect)
	draw.Draw(newImg, newRect, image.White, image.Point{}, draw.Src) // fill with white
	draw.Draw(newImg, dst.Bounds(), dst, dst.Bounds().Min, draw.Src)
	return newImg
}
