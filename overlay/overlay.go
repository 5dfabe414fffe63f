// Package overlay renders the debug overlay of a scanned page: the detected
// document box and a caption with the processing report.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/rusq/docscan"
)

var (
	Rejected = color.RGBA{0xff, 0x00, 0x00, 0xff} // detected, but not cropped
	Accepted = color.RGBA{0x00, 0xc0, 0x00, 0xff} // cropped to
)

type options struct {
	face      font.Face
	thickness int
	caption   bool
}

type Option func(*options)

// WithFace sets the caption font face.
func WithFace(face font.Face) Option {
	return func(o *options) {
		if face != nil {
			o.face = face
		}
	}
}

// WithThickness sets the rectangle line thickness in pixels.
func WithThickness(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.thickness = n
		}
	}
}

// WithCaption enables or disables the caption.
func WithCaption(b bool) Option {
	return func(o *options) {
		o.caption = b
	}
}

// Annotate draws the page report over img.  img must be in the coordinate
// space of the resized image, i.e. its size should be pg.Width×pg.Height.
// The source image is not modified.
func Annotate(img image.Image, pg *docscan.Page, opt ...Option) *image.RGBA {
	o := options{
		face:      embeddedFonts[DefaultFont],
		thickness: 3,
		caption:   true,
	}
	for _, fn := range opt {
		fn(&o)
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if pg == nil {
		return dst
	}
	if !pg.Detected.Empty() {
		c := Rejected
		if pg.Cropped {
			c = Accepted
		}
		Rect(dst, pg.Detected, o.thickness, c)
	}
	if o.caption && o.face != nil {
		drawCaption(dst, o.face, Caption(pg))
	}
	return dst
}

// Caption returns the caption text for the page.
func Caption(pg *docscan.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %dx%d->%dx%d scale %.2f\n", pg.Method, pg.SourceWidth, pg.SourceHeight, pg.Width, pg.Height, pg.Scale)
	switch {
	case pg.Detected.Empty():
		sb.WriteString("no edges")
	case pg.Cropped:
		fmt.Fprintf(&sb, "crop %v", pg.Detected)
	default:
		fmt.Fprintf(&sb, "rejected %v", pg.Detected)
	}
	fmt.Fprintf(&sb, "\nwhite %.1f%%", pg.WhiteRatio*100)
	if pg.Blank {
		sb.WriteString(" blank")
	}
	if pg.Document {
		sb.WriteString(" document")
	}
	return sb.String()
}

// Rect draws the outline of r clipped to dst, the line grows inwards.
func Rect(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	t := min(thickness, r.Dx(), r.Dy())
	src := image.NewUniform(c)
	for _, side := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
	} {
		draw.Draw(dst, side, src, image.Point{}, draw.Src)
	}
}

// drawCaption draws the text in the top left corner on a white background.
func drawCaption(dst *image.RGBA, face font.Face, text string) {
	const pad = 2
	lines := strings.Split(text, "\n")
	height := face.Metrics().Height
	var width fixed.Int26_6
	for _, l := range lines {
		width = max(width, font.MeasureString(face, l))
	}
	bg := image.Rect(0, 0, width.Ceil()+2*pad, len(lines)*height.Ceil()+2*pad)
	draw.Draw(dst, bg, image.White, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(pad, pad+face.Metrics().Ascent.Ceil()),
	}
	for _, line := range lines {
		d.DrawString(line)
		d.Dot.X = fixed.I(pad)
		d.Dot.Y += height
	}
}
