package bitmap

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ScaleFactor returns the uniform scale that fits width x height into
// maxWidth x maxHeight.  It returns 1 if the image already fits.
func ScaleFactor(width, height, maxWidth, maxHeight int) float64 {
	if width <= maxWidth && height <= maxHeight {
		return 1
	}
	return math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
}

// ScaledSize returns the dimensions of a width x height image bounded by
// maxWidth x maxHeight, preserving the aspect ratio.
func ScaledSize(width, height, maxWidth, maxHeight int) (int, int, float64) {
	scale := ScaleFactor(width, height, maxWidth, maxHeight)
	if scale == 1 {
		return width, height, scale
	}
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return max(1, min(w, maxWidth)), max(1, min(h, maxHeight)), scale
}

// ResizeToBound rasterises img onto a fresh RGBA canvas, scaling it down if
// either dimension exceeds the bound.  Images that fit are copied as is.
// The returned canvas always starts at the origin.
func ResizeToBound(img image.Image, maxWidth, maxHeight int) (*image.RGBA, float64) {
	sb := img.Bounds()
	w, h, scale := ScaledSize(sb.Dx(), sb.Dy(), maxWidth, maxHeight)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(canvas, canvas.Bounds(), img, sb.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, sb, draw.Src, nil)
	}
	return canvas, scale
}

// Crop copies the rectangle r of img into a new canvas starting at the
// origin.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
