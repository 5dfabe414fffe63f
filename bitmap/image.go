// Package bitmap provides bitmap image manipulation funcitons used by the
// document scanner: grayscale reduction, thresholding, edge detection and
// cropping.
package bitmap

import (
	"image"
	"image/color"
	"math"
)

const (
	// DefaultThreshold is the default threshold for dark pixels.
	DefaultThreshold = 128
	// BlankWhiteRatio is the white pixel ratio above which the page is
	// considered blank.
	BlankWhiteRatio = 0.99
)

var (
	Black = color.RGBA{0, 0, 0, 0xff}
	White = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Gray is a single channel intensity buffer, one value per pixel, indexed
// row*Width+col.
type Gray struct {
	Width  int
	Height int
	Pix    []uint8
}

// Luminance returns 0.299R + 0.587G + 0.114B truncated to an integer.  It is
// computed in integers, so white stays 255.
func Luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}

// NewGray reduces img to a grayscale buffer.  Alpha is ignored, so a
// transparent pixel of a premultiplied image reduces to black.
func NewGray(img *image.RGBA) *Gray {
	b := img.Bounds()
	g := &Gray{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]uint8, b.Dx()*b.Dy()),
	}
	for y := 0; y < g.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+4*g.Width]
		for x := 0; x < g.Width; x++ {
			g.Pix[y*g.Width+x] = Luminance(row[4*x], row[4*x+1], row[4*x+2])
		}
	}
	return g
}

// Image returns the buffer as *image.Gray.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// WhiteRatio returns the share of white pixels in a binarized image.
func WhiteRatio(img *image.RGBA) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	var white int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			if img.Pix[off+4*x] == 0xff {
				white++
			}
		}
	}
	return float64(white) / float64(total)
}

// IsDocument reports whether the image histogram is dominated by dark and
// light pixels, as it is for printed or handwritten pages.
func IsDocument(g *Gray, darkThreshold, lightThreshold uint8) bool {
	if g == nil || len(g.Pix) == 0 {
		return false
	}
	if darkThreshold == 0 {
		darkThreshold = 50
	}
	if lightThreshold == 0 {
		lightThreshold = 200
	}
	histogram := Histogram(g)
	var (
		darkPixelCount  float64
		lightPixelCount float64
		totalPixelCount float64
	)
	for i, count := range histogram {
		totalPixelCount += float64(count)
		if i < int(darkThreshold) {
			darkPixelCount += float64(count)
		} else if i >= int(lightThreshold) {
			lightPixelCount += float64(count)
		}
	}
	if totalPixelCount == 0 {
		return false
	}
	return (darkPixelCount+lightPixelCount)/totalPixelCount > 0.85
}

// Histogram returns the intensity histogram of the buffer.
func Histogram(g *Gray) [math.MaxUint8 + 1]int {
	var h [math.MaxUint8 + 1]int
	for _, v := range g.Pix {
		h[v]++
	}
	return h
}

// Opaque forces the alpha channel of every pixel to 255.
func Opaque(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			img.Pix[off+4*x+3] = 0xff
		}
	}
}
