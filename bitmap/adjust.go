package bitmap

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Enhance applies a linear contrast and brightness adjustment, both in
// percent within [-100, 100], and returns a new canvas.  Zero values leave
// the image unchanged.
func Enhance(img *image.RGBA, contrast, brightness float64) *image.RGBA {
	if contrast == 0 && brightness == 0 {
		return img
	}
	adj := imaging.AdjustBrightness(imaging.AdjustContrast(img, contrast), brightness)
	out := image.NewRGBA(image.Rect(0, 0, adj.Bounds().Dx(), adj.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), adj, adj.Bounds().Min, draw.Src)
	return out
}
