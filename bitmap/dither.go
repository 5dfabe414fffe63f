package bitmap

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"
)

var bw = []color.Color{color.Black, color.White}

// diffusionDither returns a binarize function that applies error diffusion
// dithering using the specified matrix, after gamma correction.  Gamma
// above 1 lightens the page so that paper grain does not turn into noise.
func diffusionDither(matrix dither.ErrorDiffusionMatrix, gamma float64) BinarizeFunc {
	return func(g *Gray) *image.RGBA {
		dithered := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
		d := dither.NewDitherer(bw)
		d.Matrix = matrix
		d.Draw(dithered, dithered.Bounds(), imaging.AdjustGamma(g.Image(), gamma), image.Point{})
		return dithered
	}
}

var (
	// DAtkinson applies Atkinson error diffusion dithering with a gamma value of 3.0.
	DAtkinson = diffusionDither(dither.Atkinson, 3.0)
	// DStucki applies Stucki error diffusion dithering with a gamma value of 3.5.
	DStucki = diffusionDither(dither.Stucki, 3.5)
)

// DFloydSteinberg applies Floyd-Steinberg dithering, it uses standard
// library, so it is defined as a function instead of a variable like the
// others.
func DFloydSteinberg(g *Gray) *image.RGBA {
	const gamma = 1.5
	src := imaging.AdjustGamma(g.Image(), gamma)
	pal := image.NewPaletted(src.Bounds(), bw)
	draw.FloydSteinberg.Draw(pal, pal.Bounds(), src, image.Point{})
	out := image.NewRGBA(pal.Bounds())
	draw.Draw(out, out.Bounds(), pal, image.Point{}, draw.Src)
	return out
}
