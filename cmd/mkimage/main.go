// Command mkimage generates the sample document photos for manual testing of
// the scanner.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

var (
	outdir = flag.String("d", "testdata", "Output `directory` for the images")
	imgW   = flag.Int("w", 1600, "Width of the image in `pixels`")
	imgH   = flag.Int("h", 1200, "Height of the image in `pixels`")
)

type drawFunc func(img *image.RGBA)

type job struct {
	filename string
	imgFunc  drawFunc
}

var jobs = []job{
	{filename: "page.png", imgFunc: pageFunc},
	{filename: "small.png", imgFunc: smallPageFunc},
	{filename: "blank.png", imgFunc: blankFunc},
	{filename: "shadow.png", imgFunc: shadowFunc},
}

var (
	desk  = color.RGBA{60, 52, 45, 255}
	paper = color.RGBA{236, 232, 222, 255}
	ink   = color.RGBA{30, 30, 40, 255}
)

func main() {
	flag.Parse()

	if err := os.MkdirAll(*outdir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	for _, j := range jobs {
		filename := filepath.Join(*outdir, j.filename)
		if err := mkimage(filename, *imgW, *imgH, j.imgFunc); err != nil {
			slog.Error("failed to create image", "filename", filename, "error", err)
			os.Exit(1)
		}
		slog.Info("image created", "filename", filename)
	}
}

func mkimage(filename string, w, h int, fn drawFunc) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, render(w, h, fn))
}

func render(w, h int, fn drawFunc) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	fn(canvas)
	return canvas
}

// page returns the page rectangle covering the given fraction of the image,
// centred.
func page(b image.Rectangle, frac float64) image.Rectangle {
	pw, ph := int(float64(b.Dx())*frac), int(float64(b.Dy())*frac)
	min := image.Pt(b.Min.X+(b.Dx()-pw)/2, b.Min.Y+(b.Dy()-ph)/2)
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(pw, ph))}
}

// text draws the lines of "words" inside the page rectangle.
func text(img *image.RGBA, pg image.Rectangle) {
	margin := pg.Dx() / 10
	lineH := max(pg.Dy()/40, 4)
	for y := pg.Min.Y + margin; y+lineH < pg.Max.Y-margin; y += lineH * 2 {
		for x := pg.Min.X + margin; x < pg.Max.X-margin; {
			ww := lineH*2 + (x*7+y*3)%(lineH*4)
			r := image.Rect(x, y, min(x+ww, pg.Max.X-margin), y+lineH/2+1)
			draw.Draw(img, r, image.NewUniform(ink), image.Point{}, draw.Src)
			x += ww + lineH
		}
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func pageFunc(img *image.RGBA) {
	fill(img, img.Bounds(), desk)
	pg := page(img.Bounds(), 0.7)
	fill(img, pg, paper)
	text(img, pg)
}

func smallPageFunc(img *image.RGBA) {
	fill(img, img.Bounds(), desk)
	pg := page(img.Bounds(), 0.2)
	fill(img, pg, paper)
}

func blankFunc(img *image.RGBA) {
	fill(img, img.Bounds(), paper)
}

// shadowFunc draws the page with the light falling off towards the right
// edge.
func shadowFunc(img *image.RGBA) {
	fill(img, img.Bounds(), desk)
	pg := page(img.Bounds(), 0.8)
	for x := pg.Min.X; x < pg.Max.X; x++ {
		k := 1 - 0.5*float64(x-pg.Min.X)/float64(pg.Dx())
		c := color.RGBA{uint8(float64(paper.R) * k), uint8(float64(paper.G) * k), uint8(float64(paper.B) * k), 255}
		fill(img, image.Rect(x, pg.Min.Y, x+1, pg.Max.Y), c)
	}
	text(img, pg)
}
