package bitmap

import "image"

// CropPolicy decides whether a detected document rectangle is trustworthy
// enough to crop to.
type CropPolicy struct {
	MinAreaRatio float64 // cropped area / total area must be greater than this
	MinWidth     int     // cropped width must be greater than this
	MinHeight    int     // cropped height must be greater than this
}

// DefaultCropPolicy rejects crops that are smaller than 30% of the image or
// not larger than 100x100 pixels.
var DefaultCropPolicy = CropPolicy{
	MinAreaRatio: 0.3,
	MinWidth:     100,
	MinHeight:    100,
}

// Accept reports whether crop should be applied to an image with the given
// bounds.
func (p CropPolicy) Accept(crop, bounds image.Rectangle) bool {
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 || crop.Empty() {
		return false
	}
	ratio := float64(crop.Dx()*crop.Dy()) / float64(total)
	return ratio > p.MinAreaRatio && crop.Dx() > p.MinWidth && crop.Dy() > p.MinHeight
}

// AutoCrop detects the document edges in g and returns the expanded edge
// rectangle and whether the policy accepted it.  If no edges were found,
// detected is empty.
func (p CropPolicy) AutoCrop(g *Gray) (detected image.Rectangle, accept bool) {
	bounds := image.Rect(0, 0, g.Width, g.Height)
	edges, ok := EdgeBounds(g, EdgeThreshold)
	if !ok {
		return image.Rectangle{}, false
	}
	detected = Expand(edges, CropMargin, bounds)
	return detected, p.Accept(detected, bounds)
}
