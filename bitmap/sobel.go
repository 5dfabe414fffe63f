package bitmap

import "image"

const (
	// EdgeThreshold is the Sobel gradient magnitude above which a pixel is
	// treated as an edge.
	EdgeThreshold = 40
	// CropMargin is added on every side of the detected edge box.
	CropMargin = 20
)

// EdgeBounds runs a 3x3 Sobel operator over the interior of the buffer
// (the 1 pixel border is skipped) and returns the bounding rectangle of
// all pixels with gradient magnitude above threshold.  The rectangle is
// inclusive of the edge pixels, i.e. Max is the last edge pixel + 1.  ok
// is false if no edge pixel was found.
func EdgeBounds(g *Gray, threshold int) (r image.Rectangle, ok bool) {
	var (
		w      = g.Width
		h      = g.Height
		t2     = threshold * threshold
		minX   = w
		minY   = h
		maxX   = -1
		maxY   = -1
		px     = g.Pix
		at     = func(x, y int) int { return int(px[y*w+x]) }
		border = 1
	)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			// sqrt(gx²+gy²) > threshold
			if gx*gx+gy*gy <= t2 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Expand grows r by margin on every side and clamps it to bounds.
func Expand(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	return r.Inset(-margin).Intersect(bounds)
}
