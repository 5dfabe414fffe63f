package bitmap

import (
	"image"
)

const (
	// BradleyT is the Bradley-Roth threshold percentage: a pixel is black if
	// it is more than T percent darker than its neighbourhood average.
	BradleyT = 15
	// BradleyWindowDiv divides the image width to obtain the window size.
	BradleyWindowDiv = 8
)

// Integral is a prefix-sum table over a grayscale buffer, indexed
// row*Width+col.
type Integral struct {
	Width  int
	Height int
	Sum    []int64
}

// RowIntegral accumulates a running sum along each row: Sum[y][x] is the sum
// of the intensities of row y for columns 0..x.  The sum restarts on each
// row, so it is not a summed-area table.
func RowIntegral(g *Gray) *Integral {
	in := &Integral{Width: g.Width, Height: g.Height, Sum: make([]int64, len(g.Pix))}
	for y := 0; y < g.Height; y++ {
		var sum int64
		for x := 0; x < g.Width; x++ {
			i := y*g.Width + x
			sum += int64(g.Pix[i])
			in.Sum[i] = sum
		}
	}
	return in
}

// SummedArea builds the canonical two-dimensional summed-area table:
// Sum[y][x] is the sum of all intensities with column <= x and row <= y.
func SummedArea(g *Gray) *Integral {
	in := &Integral{Width: g.Width, Height: g.Height, Sum: make([]int64, len(g.Pix))}
	for x := 0; x < g.Width; x++ {
		var sum int64
		for y := 0; y < g.Height; y++ {
			i := y*g.Width + x
			sum += int64(g.Pix[i])
			if x == 0 {
				in.Sum[i] = sum
			} else {
				in.Sum[i] = in.Sum[i-1] + sum
			}
		}
	}
	return in
}

// Window returns the inclusion-exclusion sum over the corners (x1,y1) and
// (x2,y2) of the table.
func (in *Integral) Window(x1, y1, x2, y2 int) int64 {
	w := in.Width
	return in.Sum[y2*w+x2] - in.Sum[y1*w+x2] - in.Sum[y2*w+x1] + in.Sum[y1*w+x1]
}

// Bradley binarizes the grayscale buffer with the Bradley-Roth adaptive
// threshold over the given integral table.  Window size is width/8 and
// the threshold percentage is [BradleyT].  The result is opaque black and
// white.
func Bradley(g *Gray, in *Integral) *image.RGBA {
	var (
		w    = g.Width
		h    = g.Height
		half = (w / BradleyWindowDiv) / 2
		out  = image.NewRGBA(image.Rect(0, 0, w, h))
	)
	for j := 0; j < h; j++ {
		y1 := max(j-half, 0)
		y2 := min(j+half, h-1)
		for i := 0; i < w; i++ {
			x1 := max(i-half, 0)
			x2 := min(i+half, w-1)
			count := int64((x2 - x1) * (y2 - y1))
			sum := in.Window(x1, y1, x2, y2)

			px := j*w + i
			c := White
			// gray*count < sum*(100-t)/100, kept in integers.
			if int64(g.Pix[px])*count*100 < sum*(100-BradleyT) {
				c = Black
			}
			o := 4 * px
			out.Pix[o+0] = c.R
			out.Pix[o+1] = c.G
			out.Pix[o+2] = c.B
			out.Pix[o+3] = c.A
		}
	}
	return out
}

// Threshold binarizes the buffer with a single global threshold.  Pixels
// darker than threshold become black.
func Threshold(g *Gray, threshold uint8) *image.RGBA {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return binarizeBy(g, func(v uint8) bool { return v < threshold })
}

func binarizeBy(g *Gray, isBlack func(v uint8) bool) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Pix {
		c := White
		if isBlack(v) {
			c = Black
		}
		out.Pix[4*i+0] = c.R
		out.Pix[4*i+1] = c.G
		out.Pix[4*i+2] = c.B
		out.Pix[4*i+3] = c.A
	}
	return out
}

// OtsuThreshold calculates the threshold that maximises the between-class
// variance of the buffer histogram.
func OtsuThreshold(g *Gray) uint8 {
	histogram := Histogram(g)
	total := len(g.Pix)
	if total == 0 {
		return DefaultThreshold
	}
	var totalSum float64
	for i, n := range histogram {
		totalSum += float64(i) * float64(n)
	}

	var (
		sumBackground    float64
		weightBackground int
		maxVariance      float64
		best             uint8
	)
	for t, n := range histogram {
		weightBackground += n
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}
		sumBackground += float64(t) * float64(n)
		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (totalSum - sumBackground) / float64(weightForeground)
		d := meanBackground - meanForeground
		variance := float64(weightBackground) * float64(weightForeground) * d * d
		if variance > maxVariance {
			maxVariance = variance
			best = uint8(t)
		}
	}
	return best
}
