package bitmap

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// pageOnDesk returns a dark background with a bright rectangle r.
func pageOnDesk(w, h int, r image.Rectangle) *Gray {
	return testGray(w, h, func(x, y int) uint8 {
		if (image.Point{x, y}).In(r) {
			return 200
		}
		return 20
	})
}

func TestEdgeBounds(t *testing.T) {
	tests := []struct {
		name   string
		g      *Gray
		want   image.Rectangle
		wantOK bool
	}{
		{
			name:   "bright rectangle",
			g:      pageOnDesk(40, 30, image.Rect(10, 8, 30, 22)),
			want:   image.Rect(9, 7, 31, 23),
			wantOK: true,
		},
		{
			name:   "uniform image has no edges",
			g:      testGray(40, 30, uniform(128)),
			wantOK: false,
		},
		{
			name:   "weak gradient stays below threshold",
			g:      testGray(40, 30, func(x, y int) uint8 { return uint8(100 + x) }),
			wantOK: false,
		},
		{
			name:   "image smaller than the kernel",
			g:      testGray(2, 2, func(x, y int) uint8 { return uint8(x * 255) }),
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EdgeBounds(tt.g, EdgeThreshold)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)
	assert.Equal(t, image.Rect(10, 10, 70, 60), Expand(image.Rect(30, 30, 50, 40), 20, bounds))
	assert.Equal(t, image.Rect(0, 0, 100, 80), Expand(image.Rect(5, 5, 95, 75), 20, bounds))
}

func TestCropPolicy_Accept(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 1000)
	tests := []struct {
		name string
		crop image.Rectangle
		want bool
	}{
		{"large crop", image.Rect(100, 100, 900, 900), true},
		{"area ratio exactly 0.3 is rejected", image.Rect(0, 0, 300, 1000), false},
		{"area ratio just above 0.3", image.Rect(0, 0, 301, 1000), true},
		{"width exactly 100 is rejected", image.Rect(0, 0, 100, 1000), false},
		{"height exactly 100 is rejected", image.Rect(0, 0, 1000, 100), false},
		{"empty crop", image.Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCropPolicy.Accept(tt.crop, bounds))
		})
	}
}

func TestCropPolicy_AutoCrop(t *testing.T) {
	t.Run("page on dark desk", func(t *testing.T) {
		page := image.Rect(100, 100, 400, 300)
		g := pageOnDesk(500, 400, page)
		got, ok := DefaultCropPolicy.AutoCrop(g)
		assert.True(t, ok)
		assert.True(t, got.In(image.Rect(0, 0, 500, 400)))
		// within the margin of the true page bounds
		assert.InDelta(t, page.Min.X, got.Min.X, CropMargin+1)
		assert.InDelta(t, page.Min.Y, got.Min.Y, CropMargin+1)
		assert.InDelta(t, page.Max.X, got.Max.X, CropMargin+1)
		assert.InDelta(t, page.Max.Y, got.Max.Y, CropMargin+1)
		assert.True(t, page.In(got))
	})
	t.Run("uniform gray is not cropped", func(t *testing.T) {
		got, ok := DefaultCropPolicy.AutoCrop(testGray(500, 500, uniform(128)))
		assert.False(t, ok)
		assert.True(t, got.Empty())
	})
	t.Run("small object is not cropped", func(t *testing.T) {
		_, ok := DefaultCropPolicy.AutoCrop(pageOnDesk(500, 400, image.Rect(200, 200, 250, 250)))
		assert.False(t, ok)
	})
	t.Run("page touching the borders clamps to image", func(t *testing.T) {
		got, ok := DefaultCropPolicy.AutoCrop(pageOnDesk(300, 200, image.Rect(5, 5, 295, 195)))
		assert.True(t, ok)
		assert.Equal(t, image.Rect(0, 0, 300, 200), got)
	})
}
