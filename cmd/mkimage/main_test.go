package main

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docscan"
)

func TestSamples(t *testing.T) {
	tests := []struct {
		name        string
		fn          drawFunc
		wantCropped bool
		wantBlank   bool
	}{
		{"page", pageFunc, true, false},
		{"small", smallPageFunc, false, false},
		{"blank", blankFunc, false, true},
		{"shadow", shadowFunc, true, false},
	}
	sc := docscan.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := render(800, 600, tt.fn)
			_, pg, err := sc.Process(img)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCropped, pg.Cropped)
			if tt.wantBlank {
				assert.True(t, pg.Blank)
			}
		})
	}
}

func TestPage(t *testing.T) {
	got := page(image.Rect(0, 0, 100, 50), 0.5)
	assert.Equal(t, image.Rect(25, 12, 75, 37), got)
}
