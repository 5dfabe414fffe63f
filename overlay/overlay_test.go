package overlay

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docscan"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestAnnotate(t *testing.T) {
	tests := []struct {
		name string
		pg   *docscan.Page
		at   image.Point
		want color.RGBA
	}{
		{
			name: "cropped",
			pg:   &docscan.Page{Detected: image.Rect(50, 50, 150, 120), Cropped: true},
			at:   image.Pt(100, 50),
			want: Accepted,
		},
		{
			name: "rejected",
			pg:   &docscan.Page{Detected: image.Rect(50, 50, 150, 120)},
			at:   image.Pt(149, 100),
			want: Rejected,
		},
		{
			name: "no edges",
			pg:   &docscan.Page{},
			at:   image.Pt(100, 100),
			want: color.RGBA{0xff, 0xff, 0xff, 0xff},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := whiteImage(200, 160)
			got := Annotate(src, tt.pg, WithCaption(false))
			assert.Equal(t, tt.want, got.RGBAAt(tt.at.X, tt.at.Y))
			assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, src.RGBAAt(tt.at.X, tt.at.Y), "source must not be modified")
		})
	}
}

func TestAnnotate_caption(t *testing.T) {
	pg := &docscan.Page{Method: "bradley", Width: 200, Height: 160, Scale: 1}
	got := Annotate(whiteImage(200, 160), pg)
	var black int
	for y := 0; y < 40; y++ {
		for x := 0; x < 200; x++ {
			if got.RGBAAt(x, y).R < 0x80 {
				black++
			}
		}
	}
	assert.Positive(t, black, "caption must be drawn")
}

func TestAnnotate_offsetSource(t *testing.T) {
	src := whiteImage(100, 100).SubImage(image.Rect(20, 20, 60, 50))
	got := Annotate(src, nil)
	assert.Equal(t, image.Rect(0, 0, 40, 30), got.Bounds())
}

func TestRect(t *testing.T) {
	dst := whiteImage(20, 20)
	Rect(dst, image.Rect(5, 5, 30, 30), 2, Rejected)
	assert.Equal(t, Rejected, dst.RGBAAt(5, 10))
	assert.Equal(t, Rejected, dst.RGBAAt(18, 10), "clipped right side")
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, dst.RGBAAt(10, 10))
}

func TestCaption(t *testing.T) {
	pg := &docscan.Page{
		Method: "otsu", SourceWidth: 400, SourceHeight: 300, Width: 200, Height: 150, Scale: 0.5,
		Detected: image.Rect(1, 2, 3, 4), WhiteRatio: 0.5, Blank: true,
	}
	assert.Equal(t, "otsu 400x300->200x150 scale 0.50\nrejected (1,2)-(3,4)\nwhite 50.0% blank", Caption(pg))

	pg.Blank, pg.Document = false, true
	assert.Equal(t, "otsu 400x300->200x150 scale 0.50\nrejected (1,2)-(3,4)\nwhite 50.0% document", Caption(pg))
}

func TestFace(t *testing.T) {
	face, err := Face("")
	require.NoError(t, err)
	assert.NotNil(t, face)

	_, err = Face("comic-sans")
	assert.ErrorIs(t, err, ErrNotFound)

	fonts := Fonts()
	require.NotEmpty(t, fonts)
	assert.Equal(t, "4x4bold", fonts[0].Name)
}

func TestLoadFace(t *testing.T) {
	dir := t.TempDir()

	fnt := filepath.Join(dir, "my.fnt")
	require.NoError(t, os.WriteFile(fnt, make([]byte, 256*16), 0o644))
	face, err := LoadFace(fnt, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, face)

	bad := filepath.Join(dir, "bad.fnt")
	require.NoError(t, os.WriteFile(bad, make([]byte, 100), 0o644))
	_, err = LoadFace(bad, 0, 0)
	assert.ErrorIs(t, err, errUnsupported)

	_, err = LoadFace(filepath.Join(dir, "missing.ttf"), 12, 72)
	assert.Error(t, err)

	_, err = LoadFromFile("font.woff", 12, 72)
	assert.ErrorIs(t, err, errUnsupported)
}
