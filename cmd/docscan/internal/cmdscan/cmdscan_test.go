package cmdscan

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/overlay"
)

func writePNG(t *testing.T, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{80, 80, 80, 255}
			if x > 20 && x < w-20 && y > 20 && y < h-20 {
				c = color.RGBA{245, 245, 245, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeConfig(t *testing.T, name string) image.Config {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg
}

func TestScanner_outputName(t *testing.T) {
	tests := []struct {
		name   string
		outDir string
		file   string
		want   string
	}{
		{"next to source", "", filepath.Join("a", "b", "page.png"), filepath.Join("a", "b", "page_scan.jpg")},
		{"output dir", "out", filepath.Join("a", "page.tar.png"), filepath.Join("out", "page.tar_scan.jpg")},
		{"no extension", "", "page", "page_scan.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scanner{outDir: tt.outDir}
			assert.Equal(t, tt.want, s.outputName(tt.file, scanSuffix))
		})
	}
}

func TestScanner_scanFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.png")
	writePNG(t, src, 300, 200)
	face, err := overlay.Face("")
	require.NoError(t, err)

	s := &scanner{sc: docscan.New(), face: face, keep: true}
	res := s.scanFile(src)
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(dir, "page_scan.jpg"), res.Output)
	assert.Equal(t, filepath.Join(dir, "page_overlay.png"), res.Overlay)
	require.NotNil(t, res.Page)
	require.NotNil(t, res.img)

	got := decodeConfig(t, res.Output)
	assert.Equal(t, res.Page.Bounds.Dx(), got.Width)
	ov := decodeConfig(t, res.Overlay)
	assert.Equal(t, 300, ov.Width)
	assert.Equal(t, 200, ov.Height)
}

func TestScanner_scanFile_errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	s := &scanner{sc: docscan.New()}
	res := s.scanFile(bad)
	assert.True(t, docscan.IsDecodeError(res.err))
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Output)
	_, err := os.Stat(filepath.Join(dir, "bad_scan.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	res = s.scanFile(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, res.err, os.ErrNotExist)

	assert.Error(t, failures([]result{{err: res.err}, {}}))
	assert.NoError(t, failures([]result{{}, {}}))
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	sc := docscan.New()
	results := []result{
		{img: image.NewRGBA(image.Rect(0, 0, 100, 50))},
		{err: os.ErrNotExist},
		{img: image.NewRGBA(image.Rect(0, 0, 80, 40))},
	}
	name := filepath.Join(dir, "merged.jpg")
	require.NoError(t, merge(sc, name, results))

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50+mergeGap+40, cfg.Height)

	assert.Error(t, merge(sc, name, []result{{err: os.ErrNotExist}}))
}
