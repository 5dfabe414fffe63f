package overlay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rusq/fontpic"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// DefaultFont is the name of the embedded font used for captions.
const DefaultFont = "keyrus16"

var embeddedFonts = map[string]font.Face{
	"keyrus16":  fontpic.Face8x16,
	"keyrus14":  fontpic.Face8x14,
	"keyrus8":   fontpic.Face8x8,
	"4x5":       fontpic.Face4x5,
	"6x5":       fontpic.Face6x5,
	"6x5bold":   fontpic.Face6x5Bold,
	"robotron":  fontpic.FaceRobotron,
	"4x4bold":   fontpic.Face4x4Bold,
	"6x5italic": fontpic.Face6x5Italic,
}

var (
	ErrNotFound    = errors.New("font not found")
	errUnsupported = errors.New("unsupported font type")
)

// FontInfo describes an embedded font.
type FontInfo struct {
	Name   string
	Width  int // advance of "W"
	Height int
}

// Fonts returns the embedded fonts sorted by name.
func Fonts() []FontInfo {
	var ff []FontInfo
	for name, face := range embeddedFonts {
		if face == nil {
			continue
		}
		ff = append(ff, FontInfo{
			Name:   name,
			Width:  font.MeasureString(face, "W").Ceil(),
			Height: face.Metrics().Height.Ceil(),
		})
	}
	slices.SortFunc(ff, func(a, b FontInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ff
}

// Face returns the embedded font face by name.  Empty name returns the
// default font.
func Face(name string) (font.Face, error) {
	if name == "" {
		name = DefaultFont
	}
	face, ok := embeddedFonts[name]
	if !ok || face == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return face, nil
}

// LoadFace returns the embedded font by name, or, if the name looks like a
// font file, loads it from disk.
func LoadFace(name string, size, dpi float64) (font.Face, error) {
	if _, ok := loadFuncs[strings.ToLower(filepath.Ext(name))]; ok {
		return LoadFromFile(name, size, dpi)
	}
	return Face(name)
}

// LoadFromFile loads a raw 8-pixel wide bitmap font (.fnt, .bin) or an
// OpenType font (.ttf, .otf).
func LoadFromFile(filename string, size float64, dpi float64) (font.Face, error) {
	ext := filepath.Ext(strings.ToLower(filename))
	loader, ok := loadFuncs[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnsupported, ext)
	}
	return loader(filename, size, dpi)
}

type fontLoadFunc func(filename string, size float64, dpi float64) (font.Face, error)

var loadFuncs = map[string]fontLoadFunc{
	".bin": loadFnt,
	".fnt": loadFnt,
	".ttf": loadTTF,
	".otf": loadTTF,
}

// loadFnt loads a raw font file of 256 characters, 8 pixels wide.  The height
// is derived from the file size.
func loadFnt(filename string, _ float64, _ float64) (font.Face, error) {
	const (
		width                = 8
		minHeight, maxHeight = 2, 32
	)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if len(data)%256 != 0 {
		return nil, fmt.Errorf("%w: %s: size is not a multiple of 256", errUnsupported, filename)
	}
	height := len(data) / 256
	if height <= minHeight || maxHeight < height {
		return nil, fmt.Errorf("%w: %s: character height %d", errUnsupported, filename, height)
	}
	return fontpic.FntToFace(data, width, height), nil
}

const maxTTFsize = 10 * 1048576 // 10 MB

func loadTTF(filename string, size float64, dpi float64) (font.Face, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if maxTTFsize < fi.Size() {
		return nil, errors.New("font file is too large")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 12
	}
	if dpi <= 0 {
		dpi = 72
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
}
