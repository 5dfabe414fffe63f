package bitmap

import (
	"errors"
	"image"
	"sort"
)

// BinarizeFunc turns the grayscale buffer into an opaque black and white
// image of the same size.
type BinarizeFunc func(g *Gray) *image.RGBA

// DefaultMethod is the binarization method used by the scanner.
const DefaultMethod = "bradley"

var ErrUnknownMethod = errors.New("unknown binarization method")

type method struct {
	fn   BinarizeFunc
	desc string
}

var methods = map[string]method{
	DefaultMethod:     {BradleyRow, "Bradley-Roth adaptive threshold, per-row integral (default)"},
	"bradley-sat":     {BradleySAT, "Bradley-Roth adaptive threshold, summed-area table"},
	"threshold":       {GlobalThreshold, "global threshold at 128"},
	"otsu":            {Otsu, "global Otsu threshold"},
	"floyd-steinberg": {DFloydSteinberg, "Floyd-Steinberg error diffusion"},
	"atkinson":        {DAtkinson, "Atkinson error diffusion"},
	"stucki":          {DStucki, "Stucki error diffusion"},
}

// Method returns a registered binarization function by name.  Empty name
// returns the default method.
func Method(name string) (BinarizeFunc, error) {
	if name == "" {
		name = DefaultMethod
	}
	m, ok := methods[name]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return opaque(m.fn), nil
}

// MethodDescription returns the human readable description of the method.
func MethodDescription(name string) string {
	return methods[name].desc
}

// RegisterMethod allows to register a new binarization method by name.
func RegisterMethod(name, desc string, fn BinarizeFunc) {
	if name == "" {
		panic("binarization method name cannot be empty")
	}
	if fn == nil {
		panic("binarization function cannot be nil")
	}
	if _, exists := methods[name]; exists {
		panic("binarization method already registered: " + name)
	}
	methods[name] = method{fn: fn, desc: desc}
}

// AllMethods returns a sorted list of all available method names.
func AllMethods() []string {
	keys := make([]string, 0, len(methods))
	for k := range methods {
		keys = append(keys, k)
	}
	sort.Strings(keys) // sort for consistent order
	return keys
}

// opaque wraps fn so that the transparency is always flattened.
func opaque(fn BinarizeFunc) BinarizeFunc {
	return func(g *Gray) *image.RGBA {
		img := fn(g)
		Opaque(img)
		return img
	}
}

// BradleyRow is Bradley-Roth thresholding over a per-row integral.
func BradleyRow(g *Gray) *image.RGBA {
	return Bradley(g, RowIntegral(g))
}

// BradleySAT is Bradley-Roth thresholding over a summed-area table.
func BradleySAT(g *Gray) *image.RGBA {
	return Bradley(g, SummedArea(g))
}

// GlobalThreshold binarizes at [DefaultThreshold].
func GlobalThreshold(g *Gray) *image.RGBA {
	return Threshold(g, DefaultThreshold)
}

// Otsu binarizes at the Otsu threshold, the pixels at or below the
// threshold are black.
func Otsu(g *Gray) *image.RGBA {
	t := OtsuThreshold(g)
	return binarizeBy(g, func(v uint8) bool { return v <= t })
}
