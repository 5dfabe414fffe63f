package bitmap

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethod(t *testing.T) {
	g := testGray(64, 48, func(x, y int) uint8 { return uint8((x*13 + y*7) % 256) })
	for _, name := range AllMethods() {
		t.Run(name, func(t *testing.T) {
			fn, err := Method(name)
			require.NoError(t, err)
			got := fn(g)
			assert.Equal(t, image.Rect(0, 0, 64, 48), got.Bounds())
			assertBinary(t, got)
			assert.NotEmpty(t, MethodDescription(name))
		})
	}
}

func TestMethod_default(t *testing.T) {
	g := testGray(16, 16, func(x, y int) uint8 {
		if y < 8 {
			return 0
		}
		return 255
	})
	fn, err := Method("")
	require.NoError(t, err)
	assert.Equal(t, BradleyRow(g), fn(g))
}

func TestMethod_unknown(t *testing.T) {
	_, err := Method("sepia")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegisterMethod(t *testing.T) {
	RegisterMethod("test-white", "all white", func(g *Gray) *image.RGBA {
		return Threshold(g, 1)
	})
	t.Cleanup(func() { delete(methods, "test-white") })

	assert.Contains(t, AllMethods(), "test-white")
	assert.Panics(t, func() { RegisterMethod("test-white", "", GlobalThreshold) })
	assert.Panics(t, func() { RegisterMethod("", "", GlobalThreshold) })
	assert.Panics(t, func() { RegisterMethod("nil", "", nil) })
}

func TestEnhance(t *testing.T) {
	img := testColorImage(image.Rect(0, 0, 4, 4), Black)
	assert.Same(t, img, Enhance(img, 0, 0))

	got := Enhance(img, 0, 50)
	assert.Equal(t, image.Rect(0, 0, 4, 4), got.Bounds())
	assert.Greater(t, got.RGBAAt(0, 0).R, uint8(100))
}
