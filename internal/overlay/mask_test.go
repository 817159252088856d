package overlay

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img
}

func TestCircularPNG(t *testing.T) {
	b, err := circularPNG(solid(red), 160)
	require.NoError(t, err)

	img := decodePNG(t, b)
	assert.Equal(t, image.Rect(0, 0, 160, 160), img.Bounds())

	for _, p := range []image.Point{{0, 0}, {159, 0}, {0, 159}, {159, 159}} {
		_, _, _, a := img.At(p.X, p.Y).RGBA()
		assert.Zero(t, a, "corner %v is transparent", p)
	}

	r, g, bl, a := img.At(80, 80).RGBA()
	assert.EqualValues(t, 0xffff, a)
	assert.EqualValues(t, 0xffff, r)
	assert.Zero(t, g)
	assert.Zero(t, bl)
}

func TestCircularPNGNonSquare(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 1))
	b, err := circularPNG(src, 160)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 160, 160), decodePNG(t, b).Bounds())
}
