package app

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadTexture_PNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	img, err := LoadTexture(writePNG(t, src), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(2, 1))
	assert.Len(t, img.Pix, 3*2*4)
}

func TestLoadTexture_Errors(t *testing.T) {
	_, err := LoadTexture(filepath.Join(t.TempDir(), "nope.png"), 0)
	assert.ErrorContains(t, err, "failed to open texture")

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadTexture(bad, 0)
	assert.ErrorContains(t, err, "failed to decode texture")
}

func TestToRGBA_Downscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	img := ToRGBA(src, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 25), img.Bounds())

	tall := ToRGBA(image.NewGray(image.Rect(0, 0, 10, 50)), 20)
	assert.Equal(t, image.Rect(0, 0, 4, 20), tall.Bounds())
}

func TestToRGBA_RebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 9, 7))
	src.SetRGBA(5, 5, color.RGBA{G: 200, A: 255})
	img := ToRGBA(src, 0)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
	assert.Equal(t, uint8(200), img.RGBAAt(0, 0).G)

	same := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, same, ToRGBA(same, 0))
}

func TestCrateTexture(t *testing.T) {
	img := CrateTexture()
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
	assert.Equal(t, uint8(255), img.RGBAAt(128, 40).A)
	assert.NotEqual(t, img.RGBAAt(0, 0), img.RGBAAt(60, 40), "frame differs from planks")
}
