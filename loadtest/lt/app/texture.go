package app

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const (
	// MaxTextureSize bounds the longer edge of an uploaded texture.
	MaxTextureSize = 2048
	crateSize      = 256
)

// LoadTexture decodes a png, jpeg, bmp or webp file into tightly packed
// RGBA. Images larger than maxSize on either edge are scaled down
// preserving aspect; maxSize <= 0 means MaxTextureSize.
func LoadTexture(path string, maxSize int) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}
	return ToRGBA(img, maxSize), nil
}

// ToRGBA converts img to an *image.RGBA anchored at the origin.
func ToRGBA(img image.Image, maxSize int) *image.RGBA {
	if maxSize <= 0 {
		maxSize = MaxTextureSize
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxSize || h > maxSize {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		return dst
	}

	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// CrateTexture draws the fallback used when no texture file is configured:
// wooden planks inside a dark frame with a diagonal brace and a stencil.
func CrateTexture() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, crateSize, crateSize))
	wood := color.RGBA{R: 156, G: 110, B: 62, A: 255}
	grain := color.RGBA{R: 138, G: 95, B: 52, A: 255}
	frame := color.RGBA{R: 92, G: 60, B: 30, A: 255}

	xdraw.Draw(img, img.Bounds(), image.NewUniform(wood), image.Point{}, xdraw.Src)

	const plank = crateSize / 8
	for y := plank; y < crateSize; y += plank {
		fillRect(img, image.Rect(0, y-1, crateSize, y+1), grain)
	}

	const border = crateSize / 12
	fillRect(img, image.Rect(0, 0, crateSize, border), frame)
	fillRect(img, image.Rect(0, crateSize-border, crateSize, crateSize), frame)
	fillRect(img, image.Rect(0, 0, border, crateSize), frame)
	fillRect(img, image.Rect(crateSize-border, 0, crateSize, crateSize), frame)

	for i := border; i < crateSize-border; i++ {
		fillRect(img, image.Rect(i-border/2, i-border/2, i+border/2, i+border/2), frame)
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 40, G: 26, B: 12, A: 255}),
		Face: basicfont.Face7x13,
	}
	label := "LOAD TEST"
	x := (crateSize - d.MeasureString(label).Round()) / 2
	d.Dot = fixed.P(x, crateSize-border-8)
	d.DrawString(label)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	xdraw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, xdraw.Src)
}
