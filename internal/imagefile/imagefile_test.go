package imagefile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<rect x="0" y="0" width="24" height="24" fill="currentColor"/>
</svg>`

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 10, 10, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "key.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestLoadFitScalesToRect(t *testing.T) {
	path := writePNG(t, 30, 20)
	rect := image.Rect(0, 0, 72, 72)

	img, err := LoadFit(path, rect)
	if err != nil {
		t.Fatalf("LoadFit: %v", err)
	}
	if img.Bounds() != rect {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), rect)
	}
	r, _, _, a := img.At(36, 36).RGBA()
	if r>>8 < 150 || a>>8 != 255 {
		t.Fatalf("center pixel not carried over: r=%d a=%d", r>>8, a>>8)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFitKeepsMatchingImage(t *testing.T) {
	rect := image.Rect(0, 0, 10, 10)
	src := image.NewRGBA(rect)
	if got := Fit(src, rect); got != image.Image(src) {
		t.Fatalf("Fit copied an image that already had the right bounds")
	}
}

func TestSVGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.svg")
	if err := os.WriteFile(path, []byte(testSVG), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 24, 24) {
		t.Fatalf("natural bounds = %v", img.Bounds())
	}

	fit, err := LoadFit(path, image.Rect(0, 0, 48, 48))
	if err != nil {
		t.Fatalf("LoadFit: %v", err)
	}
	if fit.Bounds().Dx() != 48 {
		t.Fatalf("fit width = %d", fit.Bounds().Dx())
	}
}

func TestSVGReplacesCurrentColor(t *testing.T) {
	img, err := SVG(testSVG, 16, color.RGBA{0, 0, 255, 255})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	r, _, b, _ := img.At(8, 8).RGBA()
	if b>>8 < 200 || r>>8 > 50 {
		t.Fatalf("expected blue fill, got r=%d b=%d", r>>8, b>>8)
	}
}
