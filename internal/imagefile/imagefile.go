// Package imagefile loads key and panel images from disk.
//
// Raster formats are decoded through the image package registry (png, jpeg
// and gif from the standard library; bmp, tiff and webp from x/image). SVG
// files are rasterized with oksvg at the requested size.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path at its natural size. SVG files are
// rasterized at their declared viewbox size.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isSVG(path) {
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("svg %s has an empty viewbox", path)
		}
		return rasterize(icon, image.Rect(0, 0, w, h)), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// LoadFit loads the image at path and scales it to exactly fill rect.
func LoadFit(path string, rect image.Rectangle) (image.Image, error) {
	if isSVG(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		return rasterize(icon, rect), nil
	}
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Fit(img, rect), nil
}

// Fit returns img scaled onto a new RGBA image with bounds rect. Images that
// already have those bounds are returned as-is.
func Fit(img image.Image, rect image.Rectangle) image.Image {
	if img.Bounds() == rect {
		return img
	}
	dst := image.NewRGBA(rect)
	draw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
	return dst
}

// SVG renders SVG source text to an image of the given size, replacing
// currentColor with fill.
func SVG(src string, size int, fill color.Color) (image.Image, error) {
	r, g, b, _ := fill.RGBA()
	hex := fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
	src = strings.ReplaceAll(src, "currentColor", hex)

	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	return rasterize(icon, image.Rect(0, 0, size, size)), nil
}

func rasterize(icon *oksvg.SvgIcon, rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewRGBA(rect)
	draw.Draw(img, rect, &image.Uniform{color.Transparent}, image.Point{}, draw.Src)

	icon.SetTarget(float64(rect.Min.X), float64(rect.Min.Y), float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, rect)
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img
}

func isSVG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}
