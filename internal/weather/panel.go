// Package weather renders current conditions from OpenWeatherMap onto the
// deck panel.
package weather

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/phinze/switchdeck/internal/config"
	"github.com/phinze/switchdeck/internal/imagefile"
)

// PollInterval is how often the API is queried.
const PollInterval = 10 * time.Minute

// Base layout, scaled to fit the panel.
const (
	baseWidth  = 400
	baseHeight = 100
)

// Panel polls the weather and renders it as a panel bitmap. It implements
// render.BitmapSupplier.
type Panel struct {
	client *Client
	size   image.Rectangle
	scale  float64

	tempFace      font.Face
	conditionFace font.Face

	mu       sync.Mutex
	report   Report
	version  int
	rendered int
	frame    *image.RGBA
}

// ClientFromConfig builds an API client from the app-level config.
func ClientFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no configuration provided")
	}
	if cfg.Weather.APIKey == "" {
		return nil, fmt.Errorf("OpenWeatherMap API key not configured")
	}
	if cfg.Weather.Lat == "" || cfg.Weather.Lon == "" {
		return nil, fmt.Errorf("weather lat/lon not configured")
	}
	lat, err := strconv.ParseFloat(cfg.Weather.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid weather lat: %w", err)
	}
	lon, err := strconv.ParseFloat(cfg.Weather.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid weather lon: %w", err)
	}
	return &Client{APIKey: cfg.Weather.APIKey, Lat: lat, Lon: lon}, nil
}

// NewPanel creates a panel renderer of the given size.
func NewPanel(client *Client, size image.Rectangle) (*Panel, error) {
	if size.Empty() {
		return nil, fmt.Errorf("weather: empty panel size")
	}
	p := &Panel{
		client: client,
		size:   size,
		scale:  min(float64(size.Dx())/baseWidth, float64(size.Dy())/baseHeight),
	}

	var err error
	if p.tempFace, err = newFace(gobold.TTF, 32*p.scale); err != nil {
		return nil, fmt.Errorf("create temp face: %w", err)
	}
	if p.conditionFace, err = newFace(goregular.TTF, 16*p.scale); err != nil {
		return nil, fmt.Errorf("create condition face: %w", err)
	}
	return p, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Run fetches immediately and then every PollInterval until ctx is done.
func (p *Panel) Run(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

func (p *Panel) fetch(ctx context.Context) {
	r, err := p.client.Fetch(ctx)
	if err != nil {
		log.Printf("Weather fetch error: %v", err)
		return
	}
	p.Update(r)

	precipInfo := ""
	if r.Precip.Description != "" {
		precipInfo = " | " + r.Precip.Description
	}
	log.Printf("Weather updated: %.0f°F (feels %.0f°F) %s (H:%.0f° L:%.0f°)%s",
		r.Current.Temp, r.Current.FeelsLike, r.Current.Description, r.Daily.TempMax, r.Daily.TempMin, precipInfo)
}

// Update replaces the report shown on the panel.
func (p *Panel) Update(r Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report = r
	p.version++
}

// Bitmap returns the current panel frame. The frame is only redrawn after
// the report changed.
func (p *Panel) Bitmap() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frame == nil || p.rendered != p.version {
		p.frame = p.render(p.report)
		p.rendered = p.version
	}
	return p.frame, nil
}

// render draws a report. Coordinates are in the 400x100 base layout,
// scaled and centered on the panel.
func (p *Panel) render(r Report) *image.RGBA {
	img := image.NewRGBA(p.size)
	draw.Draw(img, img.Bounds(), &image.Uniform{colorBackground}, image.Point{}, draw.Src)

	origin := image.Pt(
		p.size.Min.X+(p.size.Dx()-p.px(baseWidth))/2,
		p.size.Min.Y+(p.size.Dy()-p.px(baseHeight))/2,
	)
	at := func(x, y int) image.Point {
		return origin.Add(image.Pt(p.px(x), p.px(y)))
	}

	if r.Fetched.IsZero() {
		p.drawText(img, "Loading...", at(10, 56), p.conditionFace, colorGray)
		return img
	}

	// Icon: 5-75, left text from 90, right text from 220.
	src, iconColor := weatherIcon(r.Current.Icon)
	iconSize := p.px(70)
	if icon, err := imagefile.SVG(src, iconSize, iconColor); err == nil {
		pos := at(5, 15)
		draw.Draw(img, image.Rect(pos.X, pos.Y, pos.X+iconSize, pos.Y+iconSize), icon, image.Point{}, draw.Over)
	} else {
		log.Printf("Weather icon: %v", err)
	}

	p.drawText(img, fmt.Sprintf("%.0f°", r.Current.Temp), at(90, 38), p.tempFace, colorWhite)
	p.drawText(img, fmt.Sprintf("Feels %.0f°", r.Current.FeelsLike), at(90, 60), p.conditionFace, colorGray)

	cond := r.Current.Description
	if cond == "" {
		cond = r.Current.Condition
	}
	if len(cond) > 0 {
		cond = strings.ToUpper(cond[:1]) + cond[1:]
	}
	p.drawText(img, cond, at(90, 82), p.conditionFace, colorGray)

	if r.Daily.TempMax != 0 || r.Daily.TempMin != 0 {
		p.drawText(img, fmt.Sprintf("H:%.0f° L:%.0f°", r.Daily.TempMax, r.Daily.TempMin), at(220, 38), p.conditionFace, colorWhite)
	}
	if r.Precip.Description != "" {
		c := colorRain
		if r.Precip.Type == "Snow" || r.Precip.Type == "Sleet" {
			c = colorSnow
		}
		p.drawText(img, r.Precip.Description, at(220, 60), p.conditionFace, c)
	}
	return img
}

func (p *Panel) px(v int) int {
	return int(float64(v) * p.scale)
}

func (p *Panel) drawText(img *image.RGBA, text string, pt image.Point, face font.Face, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(pt.X), Y: fixed.I(pt.Y)},
	}
	d.DrawString(text)
}
