package render

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/phinze/switchdeck/internal/imagefile"
)

// DefaultInterval is the refresh period of polling strategies, roughly 24
// frames per second without saturating the device link.
const DefaultInterval = 42 * time.Millisecond

// ticker runs a tick function periodically on its own goroutine.
type ticker struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func (t *ticker) running() bool {
	return t.cancel != nil
}

// start renders immediately, then once per interval, until stop.
func (t *ticker) start(tick func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel, t.done = cancel, done

	go func() {
		defer close(done)

		tk := time.NewTicker(t.interval)
		defer tk.Stop()

		tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if ctx.Err() != nil {
					return
				}
				tick()
			}
		}
	}()
}

// stop cancels the loop and waits for an in-flight tick, so no tick runs
// after it returns.
func (t *ticker) stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}

// BitmapSupplier provides fresh frames on demand.
type BitmapSupplier interface {
	Bitmap() (image.Image, error)
}

// BitmapFunc adapts a function to BitmapSupplier.
type BitmapFunc func() (image.Image, error)

// Bitmap calls f.
func (f BitmapFunc) Bitmap() (image.Image, error) {
	return f()
}

// BitmapSource pulls a bitmap from a supplier on every tick and pushes it.
// A nil bitmap means nothing changed and is skipped.
type BitmapSource struct {
	lifecycle
	supplier BitmapSupplier
	tk       ticker
}

// NewBitmapSource creates a polling strategy. A non-positive interval
// selects DefaultInterval.
func NewBitmapSource(supplier BitmapSupplier, interval time.Duration) *BitmapSource {
	if interval <= 0 {
		interval = DefaultInterval
	}
	b := &BitmapSource{supplier: supplier, tk: ticker{interval: interval}}
	b.drv = b
	return b
}

// Interval returns the refresh period.
func (b *BitmapSource) Interval() time.Duration {
	return b.tk.interval
}

func (b *BitmapSource) arm(s *Surface, report func(error)) error {
	b.tk.start(func() { report(b.render(s)) })
	return nil
}

func (b *BitmapSource) disarm() {
	b.tk.stop()
}

func (b *BitmapSource) armed() bool {
	return b.tk.running()
}

func (b *BitmapSource) render(s *Surface) error {
	img, err := b.supplier.Bitmap()
	if err != nil {
		return fmt.Errorf("render: bitmap source: %w", err)
	}
	if img == nil {
		return nil
	}
	return s.Push(img)
}

// HostWindowPoller captures a host window on a timer and pushes the
// capture, scaled to the surface.
type HostWindowPoller struct {
	lifecycle
	window Window
	tk     ticker
}

// NewHostWindowPoller creates a polling host-window strategy. A
// non-positive interval selects DefaultInterval.
func NewHostWindowPoller(w Window, interval time.Duration) *HostWindowPoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &HostWindowPoller{window: w, tk: ticker{interval: interval}}
	p.drv = p
	return p
}

// Interval returns the refresh period.
func (p *HostWindowPoller) Interval() time.Duration {
	return p.tk.interval
}

func (p *HostWindowPoller) arm(s *Surface, report func(error)) error {
	p.tk.start(func() { report(p.render(s)) })
	return nil
}

func (p *HostWindowPoller) disarm() {
	p.tk.stop()
}

func (p *HostWindowPoller) armed() bool {
	return p.tk.running()
}

func (p *HostWindowPoller) render(s *Surface) error {
	return pushCapture(s, p.window)
}

func pushCapture(s *Surface, w Window) error {
	img, err := w.Capture()
	if err != nil {
		return fmt.Errorf("render: capture window: %w", err)
	}
	if img == nil {
		return nil
	}
	return s.Push(imagefile.Fit(img, s.Bounds()))
}
