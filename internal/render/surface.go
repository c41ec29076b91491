// Package render binds content to the device's drawable surfaces.
//
// Each surface is driven by a Controller that owns at most one Strategy at a
// time. Strategies produce pixels: once (StaticImage), on a timer
// (BitmapSource, polling HostWindow) or whenever a host window reports that
// it rendered (event-driven HostWindow).
package render

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
)

var (
	// ErrSurfaceDisposed is returned by pushes to a surface that was torn
	// down. Pushes racing with disposal from timers or host callbacks are
	// logged and dropped.
	ErrSurfaceDisposed = errors.New("surface disposed")

	// ErrSizeMismatch is returned when an image does not match the surface.
	ErrSizeMismatch = errors.New("image size does not match surface")
)

// Surface is a physical drawable region: the panel or one key.
type Surface struct {
	target device.Target
	bounds image.Rectangle
	dev    device.Device

	mu       sync.Mutex
	disposed bool
}

// NewSurface creates a surface for target with fixed pixel bounds.
func NewSurface(dev device.Device, target device.Target, bounds image.Rectangle) *Surface {
	return &Surface{target: target, bounds: bounds, dev: dev}
}

// Target returns the device target this surface draws into.
func (s *Surface) Target() device.Target {
	return s.target
}

// Bounds returns the pixel bounds of the surface.
func (s *Surface) Bounds() image.Rectangle {
	return s.bounds
}

// Disposed reports whether the surface was torn down.
func (s *Surface) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Push writes img to the device. The image must have the surface's width and
// height. Device failures are returned as *device.WriteError and are not
// retried.
func (s *Surface) Push(img image.Image) error {
	if img == nil {
		return fmt.Errorf("render: %s: nil image: %w", s.target, ErrSizeMismatch)
	}
	b := img.Bounds()
	if b.Dx() != s.bounds.Dx() || b.Dy() != s.bounds.Dy() {
		return fmt.Errorf("render: %s: image is %dx%d, surface is %dx%d: %w",
			s.target, b.Dx(), b.Dy(), s.bounds.Dx(), s.bounds.Dy(), ErrSizeMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return fmt.Errorf("render: %s: %w", s.target, ErrSurfaceDisposed)
	}
	if err := s.dev.SetSurfaceImage(s.target, img); err != nil {
		return device.NewWriteError("SetSurfaceImage", err)
	}
	return nil
}

// Blank pushes an all-black image.
func (s *Surface) Blank() error {
	return s.Push(image.NewRGBA(s.bounds))
}

// dispose marks the surface torn down. Waits for an in-flight push.
func (s *Surface) dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}
