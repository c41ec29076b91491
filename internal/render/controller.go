package render

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/phinze/switchdeck/internal/activation"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/event"
	"github.com/phinze/switchdeck/internal/imagefile"
)

// Controller owns the strategy of one surface. At most one strategy is
// attached at a time, and attach/clear/close are serialized.
type Controller struct {
	surface *Surface

	mu          sync.Mutex
	strategy    Strategy
	disposed    bool
	unsubscribe func()

	errs event.Feed[error]
}

// NewController creates the controller of s and subscribes it to act. act
// may be nil for surfaces that ignore application activation.
func NewController(s *Surface, act *activation.Coordinator) *Controller {
	c := &Controller{surface: s}
	if act != nil {
		c.unsubscribe = act.Subscribe(c.handleActivation)
	}
	return c
}

// Surface returns the controlled surface.
func (c *Controller) Surface() *Surface {
	return c.surface
}

// Strategy returns the attached strategy, or nil.
func (c *Controller) Strategy() Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy
}

// OnError registers fn for failures of timer ticks and host notifications,
// which have no caller to return to. fn must not call back into the
// controller synchronously.
func (c *Controller) OnError(fn func(error)) (cancel func()) {
	return c.errs.Subscribe(fn)
}

// Attach stops and closes the current strategy, then binds and starts st.
// If st fails to start it is closed and the surface is left without a
// strategy.
func (c *Controller) Attach(st Strategy) error {
	if st == nil {
		return fmt.Errorf("render: attach nil strategy: %w", device.ErrInvalidState)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return fmt.Errorf("render: attach to %s: %w", c.surface.Target(), ErrSurfaceDisposed)
	}
	if st == c.strategy {
		return st.Start()
	}

	if err := st.core().bind(c.surface, c.reportTickError); err != nil {
		return err
	}
	c.detachLocked()
	c.strategy = st
	if err := st.Start(); err != nil {
		st.Close()
		c.strategy = nil
		return err
	}
	return nil
}

// SetImage shows the image at path, scaled to the surface.
func (c *Controller) SetImage(path string) error {
	img, err := imagefile.LoadFit(path, c.surface.Bounds())
	if err != nil {
		return fmt.Errorf("render: set image: %w", err)
	}
	return c.Attach(NewStaticImage(img))
}

// SetBitmapSource refreshes the surface from supplier every interval.
func (c *Controller) SetBitmapSource(supplier BitmapSupplier, interval time.Duration) error {
	if supplier == nil {
		return fmt.Errorf("render: nil bitmap supplier: %w", device.ErrInvalidState)
	}
	return c.Attach(NewBitmapSource(supplier, interval))
}

// SetHostWindow mirrors a host window onto the surface. ModeEvents requires
// a NotifyingWindow; interval only applies to ModePolling.
func (c *Controller) SetHostWindow(w Window, mode Mode, interval time.Duration) error {
	if w == nil {
		return fmt.Errorf("render: nil host window: %w", device.ErrInvalidState)
	}
	switch mode {
	case ModePolling:
		return c.Attach(NewHostWindowPoller(w, interval))
	case ModeEvents:
		nw, ok := w.(NotifyingWindow)
		if !ok {
			return fmt.Errorf("render: window does not report renders: %w", device.ErrInvalidState)
		}
		return c.Attach(NewHostWindowEvents(nw))
	default:
		return fmt.Errorf("render: unknown host window mode %d: %w", mode, device.ErrInvalidState)
	}
}

// Clear removes the strategy and blanks the surface. After Close it does
// nothing, since the device handle may already be gone.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	c.detachLocked()
	return c.surface.Blank()
}

// Close detaches the strategy without touching the device and disposes the
// surface. Closing twice is a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	c.disposed = true

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.detachLocked()
	c.surface.dispose()
	return nil
}

func (c *Controller) detachLocked() {
	old := c.strategy
	if old == nil {
		return
	}
	c.strategy = nil
	old.Stop()
	old.Close()
}

// handleActivation suspends an active strategy on Deactivated and resumes
// it on Activated.
func (c *Controller) handleActivation(state activation.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.strategy == nil {
		return
	}
	lc := c.strategy.core()
	switch state {
	case activation.Deactivated:
		lc.suspend()
	case activation.Activated:
		if err := lc.resume(); err != nil {
			log.Printf("Resume %s failed: %v", c.surface.Target(), err)
			c.errs.Emit(err)
		}
	}
}

// reportTickError logs asynchronous failures. A push racing with disposal
// is expected during teardown and only logged.
func (c *Controller) reportTickError(err error) {
	if errors.Is(err, ErrSurfaceDisposed) {
		log.Printf("Render %s: surface disposed, frame dropped", c.surface.Target())
		return
	}
	log.Printf("Render %s: %v", c.surface.Target(), err)
	c.errs.Emit(err)
}
