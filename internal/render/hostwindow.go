package render

import (
	"image"
	"image/draw"
	"sync"

	"github.com/phinze/switchdeck/internal/event"
)

// Window is a host window or control whose visual content can be captured.
type Window interface {
	Capture() (image.Image, error)
}

// NotifyingWindow is a Window that announces every time it rendered.
type NotifyingWindow interface {
	Window
	OnRendered(fn func()) (cancel func())
}

// Mode selects how a host window is refreshed onto a surface.
type Mode uint8

const (
	// ModePolling captures the window on a timer.
	ModePolling Mode = iota
	// ModeEvents captures the window whenever it reports a render.
	ModeEvents
)

func (m Mode) String() string {
	if m == ModeEvents {
		return "events"
	}
	return "polling"
}

// HostWindowEvents pushes a host window whenever it reports a render.
type HostWindowEvents struct {
	lifecycle
	window NotifyingWindow

	// subMu guards the subscription against in-flight notifications, so that
	// once disarm returns no notification pushes anymore.
	subMu  sync.Mutex
	cancel func()
	target *Surface
	onErr  func(error)
}

// NewHostWindowEvents creates an event-driven host-window strategy.
func NewHostWindowEvents(w NotifyingWindow) *HostWindowEvents {
	e := &HostWindowEvents{window: w}
	e.drv = e
	return e
}

func (e *HostWindowEvents) arm(s *Surface, report func(error)) error {
	e.subMu.Lock()
	e.target = s
	e.onErr = report
	e.subMu.Unlock()

	cancel := e.window.OnRendered(e.rendered)

	e.subMu.Lock()
	e.cancel = cancel
	e.subMu.Unlock()
	return nil
}

func (e *HostWindowEvents) disarm() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.target = nil
}

func (e *HostWindowEvents) armed() bool {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	return e.cancel != nil
}

func (e *HostWindowEvents) render(s *Surface) error {
	return pushCapture(s, e.window)
}

func (e *HostWindowEvents) rendered() {
	e.subMu.Lock()
	if e.cancel == nil || e.target == nil {
		e.subMu.Unlock()
		return
	}
	err := e.render(e.target)
	report := e.onErr
	e.subMu.Unlock()

	if err != nil && report != nil {
		report(err)
	}
}

// Canvas is an in-process host window. Application code draws into it with
// Update, and every Update is announced as a render.
type Canvas struct {
	mu   sync.Mutex
	img  *image.RGBA
	feed event.Feed[struct{}]
}

// NewCanvas creates a transparent canvas with the given bounds.
func NewCanvas(bounds image.Rectangle) *Canvas {
	return &Canvas{img: image.NewRGBA(bounds)}
}

// Bounds returns the canvas size.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Update lets fn draw into the canvas, then notifies render subscribers.
func (c *Canvas) Update(fn func(dst draw.Image)) {
	c.mu.Lock()
	fn(c.img)
	c.mu.Unlock()

	c.feed.Emit(struct{}{})
}

// Capture returns a copy of the current canvas content.
func (c *Canvas) Capture() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out, nil
}

// OnRendered registers fn to run after every Update.
func (c *Canvas) OnRendered(fn func()) (cancel func()) {
	return c.feed.Subscribe(func(struct{}) { fn() })
}
