// Package devicetest provides an in-memory device.Device for tests.
package devicetest

import (
	"fmt"
	"image"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
)

// Default sizes of the fake device.
var (
	KeySize   = image.Rect(0, 0, 72, 72)
	PanelSize = image.Rect(0, 0, 800, 480)
)

// Call is one recorded display operation.
type Call struct {
	Op     string
	Target device.Target
	Key    device.KeyID
	State  device.ImageState
	Path   string
	Image  image.Image
}

// Fake records display operations and lets tests inject input and failures.
type Fake struct {
	mu sync.Mutex

	caps       device.Capabilities
	open       bool
	brightness byte
	calls      []Call
	surfaces   map[device.Target]image.Image
	keyImages  map[device.KeyID]map[device.ImageState]string

	surfaceErr error
	keyErr     error
	capsErr    error
	gestureErr error

	keyHandlers     []device.KeyHandler
	gestureHandlers []device.GestureHandler
	listenDone      chan struct{}
}

// New returns an open fake with ten keys and a panel.
func New() *Fake {
	return &Fake{
		caps: device.Capabilities{
			Model:     "Fake Deck",
			KeyCount:  device.KeyCount,
			KeySize:   KeySize,
			PanelSize: PanelSize,
			HasPanel:  true,
		},
		open:       true,
		surfaces:   make(map[device.Target]image.Image),
		keyImages:  make(map[device.KeyID]map[device.ImageState]string),
		listenDone: make(chan struct{}),
	}
}

// SetCapabilities replaces the reported capabilities.
func (f *Fake) SetCapabilities(c device.Capabilities) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caps = c
}

// FailSurfaceImages makes SetSurfaceImage return err until cleared with nil.
func (f *Fake) FailSurfaceImages(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surfaceErr = err
}

// FailKeyImages makes SetKeyImage return err until cleared with nil.
func (f *Fake) FailKeyImages(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyErr = err
}

// FailCapabilities makes Capabilities return err.
func (f *Fake) FailCapabilities(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capsErr = err
}

// FailGestureHandlers makes AddGestureHandler return err.
func (f *Fake) FailGestureHandlers(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gestureErr = err
}

func (f *Fake) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		return fmt.Errorf("fake: device is already open")
	}
	f.open = true
	f.listenDone = make(chan struct{})
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return fmt.Errorf("fake: %w", device.ErrNotOpen)
	}
	f.open = false
	close(f.listenDone)
	return nil
}

func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Fake) GetModelName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps.Model
}

func (f *Fake) Capabilities() (device.Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capsErr != nil {
		return device.Capabilities{}, f.capsErr
	}
	return f.caps, nil
}

func (f *Fake) SetBrightness(perc byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = perc
	return nil
}

func (f *Fake) SetSurfaceImage(target device.Target, img image.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return device.ErrNotOpen
	}
	if f.surfaceErr != nil {
		return f.surfaceErr
	}
	if _, err := f.caps.SurfaceSize(target); err != nil {
		return err
	}
	f.calls = append(f.calls, Call{Op: "SetSurfaceImage", Target: target, Image: img})
	f.surfaces[target] = img
	return nil
}

func (f *Fake) SetKeyImage(key device.KeyID, state device.ImageState, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return device.ErrNotOpen
	}
	if f.keyErr != nil {
		return f.keyErr
	}
	if !key.Valid() || int(key) > f.caps.KeyCount {
		return device.ErrInvalidTarget
	}
	f.calls = append(f.calls, Call{Op: "SetKeyImage", Key: key, State: state, Path: path})
	if f.keyImages[key] == nil {
		f.keyImages[key] = make(map[device.ImageState]string)
	}
	f.keyImages[key][state] = path
	return nil
}

func (f *Fake) AddKeyHandler(fn device.KeyHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyHandlers = append(f.keyHandlers, fn)
	return nil
}

func (f *Fake) AddGestureHandler(fn device.GestureHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gestureErr != nil {
		return f.gestureErr
	}
	f.gestureHandlers = append(f.gestureHandlers, fn)
	return nil
}

// Listen blocks until the fake is closed.
func (f *Fake) Listen(errCh chan error) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return device.ErrNotOpen
	}
	done := f.listenDone
	f.mu.Unlock()

	<-done
	return nil
}

// SendKey delivers a raw key state to every registered key handler.
func (f *Fake) SendKey(key device.KeyID, state device.KeyState) error {
	f.mu.Lock()
	handlers := append([]device.KeyHandler(nil), f.keyHandlers...)
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, key, state); err != nil {
			return err
		}
	}
	return nil
}

// SendGesture delivers a gesture to every registered gesture handler.
func (f *Fake) SendGesture(g device.Gesture) error {
	f.mu.Lock()
	handlers := append([]device.GestureHandler(nil), f.gestureHandlers...)
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, g); err != nil {
			return err
		}
	}
	return nil
}

// Surface returns the last image pushed to target.
func (f *Fake) Surface(target device.Target) image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surfaces[target]
}

// KeyImage returns the path last set for a key face.
func (f *Fake) KeyImage(key device.KeyID, state device.ImageState) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.keyImages[key][state]
	return p, ok
}

// Calls returns a copy of the recorded operations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Pushes counts SetSurfaceImage calls for target.
func (f *Fake) Pushes(target device.Target) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == "SetSurfaceImage" && c.Target == target {
			n++
		}
	}
	return n
}

// Brightness returns the last brightness set.
func (f *Fake) Brightness() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness
}

// HandlerCounts returns how many key and gesture handlers are registered.
func (f *Fake) HandlerCounts() (keys, gestures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keyHandlers), len(f.gestureHandlers)
}

// CodedError is a backend error carrying a native code.
type CodedError struct {
	Code device.Code
}

func (e CodedError) Error() string {
	return fmt.Sprintf("fake native failure %d", int(e.Code))
}

func (e CodedError) NativeCode() device.Code {
	return e.Code
}
