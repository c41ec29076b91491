// Package emulator provides a GUI deck emulator: ten keys and an 800x480
// touch panel in an Ebitengine window.
package emulator

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
)

// Native sizes of the emulated hardware.
const (
	keySize     = 72
	panelWidth  = 800
	panelHeight = 480
)

// FocusHandler receives window focus changes.
type FocusHandler func(focused bool)

// Emulator implements the device.Device interface using Ebitengine for GUI rendering.
type Emulator struct {
	mu sync.RWMutex

	// State
	open       bool
	brightness byte
	faces      *device.KeyFaces
	keyImages  [device.KeyCount]*image.RGBA
	panelImage *image.RGBA

	// Handlers
	keyHandlers     []device.KeyHandler
	gestureHandlers []device.GestureHandler
	focusHandlers   []FocusHandler

	// Input events are queued by the GUI loop and delivered in order by Listen.
	events  chan func() error
	stopCh  chan struct{}
	guiDone chan struct{}

	game *game
}

// New creates a new emulator instance.
func New() *Emulator {
	e := &Emulator{
		brightness: 80,
		faces:      device.NewKeyFaces(image.Rect(0, 0, keySize, keySize)),
		panelImage: image.NewRGBA(image.Rect(0, 0, panelWidth, panelHeight)),
		events:     make(chan func() error, 64),
		stopCh:     make(chan struct{}),
		guiDone:    make(chan struct{}),
	}
	for i := range e.keyImages {
		e.keyImages[i] = image.NewRGBA(image.Rect(0, 0, keySize, keySize))
	}
	return e
}

// Open initializes the emulator.
func (e *Emulator) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.open {
		return fmt.Errorf("emulator: device is already open")
	}
	e.open = true
	e.stopCh = make(chan struct{})
	return nil
}

// Close shuts down the emulator.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return fmt.Errorf("emulator: %w", device.ErrNotOpen)
	}
	e.open = false
	close(e.stopCh)
	return nil
}

// IsOpen returns whether the emulator is open.
func (e *Emulator) IsOpen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.open
}

// GetModelName returns the emulated model name.
func (e *Emulator) GetModelName() string {
	return "Switchdeck (Emulator)"
}

// Capabilities reports ten keys and the panel.
func (e *Emulator) Capabilities() (device.Capabilities, error) {
	return device.Capabilities{
		Model:     e.GetModelName(),
		KeyCount:  device.KeyCount,
		KeySize:   image.Rect(0, 0, keySize, keySize),
		PanelSize: image.Rect(0, 0, panelWidth, panelHeight),
		HasPanel:  true,
	}, nil
}

// SetBrightness sets the display brightness.
func (e *Emulator) SetBrightness(perc byte) error {
	if perc > 100 {
		perc = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.brightness = perc
	return nil
}

// SetSurfaceImage replaces the panel or a key display.
func (e *Emulator) SetSurfaceImage(target device.Target, img image.Image) error {
	caps, _ := e.Capabilities()
	size, err := caps.SurfaceSize(target)
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}
	if img.Bounds().Dx() != size.Dx() || img.Bounds().Dy() != size.Dy() {
		return fmt.Errorf("emulator: %s image is %v, want %v: %w",
			target, img.Bounds().Size(), size.Size(), device.ErrInvalidTarget)
	}

	// Create new RGBA image and draw the provided image onto it
	rgba := image.NewRGBA(size)
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return fmt.Errorf("emulator: %w", device.ErrNotOpen)
	}
	if key, ok := target.Key(); ok {
		e.keyImages[key-1] = rgba
	} else {
		e.panelImage = rgba
	}
	return nil
}

// SetKeyImage sets the up or down face of a key.
func (e *Emulator) SetKeyImage(key device.KeyID, state device.ImageState, path string) error {
	if !key.Valid() {
		return fmt.Errorf("emulator: invalid key ID %d: %w", key, device.ErrInvalidTarget)
	}
	img, err := e.faces.Load(path)
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return fmt.Errorf("emulator: %w", device.ErrNotOpen)
	}
	if show, ok := e.faces.Set(key, state, img); ok {
		e.keyImages[key-1] = toRGBA(show)
	}
	return nil
}

// AddKeyHandler registers a key state handler.
func (e *Emulator) AddKeyHandler(fn device.KeyHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keyHandlers = append(e.keyHandlers, fn)
	return nil
}

// AddGestureHandler registers a panel gesture handler.
func (e *Emulator) AddGestureHandler(fn device.GestureHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gestureHandlers = append(e.gestureHandlers, fn)
	return nil
}

// AddFocusHandler registers fn for window focus changes. Handlers run on
// the GUI goroutine and must not block.
func (e *Emulator) AddFocusHandler(fn FocusHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focusHandlers = append(e.focusHandlers, fn)
}

// Listen delivers input events until the emulator is closed or the window
// goes away. Handler errors are sent to errCh when it has room.
func (e *Emulator) Listen(errCh chan error) error {
	e.mu.RLock()
	if !e.open {
		e.mu.RUnlock()
		return fmt.Errorf("emulator: %w", device.ErrNotOpen)
	}
	stop := e.stopCh
	e.mu.RUnlock()

	for {
		select {
		case <-stop:
			return nil
		case <-e.guiDone:
			return nil
		case fn := <-e.events:
			if err := fn(); err != nil && errCh != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}
}

// queue hands an input event to the Listen goroutine.
func (e *Emulator) queue(fn func() error) {
	select {
	case e.events <- fn:
	default:
		log.Println("Emulator: input queue full, event dropped")
	}
}

func (e *Emulator) sendKey(key device.KeyID, state device.KeyState) {
	e.mu.Lock()
	if show, ok := e.faces.Press(key, state == device.KeyDown); ok {
		e.keyImages[key-1] = toRGBA(show)
	}
	handlers := append([]device.KeyHandler(nil), e.keyHandlers...)
	e.mu.Unlock()

	e.queue(func() error {
		for _, h := range handlers {
			if err := h(e, key, state); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Emulator) sendGesture(g device.Gesture) {
	e.mu.RLock()
	handlers := append([]device.GestureHandler(nil), e.gestureHandlers...)
	e.mu.RUnlock()

	e.queue(func() error {
		for _, h := range handlers {
			if err := h(e, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Emulator) sendFocus(focused bool) {
	e.mu.RLock()
	handlers := append([]FocusHandler(nil), e.focusHandlers...)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(focused)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
