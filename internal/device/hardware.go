package device

import (
	"fmt"
	"image"
	"log"
	"sync"

	"rafaelmartins.com/p/streamdeck"
)

// HardwareDevice wraps the real streamdeck.Device to implement the Device interface.
// The touch strip is the panel. Key presses become Down and Up, with the
// key's down face shown while it is held.
type HardwareDevice struct {
	dev *streamdeck.Device

	facesOnce sync.Once
	faces     *KeyFaces
	facesErr  error

	mu              sync.Mutex
	keyHandlers     []KeyHandler
	gestureHandlers []GestureHandler
	keysHooked      bool
	stripHooked     bool
}

// NewHardware creates a new hardware device wrapper.
func NewHardware(dev *streamdeck.Device) *HardwareDevice {
	return &HardwareDevice{dev: dev}
}

// Open opens the device for use.
func (h *HardwareDevice) Open() error {
	return h.dev.Open()
}

// Close closes the device.
func (h *HardwareDevice) Close() error {
	return h.dev.Close()
}

// IsOpen returns whether the device is open.
func (h *HardwareDevice) IsOpen() bool {
	return h.dev.IsOpen()
}

// GetModelName returns the device model name.
func (h *HardwareDevice) GetModelName() string {
	return h.dev.GetModelName()
}

// Capabilities queries key count and surface sizes.
func (h *HardwareDevice) Capabilities() (Capabilities, error) {
	return queryCapabilities(h.dev)
}

// deckInfo is the part of streamdeck.Device that describes its layout.
type deckInfo interface {
	GetModelName() string
	GetKeyCount() byte
	GetKeyImageRectangle() (image.Rectangle, error)
	GetTouchStripSupported() bool
	GetTouchStripImageRectangle() (image.Rectangle, error)
}

func queryCapabilities(d deckInfo) (Capabilities, error) {
	keyRect, err := d.GetKeyImageRectangle()
	if err != nil {
		return Capabilities{}, fmt.Errorf("query key image size: %w", err)
	}
	caps := Capabilities{
		Model:    d.GetModelName(),
		KeyCount: min(int(d.GetKeyCount()), KeyCount),
		KeySize:  keyRect,
	}
	if d.GetTouchStripSupported() {
		stripRect, err := d.GetTouchStripImageRectangle()
		if err != nil {
			return Capabilities{}, fmt.Errorf("query touch strip image size: %w", err)
		}
		caps.HasPanel = true
		caps.PanelSize = stripRect
	}
	return caps, nil
}

// SetBrightness sets the device brightness.
func (h *HardwareDevice) SetBrightness(perc byte) error {
	return h.dev.SetBrightness(perc)
}

// SetSurfaceImage writes img to the touch strip or straight to a key display.
func (h *HardwareDevice) SetSurfaceImage(target Target, img image.Image) error {
	if target == Panel {
		if !h.dev.GetTouchStripSupported() {
			return fmt.Errorf("%s: %w", target, ErrNotSupported)
		}
		return h.dev.SetTouchStripImage(img)
	}
	key, ok := target.Key()
	if !ok {
		return fmt.Errorf("%s: %w", target, ErrInvalidTarget)
	}
	return h.dev.SetKeyImage(streamdeck.KeyID(key), img)
}

// SetKeyImage records a key face and shows it if it is the visible one.
func (h *HardwareDevice) SetKeyImage(key KeyID, state ImageState, path string) error {
	if !key.Valid() || key > KeyID(h.dev.GetKeyCount()) {
		return fmt.Errorf("key %d: %w", key, ErrInvalidTarget)
	}
	faces, err := h.keyFaces()
	if err != nil {
		return err
	}
	img, err := faces.Load(path)
	if err != nil {
		return err
	}
	if show, ok := faces.Set(key, state, img); ok {
		return h.dev.SetKeyImage(streamdeck.KeyID(key), show)
	}
	return nil
}

func (h *HardwareDevice) keyFaces() (*KeyFaces, error) {
	h.facesOnce.Do(func() {
		rect, err := h.dev.GetKeyImageRectangle()
		if err != nil {
			h.facesErr = err
			return
		}
		h.faces = NewKeyFaces(rect)
	})
	return h.faces, h.facesErr
}

// AddKeyHandler adds a handler for key state changes. The streamdeck
// handlers are installed on the first call.
func (h *HardwareDevice) AddKeyHandler(fn KeyHandler) error {
	h.mu.Lock()
	h.keyHandlers = append(h.keyHandlers, fn)
	hook := !h.keysHooked
	h.keysHooked = true
	h.mu.Unlock()

	if !hook {
		return nil
	}
	count := min(int(h.dev.GetKeyCount()), KeyCount)
	for id := KEY_1; int(id) <= count; id++ {
		key := id
		err := h.dev.AddKeyHandler(streamdeck.KeyID(key), func(d *streamdeck.Device, k *streamdeck.Key) error {
			h.showPressed(key, true)
			if err := h.emitKey(key, KeyDown); err != nil {
				log.Printf("Key %s press handler: %v", key, err)
			}
			k.WaitForRelease()
			h.showPressed(key, false)
			return h.emitKey(key, KeyUp)
		})
		if err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
	}
	return nil
}

func (h *HardwareDevice) showPressed(key KeyID, down bool) {
	faces, err := h.keyFaces()
	if err != nil {
		return
	}
	if show, ok := faces.Press(key, down); ok {
		if err := h.dev.SetKeyImage(streamdeck.KeyID(key), show); err != nil {
			log.Printf("Key %s face update failed: %v", key, err)
		}
	}
}

func (h *HardwareDevice) emitKey(key KeyID, state KeyState) error {
	h.mu.Lock()
	handlers := append([]KeyHandler(nil), h.keyHandlers...)
	h.mu.Unlock()

	for _, fn := range handlers {
		if err := fn(h, key, state); err != nil {
			return err
		}
	}
	return nil
}

// AddGestureHandler adds a handler for touch strip gestures. Devices
// without a touch strip never call it.
func (h *HardwareDevice) AddGestureHandler(fn GestureHandler) error {
	h.mu.Lock()
	h.gestureHandlers = append(h.gestureHandlers, fn)
	hook := !h.stripHooked && h.dev.GetTouchStripSupported()
	if hook {
		h.stripHooked = true
	}
	h.mu.Unlock()

	if !hook {
		return nil
	}
	err := h.dev.AddTouchStripTouchHandler(func(d *streamdeck.Device, t streamdeck.TouchStripTouchType, p image.Point) error {
		g := Gesture{Type: GestureTap, Point: p, End: p}
		if t == streamdeck.TOUCH_STRIP_TOUCH_TYPE_LONG {
			g.Type = GesturePress
		}
		return h.emitGesture(g)
	})
	if err != nil {
		return err
	}
	return h.dev.AddTouchStripSwipeHandler(func(d *streamdeck.Device, origin, destination image.Point) error {
		return h.emitGesture(Gesture{Type: GestureSwipe, Point: origin, End: destination})
	})
}

func (h *HardwareDevice) emitGesture(g Gesture) error {
	h.mu.Lock()
	handlers := append([]GestureHandler(nil), h.gestureHandlers...)
	h.mu.Unlock()

	for _, fn := range handlers {
		if err := fn(h, g); err != nil {
			return err
		}
	}
	return nil
}

// Listen starts the device event loop.
func (h *HardwareDevice) Listen(errCh chan error) error {
	return h.dev.Listen(errCh)
}

// Underlying returns the underlying streamdeck.Device for direct access when needed.
func (h *HardwareDevice) Underlying() *streamdeck.Device {
	return h.dev
}
