// Package device defines the abstraction layer for macro-key deck hardware.
//
// Everything above this package treats the hardware as a set of fallible
// black-box calls: push pixels to a surface, set a key's up/down image, query
// capabilities and register input callbacks.
package device

import (
	"fmt"
	"image"
	"time"
)

// Device is the interface that abstracts the deck hardware.
// The Stream Deck adapter, the emulator and the test fake implement it.
type Device interface {
	// Lifecycle
	Open() error
	Close() error
	IsOpen() bool

	// Device info
	GetModelName() string
	Capabilities() (Capabilities, error)

	// Display
	SetBrightness(perc byte) error

	// SetSurfaceImage replaces the pixels of a surface. The image must match
	// the surface size reported by Capabilities.
	SetSurfaceImage(target Target, img image.Image) error

	// SetKeyImage sets the image shown while a key is up or down. An empty
	// path selects the blank (disabled) face.
	SetKeyImage(key KeyID, state ImageState, path string) error

	// Event handlers. Registration is a one-time session setup step.
	AddKeyHandler(fn KeyHandler) error
	AddGestureHandler(fn GestureHandler) error

	// Event loop
	Listen(errCh chan error) error
}

// Capabilities describes what a connected device offers.
type Capabilities struct {
	Model     string
	KeyCount  int
	KeySize   image.Rectangle
	PanelSize image.Rectangle
	HasPanel  bool
}

// SurfaceSize returns the pixel bounds of the given target.
func (c Capabilities) SurfaceSize(t Target) (image.Rectangle, error) {
	if t == Panel {
		if !c.HasPanel {
			return image.Rectangle{}, fmt.Errorf("%s: %w", t, ErrNotSupported)
		}
		return c.PanelSize, nil
	}
	key, ok := t.Key()
	if !ok || int(key) > c.KeyCount {
		return image.Rectangle{}, fmt.Errorf("%s: %w", t, ErrInvalidTarget)
	}
	return c.KeySize, nil
}

// KeyID identifies one of the dynamic keys, numbered from 1.
type KeyID byte

// KeyCount is the number of dynamic key slots the core addresses.
const KeyCount = 10

const (
	KEY_1 KeyID = iota + 1
	KEY_2
	KEY_3
	KEY_4
	KEY_5
	KEY_6
	KEY_7
	KEY_8
	KEY_9
	KEY_10
)

// Valid reports whether k is within 1..KeyCount.
func (k KeyID) Valid() bool {
	return k >= KEY_1 && k <= KEY_10
}

func (k KeyID) String() string {
	return fmt.Sprintf("DK%d", k)
}

// Target identifies a drawable surface: the panel or a single key.
type Target byte

// Panel is the auxiliary display. Key targets follow it.
const Panel Target = 0

// TargetForKey returns the surface target of a key.
func TargetForKey(k KeyID) Target {
	return Target(k)
}

// Key returns the key behind a key target.
func (t Target) Key() (KeyID, bool) {
	k := KeyID(t)
	return k, t != Panel && k.Valid()
}

func (t Target) String() string {
	if t == Panel {
		return "panel"
	}
	return fmt.Sprintf("key %d", byte(t))
}

// KeyState is the logical state reported for a key.
type KeyState byte

const (
	KeyNone KeyState = iota
	KeyUp
	KeyDown
	KeyHold
	KeyInvalid
)

func (s KeyState) String() string {
	switch s {
	case KeyNone:
		return "none"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyHold:
		return "hold"
	default:
		return "invalid"
	}
}

// ImageState selects which of a key's two faces an image applies to.
type ImageState byte

const (
	ImageUp ImageState = iota + 1
	ImageDown
)

// GestureType indicates the kind of panel interaction.
type GestureType uint8

const (
	// GestureTap is a short touch.
	GestureTap GestureType = iota + 1
	// GesturePress is a long touch.
	GesturePress
	// GestureSwipe is a drag from Point to End.
	GestureSwipe
)

// Gesture is a touch interaction on the panel.
type Gesture struct {
	Type GestureType

	// Point is where the touch started.
	Point image.Point

	// End is where a swipe finished. Equal to Point for taps.
	End image.Point

	// Duration is how long the touch lasted, when the backend knows.
	Duration time.Duration
}

// Handler types
type (
	// KeyHandler receives raw key state changes.
	KeyHandler func(d Device, key KeyID, state KeyState) error

	// GestureHandler receives panel gestures.
	GestureHandler func(d Device, g Gesture) error
)
