// Package keys tracks the logical state of the dynamic keys and turns raw
// hardware states into Pressed, Released and Changed notifications.
package keys

import (
	"fmt"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/event"
)

// Event describes one key transition.
type Event struct {
	Key      device.KeyID
	State    device.KeyState
	Previous device.KeyState
}

// Key is the state machine of one enabled key. It owns the key's up and
// down images.
type Key struct {
	id  device.KeyID
	dev device.Device

	// faceMu serializes face writes with the enabled check that picks them.
	faceMu sync.Mutex

	mu        sync.Mutex
	state     device.KeyState
	previous  device.KeyState
	upImage   string
	downImage string
	enabled   bool

	pressed  event.Feed[Event]
	released event.Feed[Event]
	changed  event.Feed[Event]
}

// newKey creates an enabled key in the None state and sets its images. An
// empty down image defaults to the up image.
func newKey(dev device.Device, id device.KeyID, up, down string) (*Key, error) {
	k := &Key{id: id, dev: dev, enabled: true}
	if err := k.SetImages(up, down); err != nil {
		return nil, err
	}
	return k, nil
}

// ID returns the key's identity.
func (k *Key) ID() device.KeyID {
	return k.id
}

// State returns the current logical state.
func (k *Key) State() device.KeyState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Previous returns the state before the last transition.
func (k *Key) Previous() device.KeyState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.previous
}

// Images returns the up and down image paths.
func (k *Key) Images() (up, down string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.upImage, k.downImage
}

// Enabled reports whether the key raises notifications.
func (k *Key) Enabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enabled
}

// SetImages replaces both images. An empty down image defaults to up. While
// the key is disabled only the paths are recorded.
func (k *Key) SetImages(up, down string) error {
	if down == "" {
		down = up
	}

	k.faceMu.Lock()
	defer k.faceMu.Unlock()

	k.mu.Lock()
	k.upImage, k.downImage = up, down
	enabled := k.enabled
	k.mu.Unlock()

	if !enabled {
		return nil
	}
	return k.showFaces(up, down)
}

// SetEnabled switches notifications on or off. A disabled key shows the
// blank face; enabling it again restores its images.
func (k *Key) SetEnabled(enabled bool) error {
	k.faceMu.Lock()
	defer k.faceMu.Unlock()

	k.mu.Lock()
	k.enabled = enabled
	up, down := k.upImage, k.downImage
	k.mu.Unlock()

	if !enabled {
		return k.showFaces("", "")
	}
	return k.showFaces(up, down)
}

func (k *Key) showFaces(up, down string) error {
	if err := k.dev.SetKeyImage(k.id, device.ImageUp, up); err != nil {
		return device.NewWriteError("SetKeyImage", err)
	}
	if err := k.dev.SetKeyImage(k.id, device.ImageDown, down); err != nil {
		return device.NewWriteError("SetKeyImage", err)
	}
	return nil
}

// OnPressed registers fn for presses.
func (k *Key) OnPressed(fn func(Event)) (cancel func()) {
	return k.pressed.Subscribe(fn)
}

// OnReleased registers fn for releases.
func (k *Key) OnReleased(fn func(Event)) (cancel func()) {
	return k.released.Subscribe(fn)
}

// OnChanged registers fn for every transition, repeats included.
func (k *Key) OnChanged(fn func(Event)) (cancel func()) {
	return k.changed.Subscribe(fn)
}

// Update feeds a raw state into the machine.
//
// Changed fires on every update. Released fires when the key goes Up from
// Down or from None, Pressed when it goes Down from Up or from None. None
// is the state before first contact, and the device may report either edge
// first. Hold and Invalid only raise Changed. A disabled key records the
// state but stays silent.
func (k *Key) Update(s device.KeyState) {
	k.mu.Lock()
	k.previous, k.state = k.state, s
	ev := Event{Key: k.id, State: s, Previous: k.previous}
	enabled := k.enabled
	k.mu.Unlock()

	if !enabled {
		return
	}

	k.changed.Emit(ev)

	switch {
	case ev.State == device.KeyUp && (ev.Previous == device.KeyDown || ev.Previous == device.KeyNone):
		k.released.Emit(ev)
	case ev.State == device.KeyDown && (ev.Previous == device.KeyUp || ev.Previous == device.KeyNone):
		k.pressed.Emit(ev)
	}
}

func (k *Key) String() string {
	return fmt.Sprintf("%s(%s)", k.id, k.State())
}
