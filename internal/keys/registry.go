package keys

import (
	"fmt"
	"sync"

	"github.com/phinze/switchdeck/internal/device"
)

// EnableError is returned when a key could not be set up. The slot is left
// empty and Enable may be retried.
type EnableError struct {
	Key device.KeyID
	Err error
}

func (e *EnableError) Error() string {
	return fmt.Sprintf("keys: enable %s: %v", e.Key, e.Err)
}

func (e *EnableError) Unwrap() error {
	return e.Err
}

// Options configure Enable.
type Options struct {
	// Up is the image shown while the key is up.
	Up string

	// Down is the image shown while the key is held. Defaults to Up.
	Down string

	// OnReleased, if set, is registered for the key's Released notification.
	OnReleased func(Event)

	// Replace discards an existing key in the slot instead of returning it.
	Replace bool
}

// Registry is the fixed table of enabled keys, one slot per key ID.
type Registry struct {
	dev device.Device

	// mu covers whole read-modify-write sequences on a slot.
	mu    sync.Mutex
	slots [device.KeyCount]*Key
}

// NewRegistry creates an empty registry for dev.
func NewRegistry(dev device.Device) *Registry {
	return &Registry{dev: dev}
}

func slot(id device.KeyID) (int, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("keys: key %d out of range 1..%d: %w", id, device.KeyCount, device.ErrInvalidState)
	}
	return int(id) - 1, nil
}

// Enable returns the key in slot id, creating it if the slot is empty. With
// opts.Replace an occupant is disabled first and a new key takes its place.
func (r *Registry) Enable(id device.KeyID, opts Options) (*Key, error) {
	idx, err := slot(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old := r.slots[idx]; old != nil {
		if !opts.Replace {
			return old, nil
		}
		r.slots[idx] = nil
		if err := old.SetEnabled(false); err != nil {
			return nil, &EnableError{Key: id, Err: err}
		}
	}

	k, err := newKey(r.dev, id, opts.Up, opts.Down)
	if err != nil {
		return nil, &EnableError{Key: id, Err: err}
	}
	if opts.OnReleased != nil {
		k.OnReleased(opts.OnReleased)
	}
	r.slots[idx] = k
	return k, nil
}

// Disable switches the key off, shows its blank face and empties the slot.
// Disabling an empty slot is a no-op. The slot is emptied even if the blank
// face cannot be written.
func (r *Registry) Disable(id device.KeyID) error {
	idx, err := slot(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := r.slots[idx]
	if k == nil {
		return nil
	}
	r.slots[idx] = nil
	return k.SetEnabled(false)
}

// Get returns the key in slot id, if any.
func (r *Registry) Get(id device.KeyID) (*Key, bool) {
	idx, err := slot(id)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.slots[idx]
	return k, k != nil
}

// Keys returns the enabled keys in ID order.
func (r *Registry) Keys() []*Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Key
	for _, k := range r.slots {
		if k != nil {
			out = append(out, k)
		}
	}
	return out
}

// Dispatch routes a raw hardware state to the key in slot id. Events for
// empty slots are dropped: the device reports keys nobody enabled.
func (r *Registry) Dispatch(id device.KeyID, state device.KeyState) error {
	idx, err := slot(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	k := r.slots[idx]
	r.mu.Unlock()

	if k != nil {
		k.Update(state)
	}
	return nil
}

// DisableAll disables every enabled key. It returns the first error but
// always empties every slot.
func (r *Registry) DisableAll() error {
	var first error
	for id := device.KEY_1; id <= device.KEY_10; id++ {
		if err := r.Disable(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close empties every slot without writing to the device, for use during
// teardown when the device handle may already be gone.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, k := range r.slots {
		if k != nil {
			k.mu.Lock()
			k.enabled = false
			k.mu.Unlock()
		}
		r.slots[i] = nil
	}
}
