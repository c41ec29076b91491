// Package session ties one connected device to its surfaces and keys.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/phinze/switchdeck/internal/activation"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/event"
	"github.com/phinze/switchdeck/internal/keys"
	"github.com/phinze/switchdeck/internal/render"
)

// Session owns everything built on top of an open device: the panel and key
// surface controllers, the key registry and the input callbacks.
type Session struct {
	dev  device.Device
	caps device.Capabilities

	panel       *render.Controller
	keySurfaces [device.KeyCount]*render.Controller
	keys        *keys.Registry

	gestures event.Feed[device.Gesture]

	mu     sync.Mutex
	closed bool
}

// Open opens dev if needed, queries its capabilities and builds a session.
// act may be nil, in which case surfaces ignore application activation.
func Open(dev device.Device, act *activation.Coordinator) (*Session, error) {
	opened := false
	if !dev.IsOpen() {
		if err := dev.Open(); err != nil {
			return nil, fmt.Errorf("open device: %w", err)
		}
		opened = true
	}

	caps, err := dev.Capabilities()
	if err != nil {
		if opened {
			dev.Close()
		}
		return nil, fmt.Errorf("query capabilities: %w", err)
	}

	s := &Session{
		dev:  dev,
		caps: caps,
		keys: keys.NewRegistry(dev),
	}

	if caps.HasPanel {
		s.panel = render.NewController(render.NewSurface(dev, device.Panel, caps.PanelSize), act)
	}
	for id := device.KEY_1; id <= device.KEY_10 && int(id) <= caps.KeyCount; id++ {
		surface := render.NewSurface(dev, device.TargetForKey(id), caps.KeySize)
		s.keySurfaces[id-1] = render.NewController(surface, act)
	}

	if err := dev.AddKeyHandler(s.handleKey); err != nil {
		s.abort(opened)
		return nil, fmt.Errorf("register key handler: %w", err)
	}
	if err := dev.AddGestureHandler(s.handleGesture); err != nil {
		s.abort(opened)
		return nil, fmt.Errorf("register gesture handler: %w", err)
	}

	log.Printf("Session opened: %s (%d keys, panel %v)", caps.Model, caps.KeyCount, caps.HasPanel)
	return s, nil
}

// Device returns the session's device.
func (s *Session) Device() device.Device {
	return s.dev
}

// Capabilities returns what the device reported when the session opened.
func (s *Session) Capabilities() device.Capabilities {
	return s.caps
}

// Panel returns the panel controller, or nil if the device has no panel.
func (s *Session) Panel() *render.Controller {
	return s.panel
}

// KeySurface returns the surface controller of a key's display.
func (s *Session) KeySurface(id device.KeyID) (*render.Controller, bool) {
	if !id.Valid() {
		return nil, false
	}
	c := s.keySurfaces[id-1]
	return c, c != nil
}

// Keys returns the key registry.
func (s *Session) Keys() *keys.Registry {
	return s.keys
}

// OnGesture registers fn for panel gestures.
func (s *Session) OnGesture(fn func(device.Gesture)) (cancel func()) {
	return s.gestures.Subscribe(fn)
}

// Listen runs the device event loop until ctx is done or the device goes
// away. Handler errors are logged and do not stop the loop.
func (s *Session) Listen(ctx context.Context) error {
	errCh := make(chan error, 16)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- s.dev.Listen(errCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			log.Printf("Device handler error: %v", err)
		case err := <-listenErr:
			if err != nil {
				return fmt.Errorf("device listener: %w", err)
			}
			return nil
		}
	}
}

// Close disposes every controller without writing to the device, empties
// the key registry and closes the device. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	errs := s.teardown()
	if s.dev.IsOpen() {
		if err := s.dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close device: %w", err))
		}
	}
	return errors.Join(errs...)
}

// abort undoes a partly built session. The device is closed only if Open
// opened it.
func (s *Session) abort(opened bool) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.teardown()
	if opened {
		s.dev.Close()
	}
}

// teardown closes the surface controllers and empties the key registry.
func (s *Session) teardown() []error {
	var errs []error
	if s.panel != nil {
		errs = append(errs, s.panel.Close())
	}
	for _, c := range s.keySurfaces {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	s.keys.Close()
	return errs
}

func (s *Session) handleKey(_ device.Device, key device.KeyID, state device.KeyState) error {
	// Larger decks have keys past the addressable range.
	if !key.Valid() {
		return nil
	}
	return s.keys.Dispatch(key, state)
}

func (s *Session) handleGesture(_ device.Device, g device.Gesture) error {
	s.gestures.Emit(g)
	return nil
}
