package session

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/phinze/switchdeck/internal/activation"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/device/devicetest"
	"github.com/phinze/switchdeck/internal/keys"
	"github.com/phinze/switchdeck/internal/render"
)

func TestOpenBuildsSurfacesAndRegistersHandlers(t *testing.T) {
	fake := devicetest.New()
	s, err := Open(fake, activation.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Panel() == nil {
		t.Fatal("no panel controller")
	}
	if got := s.Panel().Surface().Bounds(); got != devicetest.PanelSize {
		t.Fatalf("panel bounds = %v", got)
	}
	for id := device.KEY_1; id <= device.KEY_10; id++ {
		c, ok := s.KeySurface(id)
		if !ok || c.Surface().Target() != device.TargetForKey(id) {
			t.Fatalf("key surface %s missing", id)
		}
	}
	if _, ok := s.KeySurface(0); ok {
		t.Fatal("KeySurface(0) should not exist")
	}
	if k, g := fake.HandlerCounts(); k != 1 || g != 1 {
		t.Fatalf("handlers = %d key, %d gesture; want one each", k, g)
	}
}

func TestOpenHonorsCapabilities(t *testing.T) {
	fake := devicetest.New()
	fake.SetCapabilities(device.Capabilities{
		Model:    "Small Deck",
		KeyCount: 6,
		KeySize:  image.Rect(0, 0, 80, 80),
	})
	s, err := Open(fake, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Panel() != nil {
		t.Fatal("panel controller for a device without panel")
	}
	if _, ok := s.KeySurface(device.KEY_6); !ok {
		t.Fatal("DK6 surface missing")
	}
	if _, ok := s.KeySurface(device.KEY_7); ok {
		t.Fatal("DK7 surface on a six-key device")
	}
}

func TestOpenRegistrationFailureKeepsCallerDeviceOpen(t *testing.T) {
	fake := devicetest.New()
	fake.FailGestureHandlers(errors.New("no touch strip"))

	if _, err := Open(fake, nil); err == nil {
		t.Fatal("Open succeeded despite registration failure")
	}
	if !fake.IsOpen() {
		t.Fatal("Open closed a device it did not open")
	}
}

func TestOpenRegistrationFailureClosesDeviceItOpened(t *testing.T) {
	fake := devicetest.New()
	fake.Close()
	fake.FailGestureHandlers(errors.New("no touch strip"))

	if _, err := Open(fake, nil); err == nil {
		t.Fatal("Open succeeded despite registration failure")
	}
	if fake.IsOpen() {
		t.Fatal("device Open opened was left open")
	}
}

func TestOpenOpensClosedDevice(t *testing.T) {
	fake := devicetest.New()
	fake.Close()

	s, err := Open(fake, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !fake.IsOpen() {
		t.Fatal("device not opened")
	}
	s.Close()
}

func TestOpenCapabilitiesFailure(t *testing.T) {
	fake := devicetest.New()
	want := errors.New("unplugged")
	fake.FailCapabilities(want)

	if _, err := Open(fake, nil); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestKeyInputReachesRegistry(t *testing.T) {
	fake := devicetest.New()
	s, _ := Open(fake, nil)
	defer s.Close()

	var released []keys.Event
	if _, err := s.Keys().Enable(device.KEY_3, keys.Options{
		Up:         "a.png",
		OnReleased: func(e keys.Event) { released = append(released, e) },
	}); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	fake.SendKey(device.KEY_3, device.KeyDown)
	fake.SendKey(device.KEY_3, device.KeyUp)
	// Unregistered and out-of-range keys are ignored.
	if err := fake.SendKey(device.KEY_4, device.KeyDown); err != nil {
		t.Fatalf("empty slot: %v", err)
	}
	if err := fake.SendKey(device.KeyID(15), device.KeyDown); err != nil {
		t.Fatalf("key 15: %v", err)
	}

	if len(released) != 1 {
		t.Fatalf("released = %d, want 1", len(released))
	}
}

func TestGesturesAreForwarded(t *testing.T) {
	fake := devicetest.New()
	s, _ := Open(fake, nil)
	defer s.Close()

	var got []device.Gesture
	cancel := s.OnGesture(func(g device.Gesture) { got = append(got, g) })

	fake.SendGesture(device.Gesture{Type: device.GestureTap, Point: image.Pt(10, 20), End: image.Pt(10, 20)})
	cancel()
	fake.SendGesture(device.Gesture{Type: device.GestureSwipe})

	if len(got) != 1 || got[0].Type != device.GestureTap || got[0].Point != image.Pt(10, 20) {
		t.Fatalf("gestures = %+v", got)
	}
}

func TestCloseIsDeterministic(t *testing.T) {
	fake := devicetest.New()
	s, _ := Open(fake, activation.New())

	src := render.NewBitmapSource(render.BitmapFunc(func() (image.Image, error) {
		return image.NewRGBA(devicetest.PanelSize), nil
	}), time.Millisecond)
	if err := s.Panel().Attach(src); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	k, _ := s.Keys().Enable(device.KEY_1, keys.Options{Up: "a.png"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	pushes := fake.Pushes(device.Panel)
	time.Sleep(10 * time.Millisecond)

	if fake.Pushes(device.Panel) != pushes {
		t.Fatal("panel pushed after Close")
	}
	if src.IsActive() {
		t.Fatal("bitmap source still active")
	}
	if !s.Panel().Surface().Disposed() {
		t.Fatal("panel surface not disposed")
	}
	if k.Enabled() {
		t.Fatal("key still enabled")
	}
	if fake.IsOpen() {
		t.Fatal("device still open")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestListenReturnsOnCancelAndDisconnect(t *testing.T) {
	fake := devicetest.New()
	s, _ := Open(fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen after cancel: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}

	go func() { done <- s.Listen(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	s.Close()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, device.ErrNotOpen) {
			t.Fatalf("Listen after disconnect: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after device close")
	}
}
