package keys

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/device/devicetest"
)

type recorder struct {
	events []string
}

func (r *recorder) watch(k *Key) {
	k.OnPressed(func(Event) { r.events = append(r.events, "pressed") })
	k.OnReleased(func(Event) { r.events = append(r.events, "released") })
	k.OnChanged(func(e Event) { r.events = append(r.events, "changed:"+e.State.String()) })
}

func (r *recorder) take() []string {
	out := r.events
	r.events = nil
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestKeyTransitions(t *testing.T) {
	reg := NewRegistry(devicetest.New())
	k, err := reg.Enable(device.KEY_1, Options{Up: "up.png"})
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}
	var rec recorder
	rec.watch(k)

	steps := []struct {
		in   device.KeyState
		want []string
	}{
		{device.KeyDown, []string{"changed:down", "pressed"}},
		{device.KeyDown, []string{"changed:down"}},
		{device.KeyUp, []string{"changed:up", "released"}},
		{device.KeyUp, []string{"changed:up"}},
		{device.KeyDown, []string{"changed:down", "pressed"}},
		{device.KeyHold, []string{"changed:hold"}},
		{device.KeyUp, []string{"changed:up"}},
		{device.KeyInvalid, []string{"changed:invalid"}},
		{device.KeyUp, []string{"changed:up"}},
	}
	for i, step := range steps {
		prev := k.State()
		k.Update(step.in)
		if got := rec.take(); !equal(got, step.want) {
			t.Fatalf("step %d (%s -> %s): got %v, want %v", i, prev, step.in, got, step.want)
		}
		if k.Previous() != prev || k.State() != step.in {
			t.Fatalf("step %d: state %s/%s, want %s/%s", i, k.Previous(), k.State(), prev, step.in)
		}
	}
}

func TestKeyUpFromNoneReleases(t *testing.T) {
	reg := NewRegistry(devicetest.New())
	k, _ := reg.Enable(device.KEY_2, Options{Up: "a.png"})
	var rec recorder
	rec.watch(k)

	k.Update(device.KeyUp)

	if got := rec.take(); !equal(got, []string{"changed:up", "released"}) {
		t.Fatalf("events = %v", got)
	}
}

func TestDisabledKeyIsSilent(t *testing.T) {
	fake := devicetest.New()
	reg := NewRegistry(fake)
	k, _ := reg.Enable(device.KEY_3, Options{Up: "a.png", Down: "b.png"})
	var rec recorder
	rec.watch(k)

	if err := k.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled(false): %v", err)
	}
	k.Update(device.KeyDown)
	if got := rec.take(); len(got) != 0 {
		t.Fatalf("disabled key raised %v", got)
	}
	if p, _ := fake.KeyImage(device.KEY_3, device.ImageUp); p != "" {
		t.Fatalf("disabled up face = %q, want blank", p)
	}

	if err := k.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled(true): %v", err)
	}
	if p, _ := fake.KeyImage(device.KEY_3, device.ImageDown); p != "b.png" {
		t.Fatalf("restored down face = %q", p)
	}
}

func TestEnableSetsImages(t *testing.T) {
	fake := devicetest.New()
	reg := NewRegistry(fake)

	k, err := reg.Enable(device.KEY_4, Options{Up: "up.png"})
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}
	up, down := k.Images()
	if up != "up.png" || down != "up.png" {
		t.Fatalf("Images = %q, %q; down should default to up", up, down)
	}
	if p, _ := fake.KeyImage(device.KEY_4, device.ImageDown); p != "up.png" {
		t.Fatalf("device down face = %q", p)
	}
}

func TestEnableIsIdempotent(t *testing.T) {
	reg := NewRegistry(devicetest.New())

	a, _ := reg.Enable(device.KEY_5, Options{Up: "a.png"})
	b, err := reg.Enable(device.KEY_5, Options{Up: "b.png"})
	if err != nil {
		t.Fatalf("second Enable: %v", err)
	}
	if a != b {
		t.Fatal("Enable without Replace returned a new key")
	}
	if up, _ := b.Images(); up != "a.png" {
		t.Fatalf("existing key images changed to %q", up)
	}

	c, err := reg.Enable(device.KEY_5, Options{Up: "c.png", Replace: true})
	if err != nil {
		t.Fatalf("Enable with Replace: %v", err)
	}
	if c == a {
		t.Fatal("Replace returned the old key")
	}
	if a.Enabled() {
		t.Fatal("replaced key still enabled")
	}
}

func TestEnableRejectsOutOfRange(t *testing.T) {
	reg := NewRegistry(devicetest.New())

	for _, id := range []device.KeyID{0, 11, 255} {
		if _, err := reg.Enable(id, Options{}); !errors.Is(err, device.ErrInvalidState) {
			t.Fatalf("Enable(%d) err = %v, want ErrInvalidState", id, err)
		}
		if err := reg.Dispatch(id, device.KeyDown); !errors.Is(err, device.ErrInvalidState) {
			t.Fatalf("Dispatch(%d) err = %v, want ErrInvalidState", id, err)
		}
	}
}

func TestEnableFailureLeavesSlotEmpty(t *testing.T) {
	fake := devicetest.New()
	reg := NewRegistry(fake)
	fake.FailKeyImages(devicetest.CodedError{Code: device.CodeFailed})

	_, err := reg.Enable(device.KEY_6, Options{Up: "a.png"})
	var ee *EnableError
	if !errors.As(err, &ee) || ee.Key != device.KEY_6 {
		t.Fatalf("err = %v, want EnableError for DK6", err)
	}
	var we *device.WriteError
	if !errors.As(err, &we) || we.Code != device.CodeFailed {
		t.Fatalf("err = %v, want wrapped WriteError", err)
	}
	if _, ok := reg.Get(device.KEY_6); ok {
		t.Fatal("failed Enable occupied the slot")
	}

	fake.FailKeyImages(nil)
	if _, err := reg.Enable(device.KEY_6, Options{Up: "a.png"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestDisableClearsSlot(t *testing.T) {
	fake := devicetest.New()
	reg := NewRegistry(fake)
	k, _ := reg.Enable(device.KEY_7, Options{Up: "a.png"})

	if err := reg.Disable(device.KEY_7); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, ok := reg.Get(device.KEY_7); ok {
		t.Fatal("slot still occupied")
	}
	if k.Enabled() {
		t.Fatal("disabled key still enabled")
	}
	if p, _ := fake.KeyImage(device.KEY_7, device.ImageUp); p != "" {
		t.Fatalf("up face = %q, want blank", p)
	}
	if err := reg.Disable(device.KEY_7); err != nil {
		t.Fatalf("Disable empty slot: %v", err)
	}
}

func TestDispatch(t *testing.T) {
	reg := NewRegistry(devicetest.New())

	// Nobody enabled DK8: dropped, no error.
	if err := reg.Dispatch(device.KEY_8, device.KeyDown); err != nil {
		t.Fatalf("Dispatch to empty slot: %v", err)
	}

	var released []Event
	k, _ := reg.Enable(device.KEY_8, Options{
		Up:         "a.png",
		OnReleased: func(e Event) { released = append(released, e) },
	})
	reg.Dispatch(device.KEY_8, device.KeyDown)
	reg.Dispatch(device.KEY_8, device.KeyUp)

	if k.State() != device.KeyUp {
		t.Fatalf("state = %s", k.State())
	}
	if len(released) != 1 || released[0].Previous != device.KeyDown || released[0].Key != device.KEY_8 {
		t.Fatalf("released = %+v", released)
	}
}

func TestDisableAllAndClose(t *testing.T) {
	fake := devicetest.New()
	reg := NewRegistry(fake)
	reg.Enable(device.KEY_1, Options{Up: "a.png"})
	reg.Enable(device.KEY_10, Options{Up: "b.png"})

	if got := len(reg.Keys()); got != 2 {
		t.Fatalf("Keys = %d", got)
	}
	if err := reg.DisableAll(); err != nil {
		t.Fatalf("DisableAll: %v", err)
	}
	if got := len(reg.Keys()); got != 0 {
		t.Fatalf("Keys after DisableAll = %d", got)
	}

	k, _ := reg.Enable(device.KEY_2, Options{Up: "c.png"})
	before := len(fake.Calls())
	reg.Close()
	if len(fake.Calls()) != before {
		t.Fatal("Close wrote to the device")
	}
	if k.Enabled() || len(reg.Keys()) != 0 {
		t.Fatal("Close left keys enabled")
	}
}

// gatedDevice blocks the first up-face write of path until release closes.
type gatedDevice struct {
	*devicetest.Fake
	path    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedDevice) SetKeyImage(key device.KeyID, state device.ImageState, path string) error {
	if path == g.path && state == device.ImageUp {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Fake.SetKeyImage(key, state, path)
}

func TestDisableWinsOverConcurrentSetImages(t *testing.T) {
	dev := &gatedDevice{
		Fake:    devicetest.New(),
		path:    "new.png",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := NewRegistry(dev)
	k, err := reg.Enable(device.KEY_1, Options{Up: "old.png"})
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}

	setDone := make(chan error, 1)
	go func() { setDone <- k.SetImages("new.png", "") }()
	<-dev.entered

	disableDone := make(chan error, 1)
	go func() { disableDone <- reg.Disable(device.KEY_1) }()
	// Give Disable time to reach the key while the image write is stalled.
	time.Sleep(20 * time.Millisecond)
	close(dev.release)

	if err := <-setDone; err != nil {
		t.Fatalf("SetImages: %v", err)
	}
	if err := <-disableDone; err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if k.Enabled() {
		t.Fatal("key still enabled")
	}
	for _, st := range []device.ImageState{device.ImageUp, device.ImageDown} {
		if p, _ := dev.KeyImage(device.KEY_1, st); p != "" {
			t.Fatalf("face %v = %q after Disable, want blank", st, p)
		}
	}
	if up, _ := k.Images(); up != "new.png" {
		t.Fatalf("recorded up image = %q, want new.png", up)
	}
}
