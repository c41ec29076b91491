package activation

import "testing"

func TestCoordinatorStartsActivated(t *testing.T) {
	if got := New().State(); got != Activated {
		t.Fatalf("initial state = %v", got)
	}
}

func TestCoordinatorBroadcastsEverySignal(t *testing.T) {
	c := New()
	var got []State
	c.Subscribe(func(s State) { got = append(got, s) })

	c.Deactivate()
	c.Deactivate()
	c.Activate()

	want := []State{Deactivated, Deactivated, Activated}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if c.State() != Activated {
		t.Fatalf("State = %v", c.State())
	}
}

func TestCoordinatorEventPair(t *testing.T) {
	c := New()
	var on, off int
	cancelOn := c.OnActivated(func() { on++ })
	c.OnDeactivated(func() { off++ })

	c.Deactivate()
	c.Activate()
	cancelOn()
	c.Activate()

	if on != 1 || off != 1 {
		t.Fatalf("on=%d off=%d", on, off)
	}
}
