package usbwatch

import (
	"context"
	"testing"
	"time"
)

func TestArrivalsReachMatchingVendor(t *testing.T) {
	var w watchers
	_, deck := w.add(ElgatoVendorID)
	_, other := w.add(0x046d)

	if n := w.arrived(ElgatoVendorID); n != 1 {
		t.Fatalf("matched %d watchers, want 1", n)
	}
	select {
	case <-deck:
	default:
		t.Fatal("deck watcher not signalled")
	}
	select {
	case <-other:
		t.Fatal("other vendor signalled")
	default:
	}
}

func TestArrivalsCoalesce(t *testing.T) {
	var w watchers
	_, ch := w.add(ElgatoVendorID)

	w.arrived(ElgatoVendorID)
	w.arrived(ElgatoVendorID)
	<-ch
	select {
	case <-ch:
		t.Fatal("second arrival not coalesced")
	default:
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	var w watchers
	ctx, cancel := context.WithCancel(context.Background())
	ch := w.subscribe(ctx, ElgatoVendorID)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("got a signal instead of close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if n := w.arrived(ElgatoVendorID); n != 0 {
		t.Fatalf("removed watcher still matched (%d)", n)
	}
}
