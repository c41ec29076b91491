// Package usbwatch signals USB HID device arrivals so the daemon can
// reconnect a deck as soon as it is plugged in instead of polling.
package usbwatch

import (
	"context"
	"sync"
)

// ElgatoVendorID is the USB vendor ID of Stream Deck hardware.
const ElgatoVendorID uint16 = 0x0fd9

type subscriber struct {
	ch     chan struct{}
	vendor uint16
}

// watchers fans device arrivals out to every subscriber of that vendor.
type watchers struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

var registry watchers

// add subscribes to arrivals of vendor. The channel holds one pending
// signal; further arrivals before it is drained coalesce.
func (w *watchers) add(vendor uint16) (int, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subs == nil {
		w.subs = make(map[int]subscriber)
	}
	w.next++
	ch := make(chan struct{}, 1)
	w.subs[w.next] = subscriber{ch: ch, vendor: vendor}
	return w.next, ch
}

// remove unsubscribes and closes the channel.
func (w *watchers) remove(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s, ok := w.subs[id]; ok {
		delete(w.subs, id)
		close(s.ch)
	}
}

// arrived signals subscribers of vendor and returns how many matched.
func (w *watchers) arrived(vendor uint16) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for _, s := range w.subs {
		if s.vendor != vendor {
			continue
		}
		n++
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	return n
}

// subscribe registers a watcher that is removed when ctx is done.
func (w *watchers) subscribe(ctx context.Context, vendor uint16) <-chan struct{} {
	id, ch := w.add(vendor)
	go func() {
		<-ctx.Done()
		w.remove(id)
	}()
	return ch
}
