//go:build !darwin

package usbwatch

import "context"

// Supported reports whether arrivals are detected on this platform.
const Supported = false

// Watch returns a channel for arrivals of vendorID. Hot-plug detection is
// only implemented on macOS, so the channel never fires here; it is closed
// when ctx is done.
func Watch(ctx context.Context, vendorID uint16) <-chan struct{} {
	return registry.subscribe(ctx, vendorID)
}
