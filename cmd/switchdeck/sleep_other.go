//go:build !darwin

package main

import (
	"context"

	"github.com/phinze/switchdeck/internal/activation"
)

// watchSleep has no sleep notifications to listen to off macOS; the
// returned channel never fires.
func watchSleep(ctx context.Context, act *activation.Coordinator) <-chan struct{} {
	return make(chan struct{})
}
