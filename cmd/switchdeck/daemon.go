package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"rafaelmartins.com/p/streamdeck"

	"github.com/phinze/switchdeck/internal/activation"
	"github.com/phinze/switchdeck/internal/config"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/profile"
	"github.com/phinze/switchdeck/internal/session"
	"github.com/phinze/switchdeck/internal/usbwatch"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("=== Switchdeck Daemon ===")
	log.Println("Press Ctrl+C to exit")

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	act := activation.New()
	wakeCh := watchSleep(ctx, act)
	arrivals := usbwatch.Watch(ctx, usbwatch.ElgatoVendorID)

	// Main device loop - wait for device, run, repeat on disconnect
	for {
		dev := waitForHardwareDevice(ctx, wakeCh, arrivals)
		if dev == nil {
			// Context cancelled
			return nil
		}

		// Drain any stale wake signals that accumulated while waiting for
		// the device, so they don't immediately tear the new session down.
	drainWake:
		for {
			select {
			case <-wakeCh:
				log.Println("Draining stale wake signal")
			default:
				break drainWake
			}
		}

		// USB enumeration may not be complete even after GetDevice succeeds.
		time.Sleep(500 * time.Millisecond)

		runWithDevice(ctx, cfg, dev, act, wakeCh)

		select {
		case <-ctx.Done():
			log.Println("Exiting...")
			return nil
		default:
			log.Println("Waiting for device reconnect...")
		}
	}
}

// tryGetDeviceWithTimeout attempts to get and open a Stream Deck device with a timeout.
// The timeout prevents blocking indefinitely when the USB subsystem is in a bad state.
func tryGetDeviceWithTimeout(timeout time.Duration) *streamdeck.Device {
	type result struct {
		dev *streamdeck.Device
		err error
	}
	ch := make(chan result, 1)

	go func() {
		dev, err := streamdeck.GetDevice("")
		if err != nil {
			ch <- result{nil, err}
			return
		}
		if err := dev.Open(); err != nil {
			ch <- result{nil, err}
			return
		}
		ch <- result{dev, nil}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil
		}
		return r.dev
	case <-time.After(timeout):
		log.Println("Device detection timed out")
		return nil
	}
}

// waitForHardwareDevice waits until a Stream Deck can be opened. USB
// arrivals and wake signals trigger an immediate probe; otherwise it polls.
func waitForHardwareDevice(ctx context.Context, wakeCh <-chan struct{}, arrivals <-chan struct{}) device.Device {
	const deviceTimeout = 5 * time.Second

	if dev := tryGetDeviceWithTimeout(deviceTimeout); dev != nil {
		return device.NewHardware(dev)
	}

	log.Println("Waiting for device...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-arrivals:
			if !ok {
				// Watcher closed with ctx.
				return nil
			}
			log.Println("Stream Deck arrived, probing...")
			if dev := probeRepeatedly(ctx, deviceTimeout); dev != nil {
				return dev
			}
		case <-wakeCh:
			// After wake, USB devices may take several seconds to enumerate.
			log.Println("Wake signal received, probing for device...")
			if dev := probeRepeatedly(ctx, deviceTimeout); dev != nil {
				return dev
			}
			log.Println("Device not found after wake, resuming polling...")
		case <-time.After(2 * time.Second):
			if dev := tryGetDeviceWithTimeout(deviceTimeout); dev != nil {
				log.Println("Device connected!")
				return device.NewHardware(dev)
			}
		}
	}
}

func probeRepeatedly(ctx context.Context, timeout time.Duration) device.Device {
	for i := 0; i < 10; i++ {
		if dev := tryGetDeviceWithTimeout(timeout); dev != nil {
			log.Println("Device connected!")
			return device.NewHardware(dev)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}

// runWithDevice runs a session until disconnect, wake, or context cancel.
func runWithDevice(ctx context.Context, cfg *config.Config, dev device.Device, act *activation.Coordinator, wakeCh <-chan struct{}) {
	log.Printf("Connected to: %s", dev.GetModelName())

	sess, err := session.Open(dev, act)
	if err != nil {
		log.Printf("Session failed: %v", err)
		dev.Close()
		return
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	prof, err := profile.Apply(runCtx, sess, cfg, profile.Options{})
	if err != nil {
		log.Printf("Profile applied with errors: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- sess.Listen(runCtx)
	}()

	log.Println("Ready!")

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-errChan:
		if err != nil {
			log.Printf("Device disconnected: %v", err)
		}
	case <-wakeCh:
		log.Println("Reconnecting device after wake...")
	}

	runCancel()
	prof.Close()

	// Let pending USB I/O callbacks complete; usbhid doesn't cancel
	// in-flight reads on close.
	time.Sleep(200 * time.Millisecond)

	closeDone := make(chan struct{})
	go func() {
		if err := sess.Close(); err != nil {
			log.Printf("Session close: %v", err)
		}
		close(closeDone)
	}()

	select {
	case <-closeDone:
	case <-time.After(3 * time.Second):
		log.Println("Device close timed out")
	}
}
