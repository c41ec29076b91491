package main

import (
	"context"
	"log"

	"github.com/prashantgupta24/mac-sleep-notifier/notifier"

	"github.com/phinze/switchdeck/internal/activation"
)

// watchSleep deactivates rendering when the system sleeps and reactivates it
// on wake. The returned channel receives a signal on every wake so the
// daemon can reconnect the device.
func watchSleep(ctx context.Context, act *activation.Coordinator) <-chan struct{} {
	sleepCh := notifier.GetInstance().Start()
	wakeCh := make(chan struct{}, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case activity, ok := <-sleepCh:
				if !ok {
					return
				}
				switch activity.Type {
				case notifier.Sleep:
					log.Println("System sleep detected")
					act.Deactivate()
				case notifier.Awake:
					log.Println("System wake detected")
					act.Activate()
					select {
					case wakeCh <- struct{}{}:
					default:
					}
				}
			}
		}
	}()
	return wakeCh
}
