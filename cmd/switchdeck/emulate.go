package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/phinze/switchdeck/internal/activation"
	"github.com/phinze/switchdeck/internal/config"
	"github.com/phinze/switchdeck/internal/device/emulator"
	"github.com/phinze/switchdeck/internal/profile"
	"github.com/phinze/switchdeck/internal/session"
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Run the configured profile against an on-screen emulator",
	RunE:  runEmulate,
}

func runEmulate(cmd *cobra.Command, args []string) error {
	log.Println("=== Switchdeck Emulator ===")
	log.Println("Close window or press Ctrl+C to exit")

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	emu := emulator.New()
	if err := emu.Open(); err != nil {
		return err
	}

	// Window focus stands in for the application's activation.
	act := activation.New()
	emu.AddFocusHandler(func(focused bool) {
		if focused {
			act.Activate()
		} else {
			act.Deactivate()
		}
	})

	sess, err := session.Open(emu, act)
	if err != nil {
		return err
	}
	prof, err := profile.Apply(ctx, sess, cfg, profile.Options{})
	if err != nil {
		log.Printf("Profile applied with errors: %v", err)
	}

	go func() {
		if err := sess.Listen(ctx); err != nil {
			log.Printf("Emulator listener: %v", err)
		}
	}()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		prof.Close()
		if err := sess.Close(); err != nil {
			log.Printf("Session close: %v", err)
		}
	}()

	log.Println("Ready!")

	// Run GUI on main thread (required for macOS)
	err = emu.RunGUI()
	cancel()
	<-closed
	return err
}
