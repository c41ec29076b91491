package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phinze/switchdeck/internal/config"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/usbwatch"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check config, secrets, and device health",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Switchdeck Status ===")
	fmt.Println()

	allOK := true

	configPath := config.DefaultConfigPath()
	fmt.Printf("Config file: %s\n", configPath)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("  Status: found")
	} else {
		fmt.Println("  Status: NOT FOUND")
		allOK = false
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("  Load error: %v\n", err)
		allOK = false
	}
	fmt.Println()

	if cfg != nil {
		fmt.Println("Profile:")
		fmt.Printf("  Brightness: %d%%\n", cfg.Device.Brightness)
		fmt.Printf("  Keys bound: %d\n", len(cfg.Keys))
		for _, k := range cfg.Keys {
			fmt.Printf("    %s: %s", k.ID(), k.Up)
			if k.Command != "" {
				fmt.Printf(" -> %s", k.Command)
			}
			fmt.Println()
		}
		panel := cfg.Panel.Content
		if panel == config.PanelNone {
			panel = "none"
		}
		fmt.Printf("  Panel: %s\n", panel)
		fmt.Println()
	}

	if cfg != nil && cfg.Panel.Content == config.PanelWeather {
		fmt.Println("Weather:")
		if cfg.Weather.Lat != "" && cfg.Weather.Lon != "" {
			fmt.Printf("  Location: %s, %s\n", cfg.Weather.Lat, cfg.Weather.Lon)
		} else {
			fmt.Println("  Location: NOT SET")
			allOK = false
		}

		if _, err := config.GetKeychainSecret(config.KeyOpenWeatherMapAPIKey); err == nil {
			fmt.Println("  API Key (Keychain): set")
		} else if cfg.Weather.APIKey != "" {
			fmt.Println("  API Key (env): set")
		} else {
			fmt.Println("  API Key: NOT SET")
			allOK = false
		}
		fmt.Println()
	}

	fmt.Println("Stream Deck:")
	if dev := tryGetDeviceWithTimeout(2 * time.Second); dev != nil {
		hw := device.NewHardware(dev)
		fmt.Println("  Device: CONNECTED")
		if caps, err := hw.Capabilities(); err == nil {
			fmt.Printf("  Model: %s (%d keys, panel %v)\n", caps.Model, caps.KeyCount, caps.HasPanel)
		}
		hw.Close()
	} else {
		fmt.Println("  Device: not detected")
	}
	if usbwatch.Supported {
		fmt.Println("  Hot-plug: IOKit notifications")
	} else {
		fmt.Println("  Hot-plug: polling")
	}
	fmt.Println()

	if allOK {
		fmt.Println("All checks passed.")
	} else {
		fmt.Println("Some checks failed. Run 'switchdeck setup' to configure.")
	}

	return nil
}
