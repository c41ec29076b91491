package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phinze/switchdeck/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup: write config and store secrets in Keychain",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== Switchdeck Setup ===")
	fmt.Println()

	// Load existing config as defaults
	existing, _ := config.Load()
	if existing == nil {
		existing = &config.Config{Device: config.DeviceConfig{Brightness: config.DefaultBrightness}}
	}

	// Key bindings are edited in the file; setup keeps them.
	cfg := &config.Config{
		Keys:     existing.Keys,
		Feedback: existing.Feedback,
	}

	fmt.Println("-- Device --")
	brightness := prompt(reader, "Brightness (0-100)", strconv.Itoa(existing.Device.Brightness))
	n, err := strconv.Atoi(brightness)
	if err != nil || n < 0 || n > 100 {
		return fmt.Errorf("invalid brightness %q", brightness)
	}
	cfg.Device.Brightness = n
	fmt.Println()

	fmt.Println("-- Panel --")
	cfg.Panel.Content = prompt(reader, "Panel content (none, image, weather)", existing.Panel.Content)
	if cfg.Panel.Content == "none" {
		cfg.Panel.Content = config.PanelNone
	}
	if cfg.Panel.Content == config.PanelImage {
		cfg.Panel.Image = prompt(reader, "Panel image path", existing.Panel.Image)
	}
	cfg.Panel.Command = prompt(reader, "Command on panel tap", existing.Panel.Command)
	cfg.Panel.RefreshMS = existing.Panel.RefreshMS
	fmt.Println()

	if cfg.Panel.Content == config.PanelWeather {
		fmt.Println("-- Weather --")
		cfg.Weather.Lat = prompt(reader, "Weather latitude", existing.Weather.Lat)
		cfg.Weather.Lon = prompt(reader, "Weather longitude", existing.Weather.Lon)

		apiKey := promptSecret(reader, "OpenWeatherMap API key", existing.Weather.APIKey != "")
		if apiKey != "" {
			if err := config.SetKeychainSecret(config.KeyOpenWeatherMapAPIKey, apiKey); err != nil {
				return fmt.Errorf("storing API key in Keychain: %w", err)
			}
			fmt.Println("  -> Stored in Keychain")
		} else {
			fmt.Println("  -> Kept existing")
		}
		fmt.Println()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.WriteConfigFile(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Printf("Config written to %s\n", config.DefaultConfigPath())
	fmt.Println("Setup complete!")
	return nil
}

// prompt asks for a value with an optional default.
func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

// promptSecret asks for a secret value. If one already exists, allows keeping it.
func promptSecret(reader *bufio.Reader, label string, hasExisting bool) string {
	if hasExisting {
		fmt.Printf("  %s [press Enter to keep existing]: ", label)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
