// Package config provides configuration loading from YAML files, .env files,
// macOS Keychain and environment variables. Environment variables take
// precedence for dev flexibility.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/phinze/switchdeck/internal/device"
)

const (
	// KeychainService is the macOS Keychain service name for switchdeck secrets.
	KeychainService = "switchdeck"

	// Keychain account names for each secret.
	KeyOpenWeatherMapAPIKey = "openweathermap-api-key"
)

// Panel content kinds.
const (
	PanelNone    = ""
	PanelImage   = "image"
	PanelWeather = "weather"
)

// DefaultBrightness is used when the file sets none.
const DefaultBrightness = 80

// Config holds the full application configuration, assembled from YAML + Keychain + env.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Panel    PanelConfig    `yaml:"panel"`
	Keys     []KeyConfig    `yaml:"keys"`
	Weather  WeatherConfig  `yaml:"weather"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// DeviceConfig holds hardware settings.
type DeviceConfig struct {
	Brightness int `yaml:"brightness"`
}

// PanelConfig selects what the panel shows.
type PanelConfig struct {
	Content   string `yaml:"content"`
	Image     string `yaml:"image,omitempty"`
	RefreshMS int    `yaml:"refresh_ms,omitempty"`
	Command   string `yaml:"command,omitempty"` // run on tap
}

// KeyConfig binds one dynamic key.
type KeyConfig struct {
	Key     int    `yaml:"key"`
	Up      string `yaml:"up"`
	Down    string `yaml:"down,omitempty"`
	Command string `yaml:"command,omitempty"`
}

// ID returns the key as a device key ID.
func (k KeyConfig) ID() device.KeyID {
	return device.KeyID(k.Key)
}

// WeatherConfig holds weather panel configuration.
type WeatherConfig struct {
	Lat    string `yaml:"lat"`
	Lon    string `yaml:"lon"`
	APIKey string `yaml:"-"` // secret, not in YAML
}

// FeedbackConfig controls key press feedback.
type FeedbackConfig struct {
	Beep bool `yaml:"beep"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "switchdeck")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if p := os.Getenv("SWITCHDECK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load assembles configuration from YAML file + Keychain + environment variables.
// A .env file in the working directory or the config directory is loaded into
// the environment first. Returns a usable Config even if some sources are
// missing.
func Load() (*Config, error) {
	loadDotenv()

	cfg := &Config{}

	// 1. Try to load YAML config file
	configPath := DefaultConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	// 2. Layer in Keychain secrets (ignore errors, Keychain may not be populated)
	if key, err := keyring.Get(KeychainService, KeyOpenWeatherMapAPIKey); err == nil {
		cfg.Weather.APIKey = key
	}

	// 3. Environment variables override everything
	if v := os.Getenv("OPENWEATHERMAP_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_LAT"); v != "" {
		cfg.Weather.Lat = v
	}
	if v := os.Getenv("WEATHER_LON"); v != "" {
		cfg.Weather.Lon = v
	}
	if v := os.Getenv("SWITCHDECK_BRIGHTNESS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SWITCHDECK_BRIGHTNESS: %w", err)
		}
		cfg.Device.Brightness = n
	}
	if v := os.Getenv("SWITCHDECK_PANEL"); v != "" {
		cfg.Panel.Content = v
	}
	if v := os.Getenv("SWITCHDECK_BEEP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SWITCHDECK_BEEP: %w", err)
		}
		cfg.Feedback.Beep = b
	}

	if cfg.Device.Brightness == 0 {
		cfg.Device.Brightness = DefaultBrightness
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotenv loads .env files without overriding variables already set.
func loadDotenv() {
	for _, p := range []string{".env", filepath.Join(DefaultConfigDir(), ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Validate checks value ranges and key bindings.
func (c *Config) Validate() error {
	if c.Device.Brightness < 0 || c.Device.Brightness > 100 {
		return fmt.Errorf("device.brightness %d out of range 0..100", c.Device.Brightness)
	}

	switch strings.ToLower(c.Panel.Content) {
	case PanelNone, PanelWeather:
	case PanelImage:
		if c.Panel.Image == "" {
			return fmt.Errorf("panel.image is required for image content")
		}
	default:
		return fmt.Errorf("unknown panel.content %q", c.Panel.Content)
	}
	if c.Panel.RefreshMS < 0 {
		return fmt.Errorf("panel.refresh_ms must not be negative")
	}

	seen := make(map[int]bool)
	for _, k := range c.Keys {
		if !k.ID().Valid() {
			return fmt.Errorf("keys: key %d out of range 1..%d", k.Key, device.KeyCount)
		}
		if seen[k.Key] {
			return fmt.Errorf("keys: key %d bound twice", k.Key)
		}
		seen[k.Key] = true
	}
	return nil
}

// WriteConfigFile writes the non-secret portion of config to the YAML file.
func WriteConfigFile(cfg *Config) error {
	dir := filepath.Dir(DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(DefaultConfigPath(), data, 0o644)
}

// SetKeychainSecret stores a secret in the macOS Keychain.
func SetKeychainSecret(account, value string) error {
	// Delete first to avoid "already exists" errors on update
	_ = keyring.Delete(KeychainService, account)
	return keyring.Set(KeychainService, account, value)
}

// GetKeychainSecret retrieves a secret from the macOS Keychain.
func GetKeychainSecret(account string) (string, error) {
	return keyring.Get(KeychainService, account)
}
