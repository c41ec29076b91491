// Package profile applies the configured key bindings and panel content to a
// device session.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/phinze/switchdeck/internal/config"
	"github.com/phinze/switchdeck/internal/device"
	"github.com/phinze/switchdeck/internal/keys"
	"github.com/phinze/switchdeck/internal/session"
	"github.com/phinze/switchdeck/internal/weather"
)

// WeatherRefresh is the panel push interval for weather content when the
// config sets none. Frames only change when a new report arrives.
const WeatherRefresh = time.Second

// Options override side effects, mainly for tests.
type Options struct {
	// Run executes a configured command. Defaults to sh -c.
	Run func(command string) error

	// Beep plays the key click. Defaults to a short system beep.
	Beep func() error

	// Weather overrides the client built from the config.
	Weather *weather.Client
}

// Profile is an applied configuration. Close stops its background work.
type Profile struct {
	cfg  *config.Config
	sess *session.Session
	opts Options

	cancel  context.CancelFunc
	unbinds []func()
}

// Apply sets brightness, enables the configured keys and starts the panel
// content. Keys or panel content that fail are logged and skipped; the
// joined failures are returned with a usable profile.
func Apply(ctx context.Context, s *session.Session, cfg *config.Config, opts Options) (*Profile, error) {
	if opts.Run == nil {
		opts.Run = runShell
	}
	if opts.Beep == nil {
		opts.Beep = beep
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Profile{cfg: cfg, sess: s, opts: opts, cancel: cancel}

	var errs []error
	if err := s.Device().SetBrightness(byte(cfg.Device.Brightness)); err != nil {
		errs = append(errs, fmt.Errorf("set brightness: %w", err))
	}

	for _, kc := range cfg.Keys {
		if _, err := s.Keys().Enable(kc.ID(), keys.Options{
			Up:         kc.Up,
			Down:       kc.Down,
			OnReleased: p.released(kc),
			Replace:    true,
		}); err != nil {
			log.Printf("Key %s failed to enable: %v (skipping)", kc.ID(), err)
			errs = append(errs, err)
		}
	}

	if err := p.applyPanel(ctx); err != nil {
		log.Printf("Panel content failed: %v (skipping)", err)
		errs = append(errs, err)
	}

	if cfg.Panel.Command != "" {
		p.unbinds = append(p.unbinds, s.OnGesture(func(g device.Gesture) {
			if g.Type == device.GestureTap {
				p.exec(cfg.Panel.Command)
			}
		}))
	}

	return p, errors.Join(errs...)
}

func (p *Profile) applyPanel(ctx context.Context) error {
	content := p.cfg.Panel.Content
	if content == config.PanelNone {
		return nil
	}
	panel := p.sess.Panel()
	if panel == nil {
		return fmt.Errorf("panel content %q: %w", content, device.ErrNotSupported)
	}

	switch content {
	case config.PanelImage:
		return panel.SetImage(p.cfg.Panel.Image)
	case config.PanelWeather:
		client := p.opts.Weather
		if client == nil {
			var err error
			if client, err = weather.ClientFromConfig(p.cfg); err != nil {
				return fmt.Errorf("weather: %w", err)
			}
		}
		wp, err := weather.NewPanel(client, panel.Surface().Bounds())
		if err != nil {
			return err
		}
		go wp.Run(ctx)

		refresh := WeatherRefresh
		if p.cfg.Panel.RefreshMS > 0 {
			refresh = time.Duration(p.cfg.Panel.RefreshMS) * time.Millisecond
		}
		return panel.SetBitmapSource(wp, refresh)
	default:
		return fmt.Errorf("unknown panel content %q", content)
	}
}

func (p *Profile) released(kc config.KeyConfig) func(keys.Event) {
	return func(ev keys.Event) {
		if p.cfg.Feedback.Beep {
			go func() {
				if err := p.opts.Beep(); err != nil {
					log.Printf("Beep failed: %v", err)
				}
			}()
		}
		if kc.Command != "" {
			log.Printf("Key %s released: %s", ev.Key, kc.Command)
			p.exec(kc.Command)
		}
	}
}

// exec runs a command in the background so input handling never waits on it.
func (p *Profile) exec(command string) {
	go func() {
		if err := p.opts.Run(command); err != nil {
			log.Printf("Command %q failed: %v", command, err)
		}
	}()
}

// Close stops the panel content's background work and gesture bindings.
// Device state is left to the session.
func (p *Profile) Close() {
	p.cancel()
	for _, unbind := range p.unbinds {
		unbind()
	}
	p.unbinds = nil
}

func runShell(command string) error {
	return exec.Command("sh", "-c", command).Run()
}

func beep() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration/2)
}
