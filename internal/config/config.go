// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvResourceName overrides Bridge.ResourceName when set.
const EnvResourceName = "REQHUD_RESOURCE_NAME"

// ResourcePlaceholder is substituted with the resource name in CallbackBaseURL.
const ResourcePlaceholder = "{resource}"

// Config is the configuration for reqhudd.
// Loaded from ~/.config/reqhud/reqhudd.toml
type Config struct {
	Countdown CountdownConfig `toml:"countdown"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Display   DisplayConfig   `toml:"display"`
	Keys      KeysConfig      `toml:"keys"`
	Audio     AudioConfig     `toml:"audio"`
	Theme     ThemeConfig     `toml:"theme"`
	DBus      DBusConfig      `toml:"dbus"`
}

// CountdownConfig controls how long a request stays on screen.
type CountdownConfig struct {
	Duration          Duration `toml:"duration"`           // Total time before auto-decline
	ExpiringThreshold Duration `toml:"expiring_threshold"` // Remaining time that switches to the expiring look
	Tick              Duration `toml:"tick"`               // Interval between decrements
}

// BridgeConfig controls the host message bridge.
type BridgeConfig struct {
	Listen          string   `toml:"listen"`            // Inbound HTTP address
	ResourceName    string   `toml:"resource_name"`     // Host resource that receives callbacks
	CallbackBaseURL string   `toml:"callback_base_url"` // e.g. "https://{resource}"
	CallbackName    string   `toml:"callback_name"`     // Path segment of the callback
	Timeout         Duration `toml:"timeout"`           // Per-callback HTTP timeout
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	Frontend string `toml:"frontend"` // "gtk", "tui" or "none"
	Position string `toml:"position"` // "top-right", "top-center", etc.
	OffsetX  int    `toml:"offset_x"` // Pixels from screen edge
	OffsetY  int    `toml:"offset_y"` // Pixels from screen edge
	Width    int    `toml:"width"`    // Overlay width in pixels (gtk) or cells (tui)
}

// KeysConfig contains keyboard settings.
type KeysConfig struct {
	Accept     string `toml:"accept"`
	Decline    string `toml:"decline"`
	GlobalHook bool   `toml:"global_hook"` // Listen for keys system-wide
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-event sound file paths.
type SoundConfig struct {
	Show     string `toml:"show"`
	Expiring string `toml:"expiring"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// DBusConfig contains D-Bus bridge settings.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

// Frontend selects how the overlay is drawn.
type Frontend string

const (
	FrontendGTK  Frontend = "gtk"
	FrontendTUI  Frontend = "tui"
	FrontendNone Frontend = "none"
)

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// Position represents an overlay position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Countdown: CountdownConfig{
			Duration:          Duration(30 * time.Second),
			ExpiringThreshold: Duration(10 * time.Second),
			Tick:              Duration(time.Second),
		},
		Bridge: BridgeConfig{
			Listen:          "127.0.0.1:30120",
			CallbackBaseURL: "https://" + ResourcePlaceholder,
			CallbackName:    "respondToRequest",
			Timeout:         Duration(5 * time.Second),
		},
		Display: DisplayConfig{
			Frontend: string(FrontendGTK),
			Position: string(PositionTopCenter),
			OffsetX:  0,
			OffsetY:  40,
			Width:    420,
		},
		Keys: KeysConfig{
			Accept:  "y",
			Decline: "n",
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  80,
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
	}
}

// ConfigPath returns the path to the daemon config file.
func ConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "reqhud", "reqhudd.toml"), nil
}

// Load loads the configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path, overlaying it on the defaults.
// Environment overrides are applied after the file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if name := strings.TrimSpace(os.Getenv(EnvResourceName)); name != "" {
		c.Bridge.ResourceName = name
	}
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	cd := c.Countdown
	if cd.Tick.Duration() <= 0 {
		return fmt.Errorf("countdown tick must be positive, got %s", cd.Tick.Duration())
	}
	if cd.Duration.Duration() < cd.Tick.Duration() {
		return fmt.Errorf("countdown duration %s must be at least one tick (%s)", cd.Duration.Duration(), cd.Tick.Duration())
	}
	if cd.ExpiringThreshold.Duration() < 0 || cd.ExpiringThreshold.Duration() > cd.Duration.Duration() {
		return fmt.Errorf("expiring_threshold must be between 0 and %s, got %s", cd.Duration.Duration(), cd.ExpiringThreshold.Duration())
	}

	if c.Bridge.CallbackName == "" {
		return errors.New("bridge callback_name cannot be empty")
	}
	if c.Bridge.Timeout.Duration() <= 0 {
		return fmt.Errorf("bridge timeout must be positive, got %s", c.Bridge.Timeout.Duration())
	}

	switch Frontend(c.Display.Frontend) {
	case FrontendGTK, FrontendTUI, FrontendNone:
	default:
		return fmt.Errorf("invalid frontend %q, must be one of: gtk, tui, none", c.Display.Frontend)
	}

	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}
	if c.Display.Width < 20 || c.Display.Width > 2000 {
		return fmt.Errorf("width must be between 20 and 2000, got %d", c.Display.Width)
	}

	if len([]rune(c.Keys.Accept)) != 1 || len([]rune(c.Keys.Decline)) != 1 {
		return fmt.Errorf("accept and decline keys must be single characters, got %q and %q", c.Keys.Accept, c.Keys.Decline)
	}
	if strings.EqualFold(c.Keys.Accept, c.Keys.Decline) {
		return fmt.Errorf("accept and decline keys must differ, both are %q", c.Keys.Accept)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	switch ColorScheme(c.Theme.ColorScheme) {
	case ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark:
	default:
		return fmt.Errorf("invalid color_scheme %q", c.Theme.ColorScheme)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
