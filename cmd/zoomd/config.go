package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"zoomfilter"
)

// Config is the top-level YAML configuration for the zoomd daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Frame source (what is being zoomed)
	Source SourceConfig `yaml:"source"`

	// Frame loop
	Render RenderConfig `yaml:"render"`

	// Zoom filter defaults (overridden by the settings file)
	Filter FilterConfig `yaml:"filter"`

	// Hotkey and pointer input devices
	Input InputConfig `yaml:"input"`

	// IPC configuration (used by zoom-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server (state websocket, frame snapshots)
	HTTP HTTPConfig `yaml:"http"`

	// Persisted user settings
	Settings SettingsConfig `yaml:"settings"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type SourceConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Image  string `yaml:"image,omitempty"` // PNG/JPEG/BMP/WebP; empty = checkerboard
}

type RenderConfig struct {
	FPS int `yaml:"fps"`
}

// FilterConfig is the user-facing filter configuration as represented in YAML.
//
// It maps 1:1 to zoomfilter.Settings, but uses names for enums.
type FilterConfig struct {
	ScaleFactor     float64 `yaml:"scale_factor"`
	SingleClickStep float64 `yaml:"single_click_step"`
	ContinuousStep  float64 `yaml:"continuous_step"`

	TrackingMode          string  `yaml:"tracking_mode"` // disabled|realtime|on_zoom_change
	TrackingSmoothEnabled bool    `yaml:"tracking_smooth_enabled"`
	TrackingSmoothness    float64 `yaml:"tracking_smoothness"`

	SmoothEnabled bool    `yaml:"smooth_enabled"`
	Smoothness    float64 `yaml:"smoothness"`
	SmoothingMode string  `yaml:"smoothing_mode"` // linear|exponential|logarithmic

	ResponseTimeMS  int `yaml:"response_time_ms"`
	AnimationTimeMS int `yaml:"animation_time_ms"`
	AutoResetTimeMS int `yaml:"auto_reset_time_ms"`

	StartSpeed      float64 `yaml:"start_speed"`
	EndDeceleration float64 `yaml:"end_deceleration"`
	Overshoot       float64 `yaml:"overshoot"`
}

type InputConfig struct {
	Devices []string `yaml:"devices,omitempty"` // keyboards/remotes and pointer devices; empty = no input

	ZoomInKey  int `yaml:"zoom_in_key"`
	ZoomOutKey int `yaml:"zoom_out_key"`
	ResetKey   int `yaml:"reset_key"`

	// Scroll wheel zooms in/out by single-click steps
	WheelZoom bool `yaml:"wheel_zoom"`

	// Virtual pointer bounds for relative motion
	ScreenWidth  int `yaml:"screen_width"`
	ScreenHeight int `yaml:"screen_height"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the HTTP server
}

type SettingsConfig struct {
	File            string `yaml:"file"` // empty keeps settings in memory only
	FlushIntervalMS int    `yaml:"flush_interval_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and zoomfilter.DefaultSettings.
func DefaultConfig() Config {
	d := zoomfilter.DefaultConfig()
	return Config{
		Source: SourceConfig{
			Width:  defaultSourceWidth,
			Height: defaultSourceHeight,
		},
		Render: RenderConfig{
			FPS: defaultRenderFPS,
		},
		Filter: FilterConfig{
			ScaleFactor:           d.ScaleFactor,
			SingleClickStep:       d.Control.SingleClickStep,
			ContinuousStep:        d.Control.ContinuousStep,
			TrackingMode:          d.Tracking.Mode.String(),
			TrackingSmoothEnabled: d.Tracking.SmoothingEnabled,
			TrackingSmoothness:    d.Tracking.Smoothness,
			SmoothEnabled:         d.Smoothing.Enabled,
			Smoothness:            d.Smoothing.Shape.Smoothness,
			SmoothingMode:         d.Smoothing.Curve.String(),
			ResponseTimeMS:        int(time.Duration(d.Control.ResponseInterval) / time.Millisecond),
			AnimationTimeMS:       int(time.Duration(d.Smoothing.Duration) / time.Millisecond),
			AutoResetTimeMS:       int(time.Duration(d.Control.IdleReset) / time.Millisecond),
			StartSpeed:            d.Smoothing.Shape.StartSpeed,
			EndDeceleration:       d.Smoothing.Shape.EndDeceleration,
			Overshoot:             d.Smoothing.Shape.Overshoot,
		},
		Input: InputConfig{
			ZoomInKey:    KEY_ZOOMIN,
			ZoomOutKey:   KEY_ZOOMOUT,
			ResetKey:     KEY_ZOOMRESET,
			ScreenWidth:  defaultScreenWidth,
			ScreenHeight: defaultScreenHeight,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocket,
		},
		HTTP: HTTPConfig{
			Addr: defaultHTTPAddr,
		},
		Settings: SettingsConfig{
			File:            defaultSettingsFile,
			FlushIntervalMS: defaultFlushIntervalMS,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var rest yaml.Node
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if non-nil.
type FlagOverrides struct {
	InputDevice *string

	SourceImage *string
	RenderFPS   *int

	ScaleFactor  *float64
	TrackingMode *string

	IPCSocketPath *string
	HTTPAddr      *string
	SettingsFile  *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a "zero value").
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}

	if o.SourceImage != nil {
		cfg.Source.Image = *o.SourceImage
	}
	if o.RenderFPS != nil {
		cfg.Render.FPS = *o.RenderFPS
	}

	if o.ScaleFactor != nil {
		cfg.Filter.ScaleFactor = *o.ScaleFactor
	}
	if o.TrackingMode != nil {
		cfg.Filter.TrackingMode = *o.TrackingMode
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.SettingsFile != nil {
		cfg.Settings.File = *o.SettingsFile
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
//
// Filter values are not range-checked beyond type-level sanity; the filter
// clamps them the same way it clamps values from the settings file.
func (c *Config) Validate() error {
	// Source
	if c.Source.Image == "" {
		if c.Source.Width <= 0 || c.Source.Height <= 0 {
			return errors.New("source.width and source.height must be > 0 when source.image is empty")
		}
	}

	// Render
	if c.Render.FPS <= 0 || c.Render.FPS > 1000 {
		return errors.New("render.fps must be between 1 and 1000")
	}

	// Filter
	if c.Filter.SingleClickStep < 0 {
		return errors.New("filter.single_click_step must be >= 0")
	}
	if c.Filter.ContinuousStep < 0 {
		return errors.New("filter.continuous_step must be >= 0")
	}
	if _, err := zoomfilter.ParseTrackingMode(c.Filter.TrackingMode); err != nil {
		return fmt.Errorf("filter.tracking_mode: %w", err)
	}
	if _, err := zoomfilter.ParseCurve(c.Filter.SmoothingMode); err != nil {
		return fmt.Errorf("filter.smoothing_mode: %w", err)
	}
	if c.Filter.ResponseTimeMS < 0 {
		return errors.New("filter.response_time_ms must be >= 0")
	}
	if c.Filter.AnimationTimeMS < 0 {
		return errors.New("filter.animation_time_ms must be >= 0")
	}
	if c.Filter.AutoResetTimeMS < 0 {
		return errors.New("filter.auto_reset_time_ms must be >= 0")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	for name, code := range map[string]int{
		"input.zoom_in_key":  c.Input.ZoomInKey,
		"input.zoom_out_key": c.Input.ZoomOutKey,
		"input.reset_key":    c.Input.ResetKey,
	} {
		if code <= 0 || code > 0x2ff {
			return fmt.Errorf("%s must be a key code between 1 and 767", name)
		}
	}
	if c.Input.ScreenWidth <= 0 || c.Input.ScreenHeight <= 0 {
		return errors.New("input.screen_width and input.screen_height must be > 0")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Settings
	if c.Settings.FlushIntervalMS <= 0 {
		return errors.New("settings.flush_interval_ms must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToSettings converts the filter section into a settings snapshot.
// Call Validate first; unparsable enum names fall back to defaults.
func (c *Config) ToSettings() zoomfilter.Settings {
	mode, _ := zoomfilter.ParseTrackingMode(c.Filter.TrackingMode)
	curve, _ := zoomfilter.ParseCurve(c.Filter.SmoothingMode)

	return zoomfilter.Settings{
		zoomfilter.KeyScaleFactor:           c.Filter.ScaleFactor,
		zoomfilter.KeySingleClickStep:       c.Filter.SingleClickStep,
		zoomfilter.KeyContinuousStep:        c.Filter.ContinuousStep,
		zoomfilter.KeyTrackingMode:          int(mode),
		zoomfilter.KeyTrackingSmoothEnabled: c.Filter.TrackingSmoothEnabled,
		zoomfilter.KeyTrackingSmoothness:    c.Filter.TrackingSmoothness,
		zoomfilter.KeySmoothEnabled:         c.Filter.SmoothEnabled,
		zoomfilter.KeySmoothness:            c.Filter.Smoothness,
		zoomfilter.KeySmoothingMode:         int(curve),
		zoomfilter.KeyResponseTime:          c.Filter.ResponseTimeMS,
		zoomfilter.KeyAnimationTime:         c.Filter.AnimationTimeMS,
		zoomfilter.KeyAutoResetTime:         c.Filter.AutoResetTimeMS,
		zoomfilter.KeyStartSpeed:            c.Filter.StartSpeed,
		zoomfilter.KeyEndDeceleration:       c.Filter.EndDeceleration,
		zoomfilter.KeyOvershoot:             c.Filter.Overshoot,
	}
}

// ToKeyMap converts the input section's key codes.
func (c *Config) ToKeyMap() keyMap {
	return keyMap{
		ZoomIn:  uint16(c.Input.ZoomInKey),
		ZoomOut: uint16(c.Input.ZoomOutKey),
		Reset:   uint16(c.Input.ResetKey),
		Wheel:   c.Input.WheelZoom,
	}
}

// FlushInterval returns the settings flush cadence.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Settings.FlushIntervalMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like settings.file.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
