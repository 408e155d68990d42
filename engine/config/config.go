// Package config loads the YAML configuration of the flowers renderer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTitle           = "Flowers"
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultBackend         = "wgpu"
	DefaultPresentMode     = "vsync"
	DefaultRefreshRate     = 60.0
	DefaultPixelRatio      = 1.0
	DefaultBackgroundColor = "#ffffff"
	DefaultTimeOffset      = 0.9
	DefaultOpeningX        = 0.65
	DefaultOpeningY        = 0.3
	DefaultLogLevel        = "info"
	MaxPixelRatio          = 2.0
)

// Config is the full renderer configuration. Keys absent from a YAML file keep their defaults.
type Config struct {
	Title             string       `yaml:"title"`
	Width             int          `yaml:"width"`
	Height            int          `yaml:"height"`
	Backend           string       `yaml:"backend"`
	PresentMode       string       `yaml:"present_mode"`
	RefreshRate       float64      `yaml:"refresh_rate"`
	PixelRatio        float64      `yaml:"pixel_ratio"`
	BackgroundColor   string       `yaml:"background_color"`
	TimeOffset        float64      `yaml:"time_offset"`
	PauseFreezesClock bool         `yaml:"pause_freezes_clock"`
	Seed              uint64       `yaml:"seed"`
	OpeningStamp      OpeningStamp `yaml:"opening_stamp"`
	DemoStamps        []TimedStamp `yaml:"demo_stamps"`
	Profiling         bool         `yaml:"profiling"`
	LogLevel          string       `yaml:"log_level"`
}

// OpeningStamp is the stamp requested before the first frame.
type OpeningStamp struct {
	Enabled bool    `yaml:"enabled"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
}

// TimedStamp is a stamp requested AfterMS milliseconds after the scheduler starts.
// X and Y are normalized surface coordinates with y pointing down.
type TimedStamp struct {
	AfterMS int     `yaml:"after_ms"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Title:             DefaultTitle,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		Backend:           DefaultBackend,
		PresentMode:       DefaultPresentMode,
		RefreshRate:       DefaultRefreshRate,
		PixelRatio:        DefaultPixelRatio,
		BackgroundColor:   DefaultBackgroundColor,
		TimeOffset:        DefaultTimeOffset,
		PauseFreezesClock: true,
		OpeningStamp: OpeningStamp{
			Enabled: true,
			X:       DefaultOpeningX,
			Y:       DefaultOpeningY,
		},
		DemoStamps: []TimedStamp{
			{AfterMS: 400, X: 0.75, Y: 0.5},
			{AfterMS: 700, X: 0.4, Y: 0.5},
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML file over DefaultConfig and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks enumerations and ranges, and clamps the pixel ratio into [1, MaxPixelRatio].
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("width and height must not be negative, got %dx%d", c.Width, c.Height))
	}
	switch c.Backend {
	case "wgpu", "software":
	default:
		errs = append(errs, fmt.Errorf("backend must be wgpu or software, got %q", c.Backend))
	}
	switch c.PresentMode {
	case "vsync", "uncapped":
	default:
		errs = append(errs, fmt.Errorf("present_mode must be vsync or uncapped, got %q", c.PresentMode))
	}
	if c.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("refresh_rate must be positive, got %v", c.RefreshRate))
	}
	if _, err := common.ParseHexRGB(c.BackgroundColor); err != nil {
		errs = append(errs, fmt.Errorf("background_color: %w", err))
	}
	if c.TimeOffset < 0 {
		errs = append(errs, fmt.Errorf("time_offset must not be negative, got %v", c.TimeOffset))
	}
	for i, s := range c.DemoStamps {
		if s.AfterMS < 0 {
			errs = append(errs, fmt.Errorf("demo_stamps[%d].after_ms must not be negative", i))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if math.IsNaN(c.PixelRatio) {
		c.PixelRatio = DefaultPixelRatio
	}
	c.PixelRatio = common.Clamp(c.PixelRatio, 1, MaxPixelRatio)
	return errors.Join(errs...)
}

// Background returns the parsed background color, or white if it does not parse.
func (c *Config) Background() common.RGB {
	rgb, err := common.ParseHexRGB(c.BackgroundColor)
	if err != nil {
		return common.White
	}
	return rgb
}

// SlogLevel maps log_level onto a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
