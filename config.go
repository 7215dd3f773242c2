package gpubench

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/gekko3d/gpubench/loadtest/lt/core"
)

const DefaultInstanceCount = 200_000

// Config holds everything the load test host needs before the first frame.
type Config struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	InstanceCount int
	Mode          core.BenchmarkMode
	Style         core.RenderStyle

	// Auto-rotation speed in radians per second while the mouse is up.
	AutoRotateX float32
	AutoRotateY float32
	// Radians of rotation per pixel of mouse drag.
	DragSensitivity float32

	TexturePath string
	ScriptPath  string
	ReportPath  string
	MaxFrames   int

	VSync bool
	// LegacySingleInstance clamps every draw to one instance.
	LegacySingleInstance bool
	ValidateShaders      bool
	Debug                bool

	HUDInterval       time.Duration
	FPSSampleInterval int
}

func DefaultConfig() Config {
	return Config{
		WindowWidth:       1280,
		WindowHeight:      720,
		WindowTitle:       "GPU Load Test",
		InstanceCount:     DefaultInstanceCount,
		Mode:              core.ModeCPUTransform,
		Style:             core.StyleColored,
		AutoRotateX:       0.4,
		AutoRotateY:       0.6,
		DragSensitivity:   0.01,
		VSync:             true,
		HUDInterval:       250 * time.Millisecond,
		FPSSampleInterval: 20,
	}
}

// RegisterFlags binds the config fields to fs. Current values are the defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.WindowWidth, "width", c.WindowWidth, "window width in pixels")
	fs.IntVar(&c.WindowHeight, "height", c.WindowHeight, "window height in pixels")
	fs.StringVar(&c.WindowTitle, "title", c.WindowTitle, "window title")
	fs.IntVar(&c.InstanceCount, "instances", c.InstanceCount, "number of cube instances")

	fs.Func("mode", "initial benchmark mode: cpu, gpu, compute, render, combined or 1-5 (default cpu)", func(s string) error {
		m, err := core.ParseModeName(s)
		if err != nil {
			return err
		}
		c.Mode = m
		return nil
	})
	fs.Func("style", "initial render style: colored, textured, lit or 1-3 (default colored)", func(s string) error {
		st, err := core.ParseStyleName(s)
		if err != nil {
			return err
		}
		c.Style = st
		return nil
	})

	fs.Func("rotate", "auto-rotation speed as x,y radians per second (default 0.4,0.6)", func(s string) error {
		var x, y float32
		if _, err := fmt.Sscanf(s, "%g,%g", &x, &y); err != nil {
			return fmt.Errorf("rotate: want x,y: %w", err)
		}
		c.AutoRotateX, c.AutoRotateY = x, y
		return nil
	})

	fs.StringVar(&c.TexturePath, "texture", c.TexturePath, "image used by the textured style (png, jpeg, bmp, webp)")
	fs.StringVar(&c.ScriptPath, "script", c.ScriptPath, "Lua scenario script")
	fs.StringVar(&c.ReportPath, "report", c.ReportPath, "write a JSON report to this path on exit")
	fs.IntVar(&c.MaxFrames, "frames", c.MaxFrames, "stop after this many frames (0 runs until the window closes)")
	fs.BoolVar(&c.VSync, "vsync", c.VSync, "present with vsync (fifo)")
	fs.BoolVar(&c.LegacySingleInstance, "legacy-single-instance", c.LegacySingleInstance, "draw one instance per frame regardless of the instance count")
	fs.BoolVar(&c.ValidateShaders, "validate-shaders", c.ValidateShaders, "compile shaders with naga at startup and log problems")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	fs.DurationVar(&c.HUDInterval, "hud-interval", c.HUDInterval, "HUD refresh interval")
	fs.IntVar(&c.FPSSampleInterval, "fps-sample", c.FPSSampleInterval, "sample FPS every N frames")
}

func (c Config) Validate() error {
	var errs []error
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight))
	}
	if c.InstanceCount <= 0 {
		errs = append(errs, fmt.Errorf("instance count must be positive, got %d", c.InstanceCount))
	}
	if !c.Mode.Valid() {
		errs = append(errs, &core.InvalidValueError{Kind: "benchmark mode", Value: int(c.Mode)})
	}
	if !c.Style.Valid() {
		errs = append(errs, &core.InvalidValueError{Kind: "render style", Value: int(c.Style)})
	}
	if c.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("frame limit must not be negative, got %d", c.MaxFrames))
	}
	if c.FPSSampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("fps sample interval must be positive, got %d", c.FPSSampleInterval))
	}
	if c.HUDInterval < 0 {
		errs = append(errs, fmt.Errorf("hud interval must not be negative, got %s", c.HUDInterval))
	}
	return errors.Join(errs...)
}

// DrawInstanceLimit is the largest instance count a draw may use.
func (c Config) DrawInstanceLimit() int {
	if c.LegacySingleInstance {
		return 1
	}
	return c.InstanceCount
}
