package app

import (
	"fmt"
	"image"
	"os"
	"time"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/gpu"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"
	"github.com/gekko3d/gpubench/loadtest/lt/hal/wgpuhal"
	"github.com/gekko3d/gpubench/loadtest/lt/shaders"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/google/uuid"
)

const cpuScope = "benchmark"

// App is the frame loop: it owns the GPU objects, turns window input into
// a FrameInput per frame, runs the controller and publishes timings.
type App struct {
	Config gpubench.Config
	Logger gpubench.Logger
	RunID  string
	Window *glfw.Window

	Input    *InputState
	Clock    *gpubench.FrameClock
	Profiler *Profiler
	HUD      *HUD
	Scenario *Scenario

	device     hal.Device
	renderer   *gpu.Renderer
	compute    *gpu.ComputeEngine
	controller *gpu.BenchmarkController

	timing  core.FrameTiming
	started time.Time
	stopped bool
	err     error
	now     func() time.Time
}

func NewApp(window *glfw.Window, cfg gpubench.Config, logger gpubench.Logger) *App {
	a := &App{
		Config:   cfg,
		Logger:   gpubench.OrNop(logger),
		RunID:    uuid.NewString(),
		Window:   window,
		Input:    NewInputState(cfg.Mode, cfg.Style, cfg.AutoRotateX, cfg.AutoRotateY, cfg.DragSensitivity),
		Clock:    gpubench.NewFrameClock(cfg.FPSSampleInterval),
		Profiler: NewProfiler(),
		now:      time.Now,
	}
	opts := HUDOptions{Title: cfg.WindowTitle, Interval: cfg.HUDInterval, Out: os.Stdout}
	if window != nil {
		opts.SetTitle = window.SetTitle
	}
	a.HUD = NewHUD(opts)
	return a
}

// Init opens the WebGPU device on the window and builds the benchmark.
func (a *App) Init() error {
	img, err := a.loadTexture()
	if err != nil {
		return err
	}
	dev, surf, err := wgpuhal.Open(a.Window, a.Config.VSync, a.Logger)
	if err != nil {
		return err
	}
	if err := a.initCore(dev, surf, img); err != nil {
		a.Close()
		return err
	}
	return nil
}

func (a *App) loadTexture() (*image.RGBA, error) {
	if a.Config.TexturePath == "" {
		a.Logger.Debugf("no texture configured, using procedural crate")
		return CrateTexture(), nil
	}
	img, err := LoadTexture(a.Config.TexturePath, MaxTextureSize)
	if err != nil {
		return nil, err
	}
	a.Logger.Infof("texture %s: %dx%d", a.Config.TexturePath, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func (a *App) initCore(dev hal.Device, surf hal.Surface, img *image.RGBA) error {
	a.device = dev
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sources := shaders.Default()
	if a.Config.ValidateShaders {
		a.validateShaders(sources)
	}
	programs, err := sources.RenderPrograms()
	if err != nil {
		return core.ResourceError("render programs", err)
	}

	a.renderer, err = gpu.NewRenderer(dev, surf, gpu.RendererOptions{
		Programs:      programs,
		Texture:       img,
		InstanceLimit: a.Config.DrawInstanceLimit(),
		Logger:        a.Logger,
	})
	if err != nil {
		return err
	}
	a.compute, err = gpu.NewComputeEngine(dev, sources.Compute, a.Logger)
	if err != nil {
		return err
	}
	a.controller, err = gpu.NewBenchmarkController(dev, a.renderer, a.compute, a.Config.InstanceCount, a.Logger)
	if err != nil {
		return err
	}

	if a.Config.LegacySingleInstance {
		a.Logger.Warnf("legacy single-instance draw: %d matrices are computed but only one cube is drawn", a.Config.InstanceCount)
	}
	if a.Config.ScriptPath != "" {
		a.Scenario, err = LoadScenario(a.Config.ScriptPath, a.Config.InstanceCount, a.Logger)
		if err != nil {
			return err
		}
	}

	a.Profiler.SetCount("instances", a.Config.InstanceCount)
	a.started = a.now()
	a.Clock.Reset(a.started)
	a.Logger.Infof("run %s: %d instances, %s, %s", a.RunID, a.Config.InstanceCount, a.Input.Mode, a.Input.Style)
	return nil
}

func (a *App) validateShaders(sources shaders.Sources) {
	problems, err := sources.Validate()
	for _, p := range problems {
		if p.Unsupported {
			a.Logger.Debugf("shader validation %s", p)
		} else {
			a.Logger.Warnf("shader validation %s", p)
		}
	}
	if err == nil {
		a.Logger.Infof("shader validation passed")
	}
}

// Done reports whether the loop should stop: a frame failed, the frame
// limit was reached, a scenario asked to stop or Stop was called.
func (a *App) Done() bool { return a.stopped || a.err != nil }

func (a *App) Stop() { a.stopped = true }

// Err is the error that stopped the loop, if any.
func (a *App) Err() error { return a.err }

func (a *App) Timing() core.FrameTiming { return a.timing }

func (a *App) fail(err error) error {
	a.err = err
	a.Logger.Errorf("frame %d: %v", a.Clock.Frame, err)
	return err
}

// Frame runs one frame. After a failure every later call returns the same
// error without touching the GPU.
func (a *App) Frame() error {
	if a.err != nil {
		return a.err
	}
	if a.stopped {
		return nil
	}

	a.Profiler.Reset()
	dt := a.Clock.TickAt(a.now())
	a.Input.Advance(a.Clock.DtSeconds())

	if a.Scenario != nil {
		step, err := a.Scenario.Step(a.Clock.Frame, a.Clock.Time.Sub(a.started).Seconds())
		if err != nil {
			return a.fail(err)
		}
		a.applyStep(step)
		if step.Stop {
			a.Logger.Infof("scenario finished at frame %d", a.Clock.Frame)
			a.stopped = true
			return nil
		}
	}

	in := a.Input.Snapshot()
	a.Profiler.BeginScope(cpuScope)
	err := a.controller.RunFrame(in)
	cpu := a.Profiler.EndScope(cpuScope)
	if err != nil {
		return a.fail(err)
	}

	cpuMs := float64(cpu.Microseconds()) / 1000.0
	a.timing = core.FrameTiming{FPS: a.Clock.FPS, CPUMs: cpuMs}
	a.Profiler.Record(in, dt, cpuMs)
	a.HUD.Update(a.Clock.Time, a.timing, in, a.Config.InstanceCount)

	if a.Config.MaxFrames > 0 && a.Clock.Frame >= uint64(a.Config.MaxFrames) {
		a.Logger.Infof("frame limit %d reached", a.Config.MaxFrames)
		a.stopped = true
	}
	return nil
}

func (a *App) applyStep(step ScenarioStep) {
	if step.Mode != 0 && step.Mode != a.Input.Mode {
		a.Input.Mode = step.Mode
		a.Logger.Infof("scenario: mode %s", step.Mode)
	}
	if step.Style != 0 && step.Style != a.Input.Style {
		a.Input.Style = step.Style
		a.Logger.Infof("scenario: style %s", step.Style)
	}
}

// Run drives Frame until Done or shouldClose. poll is called before every
// frame to deliver window events.
func (a *App) Run(shouldClose func() bool, poll func()) error {
	for !a.Done() && !shouldClose() {
		poll()
		if err := a.Frame(); err != nil {
			return err
		}
	}
	return a.err
}

// Resize follows the framebuffer. A failed reconfigure stops the loop.
func (a *App) Resize(width, height int) {
	if a.renderer == nil || a.err != nil {
		return
	}
	if err := a.renderer.Resize(width, height); err != nil {
		a.fail(core.SubmissionError("resize surface", err))
		return
	}
	a.Logger.Debugf("resized to %dx%d", width, height)
}

// HandleKey applies bound keys on press, and speed keys also on repeat.
func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	if action == glfw.Release {
		return
	}
	if action == glfw.Repeat && !isSpeedKey(key) {
		return
	}
	mode, style := a.Input.Mode, a.Input.Style
	if !a.Input.HandleKey(key) {
		return
	}
	switch {
	case a.Input.Mode != mode:
		a.Logger.Infof("mode: %s", a.Input.Mode)
	case a.Input.Style != style:
		a.Logger.Infof("render style: %s", a.Input.Style)
	default:
		a.Logger.Debugf("auto-rotate: %.3f, %.3f rad/s", a.Input.AutoX, a.Input.AutoY)
	}
}

func isSpeedKey(key glfw.Key) bool {
	switch key {
	case glfw.KeyEqual, glfw.KeyKPAdd, glfw.KeyMinus, glfw.KeyKPSubtract:
		return true
	}
	return false
}

// HandleMouseButton drags with the left button.
func (a *App) HandleMouseButton(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		a.Input.BeginDrag()
	case glfw.Release:
		a.Input.EndDrag()
	}
}

func (a *App) HandleCursor(x, y float64) {
	a.Input.MoveCursor(x, y)
}

// Report summarizes the run so far.
func (a *App) Report() Report {
	return a.Profiler.Report(a.RunID, a.Config.InstanceCount)
}

// Close releases GPU objects in reverse creation order. Safe to call twice.
func (a *App) Close() {
	a.HUD.Finish()
	if a.Scenario != nil {
		a.Scenario.Close()
		a.Scenario = nil
	}
	if a.controller != nil {
		a.controller.Release()
		a.controller = nil
	}
	if a.compute != nil {
		a.compute.Release()
		a.compute = nil
	}
	if a.renderer != nil {
		a.renderer.Release()
		a.renderer = nil
	}
	if a.device != nil {
		a.device.Release()
		a.device = nil
	}
}
