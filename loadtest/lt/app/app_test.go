package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/gpu"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"
	"github.com/gekko3d/gpubench/loadtest/lt/hal/haltest"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appRig struct {
	app  *App
	dev  *haltest.Device
	surf *haltest.Surface
	logs *bytes.Buffer
	now  time.Time
}

func newAppRig(t *testing.T, mutate func(*gpubench.Config)) *appRig {
	t.Helper()
	cfg := gpubench.DefaultConfig()
	cfg.InstanceCount = 8
	cfg.HUDInterval = 0
	cfg.FPSSampleInterval = 1
	if mutate != nil {
		mutate(&cfg)
	}

	r := &appRig{
		dev:  haltest.NewDevice(),
		surf: haltest.NewSurface(640, 480),
		logs: &bytes.Buffer{},
		now:  time.Unix(1000, 0),
	}
	r.app = NewApp(nil, cfg, gpubench.NewLogger(r.logs, r.logs, "lt", true))
	r.app.HUD = NewHUD(HUDOptions{Title: cfg.WindowTitle})
	r.app.now = func() time.Time { return r.now }

	require.NoError(t, r.app.initCore(r.dev, r.surf, nil))
	r.dev.ResetCommands()
	t.Cleanup(r.app.Close)
	return r
}

func (r *appRig) frame(t *testing.T) {
	t.Helper()
	r.now = r.now.Add(10 * time.Millisecond)
	require.NoError(t, r.app.Frame())
}

func TestApp_FrameRunsSelectedMode(t *testing.T) {
	r := newAppRig(t, nil)

	r.frame(t)
	require.Len(t, r.dev.Draws, 1)
	assert.Equal(t, uint32(8), r.dev.Draws[0].InstanceCount)
	assert.Equal(t, 1, r.dev.Submits)
	assert.Equal(t, 1, r.surf.Presents)
	assert.InDelta(t, 0.004, r.app.Input.AngleX, 1e-6)
	assert.InDelta(t, 0.006, r.app.Input.AngleY, 1e-6)
	assert.InDelta(t, 100.0, r.app.Timing().FPS, 1e-6)
	assert.Zero(t, r.app.Timing().GPUMs)
	assert.Contains(t, r.app.HUD.Text(), "Mode: CPU Transform Mode")

	r.app.HandleKey(glfw.Key3, glfw.Press)
	r.frame(t)
	require.Len(t, r.dev.Dispatches, 1)
	assert.Equal(t, uint32(gpu.HeavyWorkgroups), r.dev.Dispatches[0].X)
	assert.Len(t, r.dev.Draws, 1, "compute-only frames do not draw")
	assert.Equal(t, 2, r.dev.Submits)
	assert.Equal(t, 1, r.surf.Presents)
	assert.Contains(t, r.logs.String(), "mode: Compute-Only Mode")
}

func TestApp_FrameLimit(t *testing.T) {
	r := newAppRig(t, func(c *gpubench.Config) { c.MaxFrames = 3 })

	polls := 0
	err := r.app.Run(func() bool { return false }, func() {
		polls++
		r.now = r.now.Add(16 * time.Millisecond)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, 3, r.dev.Submits)
	assert.Equal(t, uint64(3), r.app.Profiler.Frames())
	assert.True(t, r.app.Done())

	require.NoError(t, r.app.Frame())
	assert.Equal(t, 3, r.dev.Submits)
}

func TestApp_RunStopsWhenWindowCloses(t *testing.T) {
	r := newAppRig(t, nil)
	frames := 0
	require.NoError(t, r.app.Run(func() bool { return frames == 2 }, func() { frames++ }))
	assert.Equal(t, 2, r.dev.Submits)
}

func TestApp_SubmissionFailureStopsLoop(t *testing.T) {
	r := newAppRig(t, nil)
	r.dev.Fail(haltest.OpSubmit, errors.New("device lost"))

	err := r.app.Run(func() bool { return false }, func() {})
	require.ErrorIs(t, err, core.ErrSubmission)
	assert.ErrorContains(t, err, "device lost")
	assert.True(t, r.app.Done())
	assert.Equal(t, err, r.app.Err())

	r.dev.Fail(haltest.OpSubmit, nil)
	assert.Equal(t, err, r.app.Frame(), "no frames are scheduled after a failure")
	assert.Zero(t, r.dev.Submits)
	assert.Contains(t, r.logs.String(), "ERROR")
}

func TestApp_DeviceLossStopsLoop(t *testing.T) {
	r := newAppRig(t, nil)
	r.frame(t)

	r.dev.Lose("unknown", "driver reset")
	err := r.app.Run(func() bool { return false }, func() { r.now = r.now.Add(10 * time.Millisecond) })
	require.ErrorIs(t, err, core.ErrSubmission)
	assert.ErrorIs(t, err, hal.ErrDeviceLost)
	assert.True(t, r.app.Done())
	assert.Equal(t, 1, r.dev.Submits)
}

func TestApp_FrameResetsScopes(t *testing.T) {
	r := newAppRig(t, nil)
	r.app.Profiler.BeginScope("stale")
	r.app.Profiler.Scopes["stale"] = 5 * time.Millisecond

	r.frame(t)
	assert.Zero(t, r.app.Profiler.Scopes["stale"])
	assert.Contains(t, r.app.Profiler.Order, cpuScope)
	assert.InDelta(t, 0.01, r.app.Clock.DtSeconds(), 1e-9)
}

func TestApp_Scenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.lua")
	script := `
function frame(n, t)
  if n == 1 then return "compute" end
  if n == 3 then return "render", "lit", true end
end`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	r := newAppRig(t, func(c *gpubench.Config) { c.ScriptPath = path })

	require.NoError(t, r.app.Run(func() bool { return false }, func() { r.now = r.now.Add(time.Millisecond) }))
	assert.Equal(t, 2, r.dev.Submits)
	assert.Len(t, r.dev.Dispatches, 2)
	assert.Equal(t, 2, r.app.Profiler.Stats(core.ModeComputeOnly).Frames)
	assert.Equal(t, core.StyleLit, r.app.Input.Style)
	assert.Contains(t, r.logs.String(), "scenario finished at frame 3")
}

func TestApp_ScenarioErrorStopsLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function frame(n, t) return 42 end`), 0o644))
	r := newAppRig(t, func(c *gpubench.Config) { c.ScriptPath = path })

	var inv *core.InvalidValueError
	require.ErrorAs(t, r.app.Frame(), &inv)
	assert.Zero(t, r.dev.Submits)
}

func TestApp_LegacySingleInstance(t *testing.T) {
	r := newAppRig(t, func(c *gpubench.Config) { c.LegacySingleInstance = true })
	r.frame(t)
	require.Len(t, r.dev.Draws, 1)
	assert.Equal(t, uint32(1), r.dev.Draws[0].InstanceCount)
	assert.Contains(t, r.logs.String(), "legacy single-instance draw")
}

func TestApp_InitRejectsInvalidConfig(t *testing.T) {
	cfg := gpubench.DefaultConfig()
	cfg.InstanceCount = 0
	a := NewApp(nil, cfg, nil)
	err := a.initCore(haltest.NewDevice(), haltest.NewSurface(8, 8), nil)
	assert.ErrorContains(t, err, "instance count must be positive")
	a.Close()
}

func TestApp_InitResourceFailure(t *testing.T) {
	dev := haltest.NewDevice()
	dev.Fail(haltest.OpCreateComputePipeline, errors.New("no compute"))
	a := NewApp(nil, gpubench.DefaultConfig(), nil)
	err := a.initCore(dev, haltest.NewSurface(8, 8), nil)
	require.ErrorIs(t, err, core.ErrResourceCreation)
	a.Close()
}

func TestApp_Input(t *testing.T) {
	r := newAppRig(t, nil)
	a := r.app

	a.HandleKey(glfw.Key2, glfw.Repeat)
	assert.Equal(t, core.ModeCPUTransform, a.Input.Mode, "repeat only applies to speed keys")
	a.HandleKey(glfw.Key2, glfw.Release)
	assert.Equal(t, core.ModeCPUTransform, a.Input.Mode)
	a.HandleKey(glfw.KeyEqual, glfw.Repeat)
	assert.InDelta(t, 0.48, a.Input.AutoX, 1e-6)
	a.HandleKey(glfw.KeyF2, glfw.Press)
	assert.Equal(t, core.StyleTextured, a.Input.Style)

	a.HandleCursor(10, 10)
	a.HandleMouseButton(glfw.MouseButtonRight, glfw.Press)
	assert.False(t, a.Input.Dragging())
	a.HandleMouseButton(glfw.MouseButtonLeft, glfw.Press)
	a.HandleCursor(30, 10)
	assert.InDelta(t, 0.2, a.Input.AngleY, 1e-6)
	a.HandleMouseButton(glfw.MouseButtonLeft, glfw.Release)
	assert.False(t, a.Input.Dragging())
}

func TestApp_Resize(t *testing.T) {
	r := newAppRig(t, nil)
	r.app.Resize(1024, 768)
	assert.Equal(t, 1024, r.surf.Width)
	require.Len(t, r.dev.DepthTextures, 2)
	assert.Equal(t, uint32(768), r.dev.DepthTextures[1].Height)
	assert.NoError(t, r.app.Err())
}

func TestApp_ReportAndClose(t *testing.T) {
	r := newAppRig(t, nil)
	r.frame(t)
	r.frame(t)

	rep := r.app.Report()
	_, err := uuid.Parse(rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, 8, rep.Instances)
	require.Len(t, rep.Modes, 1)
	assert.Equal(t, 2, rep.Modes[0].Frames)
	assert.Equal(t, map[string]int{"Colored": 2}, rep.Modes[0].Styles)

	pipelines := r.dev.RenderPipelines
	r.app.Close()
	for _, p := range pipelines {
		assert.True(t, p.Released)
	}
	r.app.Close()
}
