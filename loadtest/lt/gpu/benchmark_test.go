package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/hal/haltest"
	"github.com/gekko3d/gpubench/loadtest/lt/shaders"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	dev      *haltest.Device
	surf     *haltest.Surface
	renderer *Renderer
	compute  *ComputeEngine
	ctrl     *BenchmarkController
}

func newRig(t *testing.T, count, limit int) *rig {
	t.Helper()
	dev := haltest.NewDevice()
	surf := haltest.NewSurface(800, 600)
	src := shaders.Default()
	programs, err := src.RenderPrograms()
	require.NoError(t, err)

	renderer, err := NewRenderer(dev, surf, RendererOptions{Programs: programs, InstanceLimit: limit})
	require.NoError(t, err)
	compute, err := NewComputeEngine(dev, src.Compute, nil)
	require.NoError(t, err)
	ctrl, err := NewBenchmarkController(dev, renderer, compute, count, nil)
	require.NoError(t, err)

	dev.ResetCommands()
	return &rig{dev: dev, surf: surf, renderer: renderer, compute: compute, ctrl: ctrl}
}

func readMat4(data []byte, i int) mgl32.Mat4 {
	var m mgl32.Mat4
	for k := range m {
		off := i*matrixSize + k*4
		m[k] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	return m
}

func TestCPUTransformMode_IdentityAtZeroAngles(t *testing.T) {
	r := newRig(t, 3, 0)

	require.NoError(t, r.ctrl.CPUTransformMode(0, 0, core.StyleColored))

	mats := r.ctrl.CPUMatrices()
	require.Len(t, mats, 3)
	for _, m := range mats {
		assert.True(t, m.ApproxEqual(mgl32.Ident4()))
	}

	uploaded := r.ctrl.cpuBuffer.(*haltest.Buffer).Data
	require.Len(t, uploaded, 3*matrixSize)
	for i := 0; i < 3; i++ {
		assert.True(t, readMat4(uploaded, i).ApproxEqual(mgl32.Ident4()), "instance %d", i)
	}

	assert.Equal(t, 1, r.dev.Submits)
	assert.Equal(t, 1, r.dev.RenderPasses)
	require.Len(t, r.dev.Draws, 1)
	assert.Equal(t, uint32(3), r.dev.Draws[0].InstanceCount)
	assert.Same(t, r.ctrl.cpuBuffer.(*haltest.Buffer), r.dev.Draws[0].BindGroups[0].Buffer(1))
	assert.Equal(t, 1, r.surf.Presents)
}

func TestCPUTransformMode_UploadPrecedesSubmit(t *testing.T) {
	r := newRig(t, 4, 0)
	require.NoError(t, r.ctrl.CPUTransformMode(0.3, 0.7, core.StyleLit))

	upload, submit := -1, -1
	for i, line := range r.dev.Log {
		switch line {
		case "write_buffer CPU Instance Matrices 256":
			upload = i
		case "submit":
			submit = i
		}
	}
	require.NotEqual(t, -1, upload)
	require.NotEqual(t, -1, submit)
	assert.Less(t, upload, submit)

	want := core.ModelMatrix(0.3, 0.7)
	for _, m := range r.ctrl.CPUMatrices() {
		assert.Equal(t, want, m)
	}
}

func TestRenderingOnlyMode_SingleDrawAnyCount(t *testing.T) {
	for _, count := range []int{1, 3, 1000, 200000} {
		r := newRig(t, count, 0)
		require.NoError(t, r.ctrl.RenderingOnlyMode(0.1, 0.2, core.StyleTextured))

		assert.Equal(t, 1, r.dev.RenderPasses, "count %d", count)
		assert.Equal(t, 1, r.dev.RenderPipelineBinds, "count %d", count)
		require.Len(t, r.dev.Draws, 1, "count %d", count)
		assert.Equal(t, uint32(36), r.dev.Draws[0].IndexCount)
		assert.Equal(t, uint32(count), r.dev.Draws[0].InstanceCount)
		assert.Same(t, r.renderer.identity.(*haltest.Buffer), r.dev.Draws[0].BindGroups[0].Buffer(1))
		assert.Zero(t, r.dev.ComputePasses)
		assert.Equal(t, 1, r.dev.Submits)
	}
}

func TestComputeOnlyMode_NeverRenders(t *testing.T) {
	r := newRig(t, 16, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.ctrl.RunFrame(core.FrameInput{AngleX: float32(i), Mode: core.ModeComputeOnly}))
	}

	assert.Zero(t, r.dev.RenderPasses)
	assert.Empty(t, r.dev.Draws)
	assert.Zero(t, r.surf.Acquires)
	assert.Zero(t, r.surf.Presents)
	assert.Equal(t, 3, r.dev.ComputePasses)
	assert.Equal(t, 3, r.dev.Submits)
	for _, d := range r.dev.Dispatches {
		assert.Equal(t, uint32(HeavyWorkgroups), d.X)
		assert.Equal(t, shaders.ComputeHeavyEntry, d.Pipeline.Desc.Entry)
	}
}

func TestStyleSwitch_ReusesMeshBuffers(t *testing.T) {
	r := newRig(t, 8, 0)
	buffers := len(r.dev.Buffers)
	pipelines := len(r.dev.RenderPipelines)

	for _, st := range []core.RenderStyle{core.StyleColored, core.StyleTextured, core.StyleLit, core.StyleColored} {
		require.NoError(t, r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeRenderingOnly, Style: st}))
	}

	assert.Equal(t, buffers, len(r.dev.Buffers))
	assert.Equal(t, pipelines, len(r.dev.RenderPipelines))
	require.Len(t, r.dev.Draws, 4)
	first := r.dev.Draws[0]
	for _, d := range r.dev.Draws[1:] {
		assert.Same(t, first.VertexBuffer, d.VertexBuffer)
		assert.Same(t, first.IndexBuffer, d.IndexBuffer)
	}
	assert.Equal(t, "Colored Pipeline", r.dev.Draws[0].Pipeline.Label)
	assert.Equal(t, "Textured Pipeline", r.dev.Draws[1].Pipeline.Label)
	assert.Equal(t, "Lit Pipeline", r.dev.Draws[2].Pipeline.Label)
	assert.Same(t, r.dev.Draws[0].Pipeline, r.dev.Draws[3].Pipeline)
}

func TestGPUTransformMode(t *testing.T) {
	r := newRig(t, 1000, 0)
	require.NoError(t, r.ctrl.GPUTransformMode(0.5, -0.25, core.StyleColored))

	require.Len(t, r.dev.Dispatches, 1)
	assert.Equal(t, uint32(4), r.dev.Dispatches[0].X)
	assert.Equal(t, shaders.GenerateEntry, r.dev.Dispatches[0].Pipeline.Desc.Entry)
	assert.Same(t, r.ctrl.gpuBuffer.(*haltest.Buffer), r.dev.Dispatches[0].BindGroups[0].Buffer(1))

	params := r.compute.params.(*haltest.Buffer).Data
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(params[0:])))
	assert.Equal(t, float32(-0.25), math.Float32frombits(binary.LittleEndian.Uint32(params[4:])))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(params[8:]))

	require.Len(t, r.dev.Draws, 1)
	assert.Same(t, r.ctrl.gpuBuffer.(*haltest.Buffer), r.dev.Draws[0].BindGroups[0].Buffer(1))
	assert.Equal(t, uint32(1000), r.dev.Draws[0].InstanceCount)
	assert.Equal(t, 1, r.dev.Submits)
	assert.Empty(t, r.ctrl.cpuBuffer.(*haltest.Buffer).Data, "gpu mode must not touch the cpu mirror")
}

func TestBindGroupsRebuiltOnlyOnBufferChange(t *testing.T) {
	r := newRig(t, 64, 0)
	base := len(r.dev.BindGroups)

	require.NoError(t, r.ctrl.GPUTransformMode(0, 0, core.StyleColored))
	afterFirst := len(r.dev.BindGroups)
	assert.Equal(t, base+2, afterFirst, "generate and instance bind groups")

	for i := 0; i < 5; i++ {
		require.NoError(t, r.ctrl.GPUTransformMode(float32(i), 0, core.StyleLit))
	}
	assert.Equal(t, afterFirst, len(r.dev.BindGroups))

	require.NoError(t, r.ctrl.CPUTransformMode(0, 0, core.StyleLit))
	assert.Equal(t, afterFirst+1, len(r.dev.BindGroups))
}

func TestCombinedStressMode_ComputeThenRender(t *testing.T) {
	r := newRig(t, 300, 0)
	require.NoError(t, r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeCombinedStress, Style: core.StyleLit}))

	compute, render := -1, -1
	for i, line := range r.dev.Log {
		if line == "begin_compute_pass Generate Transforms" {
			compute = i
		}
		if line == "begin_render_pass Cube Pass" {
			render = i
		}
	}
	require.NotEqual(t, -1, compute)
	require.NotEqual(t, -1, render)
	assert.Less(t, compute, render)
	assert.Equal(t, uint32(2), r.dev.Dispatches[0].X)
	assert.Equal(t, 1, r.dev.Submits)
}

func TestRunFrame_RejectsInvalidInput(t *testing.T) {
	r := newRig(t, 4, 0)
	var inv *core.InvalidValueError

	err := r.ctrl.RunFrame(core.FrameInput{Mode: core.BenchmarkMode(0), Style: core.StyleColored})
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "benchmark mode", inv.Kind)

	err = r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeGPUTransform, Style: core.RenderStyle(7)})
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "render style", inv.Kind)

	assert.NoError(t, r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeComputeOnly}))
	assert.Equal(t, 1, r.dev.Submits)
}

func TestSubmissionFailure(t *testing.T) {
	r := newRig(t, 4, 0)
	boom := errors.New("device lost")
	r.dev.Fail(haltest.OpSubmit, boom)

	err := r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeRenderingOnly, Style: core.StyleColored})
	assert.ErrorIs(t, err, core.ErrSubmission)
	assert.ErrorIs(t, err, boom)

	r.dev.Fail(haltest.OpSubmit, nil)
	r.dev.Fail(haltest.OpEndPass, boom)
	err = r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeComputeOnly})
	assert.ErrorIs(t, err, core.ErrSubmission)

	r.dev.Fail(haltest.OpEndPass, nil)
	r.surf.AcquireErr = boom
	err = r.ctrl.RunFrame(core.FrameInput{Mode: core.ModeCPUTransform, Style: core.StyleColored})
	assert.ErrorIs(t, err, core.ErrSubmission)
}

func TestResourceCreationFailure(t *testing.T) {
	src := shaders.Default()
	programs, err := src.RenderPrograms()
	require.NoError(t, err)
	boom := errors.New("out of memory")

	for _, op := range []string{
		haltest.OpCreateBuffer,
		haltest.OpCreateRenderPipeline,
		haltest.OpCreateBindGroupLayout,
		haltest.OpCreateDepthTexture,
		haltest.OpCreateTexture,
	} {
		dev := haltest.NewDevice()
		dev.Fail(op, boom)
		_, err := NewRenderer(dev, haltest.NewSurface(64, 64), RendererOptions{Programs: programs})
		assert.ErrorIs(t, err, core.ErrResourceCreation, op)
		assert.ErrorIs(t, err, boom, op)
	}

	dev := haltest.NewDevice()
	dev.Fail(haltest.OpCreateComputePipeline, boom)
	_, err = NewComputeEngine(dev, src.Compute, nil)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	_, err = NewRenderer(haltest.NewDevice(), haltest.NewSurface(64, 64), RendererOptions{})
	assert.ErrorIs(t, err, core.ErrResourceCreation, "missing programs")
}

func TestNewBenchmarkController_RejectsEmptySet(t *testing.T) {
	_, err := NewBenchmarkController(haltest.NewDevice(), nil, nil, 0, nil)
	assert.Error(t, err)
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		count int
		want  uint32
	}{
		{0, 0},
		{1, 1},
		{256, 1},
		{257, 2},
		{200000, 782},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WorkgroupCount(tt.count), "count %d", tt.count)
	}
}
