package gpu

import (
	"fmt"
	"unsafe"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"

	"github.com/go-gl/mathgl/mgl32"
)

// BenchmarkController owns both instance-matrix buffers and runs one mode
// per frame. Every mode records into a single encoder and submits exactly
// once; nothing waits for the GPU.
type BenchmarkController struct {
	device   hal.Device
	queue    hal.Queue
	renderer *Renderer
	compute  *ComputeEngine
	logger   gpubench.Logger

	count int
	// cpuMatrices is overwritten in place every CPU-transform frame and
	// uploaded to cpuBuffer before that frame's submission.
	cpuMatrices []mgl32.Mat4
	cpuBuffer   hal.Buffer
	gpuBuffer   hal.Buffer
}

func NewBenchmarkController(device hal.Device, renderer *Renderer, compute *ComputeEngine, count int, logger gpubench.Logger) (*BenchmarkController, error) {
	if count <= 0 {
		return nil, fmt.Errorf("instance count must be positive, got %d", count)
	}
	b := &BenchmarkController{
		device:      device,
		queue:       device.Queue(),
		renderer:    renderer,
		compute:     compute,
		logger:      gpubench.OrNop(logger),
		count:       count,
		cpuMatrices: make([]mgl32.Mat4, count),
	}

	size := uint64(count) * matrixSize
	var err error
	b.cpuBuffer, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "CPU Instance Matrices",
		Size:  size,
		Usage: hal.BufferUsageStorage | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, core.ResourceError("cpu matrix buffer", err)
	}
	b.gpuBuffer, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "GPU Instance Matrices",
		Size:  size,
		Usage: hal.BufferUsageStorage,
	})
	if err != nil {
		b.cpuBuffer.Release()
		return nil, core.ResourceError("gpu matrix buffer", err)
	}

	b.logger.Debugf("instance buffers: %d matrices, %d bytes each", count, size)
	return b, nil
}

func (b *BenchmarkController) InstanceCount() int { return b.count }

// CPUMatrices exposes the CPU mirror for inspection.
func (b *BenchmarkController) CPUMatrices() []mgl32.Mat4 { return b.cpuMatrices }

// RunFrame dispatches in.Mode. Out-of-range modes or styles are rejected
// before anything is recorded.
func (b *BenchmarkController) RunFrame(in core.FrameInput) error {
	if !in.Mode.Valid() {
		return &core.InvalidValueError{Kind: "benchmark mode", Value: int(in.Mode)}
	}
	if in.Mode.Renders() && !in.Style.Valid() {
		return &core.InvalidValueError{Kind: "render style", Value: int(in.Style)}
	}

	switch in.Mode {
	case core.ModeCPUTransform:
		return b.CPUTransformMode(in.AngleX, in.AngleY, in.Style)
	case core.ModeGPUTransform:
		return b.GPUTransformMode(in.AngleX, in.AngleY, in.Style)
	case core.ModeComputeOnly:
		return b.ComputeOnlyMode()
	case core.ModeRenderingOnly:
		return b.RenderingOnlyMode(in.AngleX, in.AngleY, in.Style)
	default:
		return b.CombinedStressMode(in.AngleX, in.AngleY, in.Style)
	}
}

// CPUTransformMode fills every matrix on the CPU, uploads the whole mirror
// and draws from it.
func (b *BenchmarkController) CPUTransformMode(angleX, angleY float32, style core.RenderStyle) error {
	core.FillModelMatrices(b.cpuMatrices, angleX, angleY)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&b.cpuMatrices[0])), len(b.cpuMatrices)*matrixSize)
	if err := b.queue.WriteBuffer(b.cpuBuffer, 0, data); err != nil {
		return core.SubmissionError("upload cpu matrices", err)
	}
	return b.submit("CPU Transform", func(enc hal.CommandEncoder) error {
		return b.renderer.RenderInstances(enc, b.cpuBuffer, b.count, angleX, angleY, style)
	})
}

// GPUTransformMode generates the matrices with the compute engine straight
// into GPU memory and draws from there.
func (b *BenchmarkController) GPUTransformMode(angleX, angleY float32, style core.RenderStyle) error {
	return b.submit("GPU Transform", func(enc hal.CommandEncoder) error {
		if err := b.compute.GenerateTransforms(enc, b.gpuBuffer, b.count, angleX, angleY); err != nil {
			return err
		}
		return b.renderer.RenderInstances(enc, b.gpuBuffer, b.count, angleX, angleY, style)
	})
}

// ComputeOnlyMode runs the heavy kernel and never renders.
func (b *BenchmarkController) ComputeOnlyMode() error {
	return b.submit("Compute Only", b.compute.ComputeHeavy)
}

// RenderingOnlyMode draws every instance with the identity transform.
func (b *BenchmarkController) RenderingOnlyMode(angleX, angleY float32, style core.RenderStyle) error {
	return b.submit("Rendering Only", func(enc hal.CommandEncoder) error {
		return b.renderer.RenderInstances(enc, nil, b.count, angleX, angleY, style)
	})
}

// CombinedStressMode is GPU generation followed by the render in the same
// batch.
func (b *BenchmarkController) CombinedStressMode(angleX, angleY float32, style core.RenderStyle) error {
	return b.submit("Combined Stress", func(enc hal.CommandEncoder) error {
		if err := b.compute.GenerateTransforms(enc, b.gpuBuffer, b.count, angleX, angleY); err != nil {
			return err
		}
		return b.renderer.RenderInstances(enc, b.gpuBuffer, b.count, angleX, angleY, style)
	})
}

func (b *BenchmarkController) submit(label string, record func(enc hal.CommandEncoder) error) error {
	enc, err := b.device.CreateCommandEncoder(label)
	if err != nil {
		return core.SubmissionError("create command encoder", err)
	}
	defer enc.Release()

	if err := record(enc); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	cmd, err := enc.Finish()
	if err != nil {
		return core.SubmissionError("finish "+label, err)
	}
	defer cmd.Release()

	if err := b.queue.Submit(cmd); err != nil {
		return core.SubmissionError("submit "+label, err)
	}
	b.renderer.Present()
	return nil
}

func (b *BenchmarkController) Release() {
	if b.cpuBuffer != nil {
		b.cpuBuffer.Release()
	}
	if b.gpuBuffer != nil {
		b.gpuBuffer.Release()
	}
	b.cpuBuffer, b.gpuBuffer = nil, nil
}
