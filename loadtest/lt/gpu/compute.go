package gpu

import (
	"encoding/binary"
	"math"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"
	"github.com/gekko3d/gpubench/loadtest/lt/shaders"
)

const (
	WorkgroupSize = 256
	// HeavyWorkgroups is the fixed grid of the synthetic kernel: 4096 x 256
	// invocations.
	HeavyWorkgroups = 4096

	paramsSize = 16
	sinkSize   = HeavyWorkgroups * 4
	matrixSize = 64
)

// WorkgroupCount is ceil(count / WorkgroupSize).
func WorkgroupCount(count int) uint32 {
	if count <= 0 {
		return 0
	}
	return uint32((count + WorkgroupSize - 1) / WorkgroupSize)
}

// ComputeEngine generates instance transforms on the GPU and runs the
// synthetic heavy kernel. It owns its pipelines, the 16-byte params
// uniform and a private sink buffer.
type ComputeEngine struct {
	device hal.Device
	queue  hal.Queue
	logger gpubench.Logger

	generateLayout hal.BindGroupLayout
	heavyLayout    hal.BindGroupLayout
	generate       hal.ComputePipeline
	heavy          hal.ComputePipeline

	params    hal.Buffer
	sink      hal.Buffer
	heavyBind hal.BindGroup

	// Generate bind group, rebuilt only when the target buffer changes.
	target     hal.Buffer
	targetBind hal.BindGroup
}

func NewComputeEngine(device hal.Device, source string, logger gpubench.Logger) (*ComputeEngine, error) {
	e := &ComputeEngine{device: device, queue: device.Queue(), logger: gpubench.OrNop(logger)}
	if err := e.init(source); err != nil {
		e.Release()
		return nil, err
	}
	return e, nil
}

func (e *ComputeEngine) init(source string) error {
	var err error
	e.generateLayout, err = e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "Generate Transforms BGL",
		Entries: []hal.LayoutEntry{
			{Binding: 0, Visibility: hal.StageCompute, Type: hal.BindingUniform, MinBindingSize: paramsSize},
			{Binding: 1, Visibility: hal.StageCompute, Type: hal.BindingStorage, MinBindingSize: matrixSize},
		},
	})
	if err != nil {
		return core.ResourceError("generate bind group layout", err)
	}
	e.heavyLayout, err = e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "Compute Heavy BGL",
		Entries: []hal.LayoutEntry{
			{Binding: 2, Visibility: hal.StageCompute, Type: hal.BindingStorage},
		},
	})
	if err != nil {
		return core.ResourceError("heavy bind group layout", err)
	}

	e.generate, err = e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "Generate Transforms Pipeline",
		Source:  source,
		Entry:   shaders.GenerateEntry,
		Layouts: []hal.BindGroupLayout{e.generateLayout},
	})
	if err != nil {
		return core.ResourceError("generate pipeline", err)
	}
	e.heavy, err = e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "Compute Heavy Pipeline",
		Source:  source,
		Entry:   shaders.ComputeHeavyEntry,
		Layouts: []hal.BindGroupLayout{e.heavyLayout},
	})
	if err != nil {
		return core.ResourceError("heavy pipeline", err)
	}

	e.params, err = e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Transform Params",
		Size:  paramsSize,
		Usage: hal.BufferUsageUniform | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return core.ResourceError("params buffer", err)
	}
	e.sink, err = e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Compute Heavy Sink",
		Size:  sinkSize,
		Usage: hal.BufferUsageStorage,
	})
	if err != nil {
		return core.ResourceError("sink buffer", err)
	}
	e.heavyBind, err = e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "Compute Heavy BG",
		Layout:  e.heavyLayout,
		Entries: []hal.BindGroupEntry{{Binding: 2, Buffer: e.sink, Size: sinkSize}},
	})
	if err != nil {
		return core.ResourceError("heavy bind group", err)
	}
	return nil
}

func encodeParams(angleX, angleY float32, count uint32) []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(angleX))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(angleY))
	binary.LittleEndian.PutUint32(buf[8:], count)
	return buf
}

func (e *ComputeEngine) bindTarget(target hal.Buffer) error {
	if e.targetBind != nil && e.target == target {
		return nil
	}
	bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "Generate Transforms BG",
		Layout: e.generateLayout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Buffer: e.params, Size: paramsSize},
			{Binding: 1, Buffer: target, Size: target.Size()},
		},
	})
	if err != nil {
		return core.SubmissionError("generate bind group", err)
	}
	if e.targetBind != nil {
		e.targetBind.Release()
	}
	e.target, e.targetBind = target, bg
	return nil
}

// GenerateTransforms records one dispatch that writes count rotation
// matrices into target. Earlier contents are fully overwritten.
func (e *ComputeEngine) GenerateTransforms(enc hal.CommandEncoder, target hal.Buffer, count int, angleX, angleY float32) error {
	if count <= 0 {
		return nil
	}
	if need := uint64(count) * matrixSize; target.Size() < need {
		count = int(target.Size() / matrixSize)
		e.logger.Warnf("transform buffer holds %d matrices, clamping dispatch", count)
	}
	if err := e.queue.WriteBuffer(e.params, 0, encodeParams(angleX, angleY, uint32(count))); err != nil {
		return core.SubmissionError("write transform params", err)
	}
	if err := e.bindTarget(target); err != nil {
		return err
	}

	pass := enc.BeginComputePass("Generate Transforms")
	pass.SetPipeline(e.generate)
	pass.SetBindGroup(0, e.targetBind)
	pass.DispatchWorkgroups(WorkgroupCount(count), 1, 1)
	if err := pass.End(); err != nil {
		return core.SubmissionError("end generate pass", err)
	}
	return nil
}

// ComputeHeavy records the synthetic kernel. Its output is never read.
func (e *ComputeEngine) ComputeHeavy(enc hal.CommandEncoder) error {
	pass := enc.BeginComputePass("Compute Heavy")
	pass.SetPipeline(e.heavy)
	pass.SetBindGroup(0, e.heavyBind)
	pass.DispatchWorkgroups(HeavyWorkgroups, 1, 1)
	if err := pass.End(); err != nil {
		return core.SubmissionError("end heavy pass", err)
	}
	return nil
}

func (e *ComputeEngine) Release() {
	for _, r := range []interface{ Release() }{
		e.targetBind, e.heavyBind, e.sink, e.params,
		e.heavy, e.generate, e.heavyLayout, e.generateLayout,
	} {
		if r != nil {
			r.Release()
		}
	}
	*e = ComputeEngine{device: e.device, queue: e.queue, logger: e.logger}
}
