// Package haltest provides a recording hal.Device for GPU-free tests.
// Every created object and every recorded command is kept so tests can
// assert on what a frame did.
package haltest

import (
	"fmt"
	"sync"

	"github.com/gekko3d/gpubench/loadtest/lt/hal"
)

var (
	_ hal.Device         = (*Device)(nil)
	_ hal.Queue          = (*Queue)(nil)
	_ hal.Surface        = (*Surface)(nil)
	_ hal.CommandEncoder = (*CommandEncoder)(nil)
)

// Op names accepted by Fail.
const (
	OpCreateBuffer          = "CreateBuffer"
	OpCreateTexture         = "CreateTexture"
	OpCreateDepthTexture    = "CreateDepthTexture"
	OpCreateSampler         = "CreateSampler"
	OpCreateBindGroupLayout = "CreateBindGroupLayout"
	OpCreateBindGroup       = "CreateBindGroup"
	OpCreateRenderPipeline  = "CreateRenderPipeline"
	OpCreateComputePipeline = "CreateComputePipeline"
	OpCreateCommandEncoder  = "CreateCommandEncoder"
	OpWriteBuffer           = "WriteBuffer"
	OpSubmit                = "Submit"
	OpFinish                = "Finish"
	OpEndPass               = "EndPass"
)

type Draw struct {
	Pipeline      *RenderPipeline
	BindGroups    map[uint32]*BindGroup
	VertexBuffer  *Buffer
	IndexBuffer   *Buffer
	IndexCount    uint32
	InstanceCount uint32
}

type Dispatch struct {
	Pipeline   *ComputePipeline
	BindGroups map[uint32]*BindGroup
	X, Y, Z    uint32
}

type Write struct {
	Buffer *Buffer
	Offset uint64
	Size   int
}

// Device records everything. Fields are safe to read once the code under
// test returns.
type Device struct {
	mu    sync.Mutex
	fails map[string]error
	queue *Queue
	loss  hal.DeviceLoss

	Buffers          []*Buffer
	Textures         []*TextureView
	DepthTextures    []*TextureView
	Samplers         []*Sampler
	Layouts          []*BindGroupLayout
	BindGroups       []*BindGroup
	RenderPipelines  []*RenderPipeline
	ComputePipelines []*ComputePipeline
	Encoders         []*CommandEncoder

	RenderPasses        int
	ComputePasses       int
	RenderPipelineBinds int
	Draws               []Draw
	Dispatches          []Dispatch
	Writes              []Write
	Submits             int

	// Log is the ordered command stream, e.g. "begin_render_pass",
	// "draw_indexed 36x3", "submit".
	Log []string
}

func NewDevice() *Device {
	d := &Device{fails: map[string]error{}}
	d.queue = &Queue{dev: d}
	return d
}

// Fail makes every later call to op return err. A nil err clears it.
func (d *Device) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fails, op)
		return
	}
	d.fails[op] = err
}

// Lose simulates a driver device-lost notification. Every later call
// fails with an error wrapping hal.ErrDeviceLost.
func (d *Device) Lose(reason, message string) {
	d.loss.Lose(reason, message)
}

func (d *Device) failure(op string) error {
	if err := d.loss.Err(op); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fails[op]
}

func (d *Device) logf(format string, args ...any) {
	d.Log = append(d.Log, fmt.Sprintf(format, args...))
}

// ResetCommands clears the per-frame records but keeps created objects.
func (d *Device) ResetCommands() {
	d.RenderPasses = 0
	d.ComputePasses = 0
	d.RenderPipelineBinds = 0
	d.Draws = nil
	d.Dispatches = nil
	d.Writes = nil
	d.Submits = 0
	d.Log = nil
}

func (d *Device) Queue() hal.Queue { return d.queue }

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.failure(OpCreateBuffer); err != nil {
		return nil, err
	}
	b := &Buffer{Label: desc.Label, Usage: desc.Usage, size: desc.Size}
	d.Buffers = append(d.Buffers, b)
	d.logf("create_buffer %s", desc.Label)
	return b, nil
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.TextureView, error) {
	if err := d.failure(OpCreateTexture); err != nil {
		return nil, err
	}
	t := &TextureView{Label: desc.Label, Width: desc.Width, Height: desc.Height, Pixels: desc.Pixels}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateDepthTexture(label string, width, height uint32) (hal.TextureView, error) {
	if err := d.failure(OpCreateDepthTexture); err != nil {
		return nil, err
	}
	t := &TextureView{Label: label, Width: width, Height: height}
	d.DepthTextures = append(d.DepthTextures, t)
	return t, nil
}

func (d *Device) CreateSampler(label string) (hal.Sampler, error) {
	if err := d.failure(OpCreateSampler); err != nil {
		return nil, err
	}
	s := &Sampler{Label: label}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.failure(OpCreateBindGroupLayout); err != nil {
		return nil, err
	}
	l := &BindGroupLayout{Label: desc.Label, Entries: desc.Entries}
	d.Layouts = append(d.Layouts, l)
	return l, nil
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.failure(OpCreateBindGroup); err != nil {
		return nil, err
	}
	bg := &BindGroup{Label: desc.Label, Layout: desc.Layout.(*BindGroupLayout), Entries: desc.Entries}
	d.BindGroups = append(d.BindGroups, bg)
	d.logf("create_bind_group %s", desc.Label)
	return bg, nil
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.failure(OpCreateRenderPipeline); err != nil {
		return nil, err
	}
	p := &RenderPipeline{Label: desc.Label, Desc: *desc}
	d.RenderPipelines = append(d.RenderPipelines, p)
	return p, nil
}

func (d *Device) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if err := d.failure(OpCreateComputePipeline); err != nil {
		return nil, err
	}
	p := &ComputePipeline{Label: desc.Label, Desc: *desc}
	d.ComputePipelines = append(d.ComputePipelines, p)
	return p, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	if err := d.failure(OpCreateCommandEncoder); err != nil {
		return nil, err
	}
	e := &CommandEncoder{dev: d, Label: label}
	d.Encoders = append(d.Encoders, e)
	return e, nil
}

func (d *Device) Release() {}

// Queue keeps the last bytes written to each buffer in Buffer.Data.
type Queue struct {
	dev *Device
}

func (q *Queue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if err := q.dev.failure(OpWriteBuffer); err != nil {
		return err
	}
	b := buf.(*Buffer)
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at %d overflows %q (%d bytes)", len(data), offset, b.Label, b.size)
	}
	if uint64(len(b.Data)) < b.size {
		b.Data = append(b.Data, make([]byte, int(b.size)-len(b.Data))...)
	}
	copy(b.Data[offset:], data)
	q.dev.Writes = append(q.dev.Writes, Write{Buffer: b, Offset: offset, Size: len(data)})
	q.dev.logf("write_buffer %s %d", b.Label, len(data))
	return nil
}

func (q *Queue) Submit(cmds ...hal.CommandBuffer) error {
	if err := q.dev.failure(OpSubmit); err != nil {
		return err
	}
	for _, c := range cmds {
		c.(*CommandBuffer).Submitted = true
	}
	q.dev.Submits++
	q.dev.logf("submit")
	return nil
}
