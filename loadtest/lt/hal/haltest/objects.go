package haltest

import (
	"github.com/gekko3d/gpubench/loadtest/lt/hal"
)

type Buffer struct {
	Label    string
	Usage    hal.BufferUsage
	Data     []byte
	Released bool
	size     uint64
}

func (b *Buffer) Size() uint64 { return b.size }
func (b *Buffer) Release()     { b.Released = true }

type TextureView struct {
	Label    string
	Width    uint32
	Height   uint32
	Pixels   []byte
	Released bool
}

func (t *TextureView) Release() { t.Released = true }

type Sampler struct {
	Label    string
	Released bool
}

func (s *Sampler) Release() { s.Released = true }

type BindGroupLayout struct {
	Label    string
	Entries  []hal.LayoutEntry
	Released bool
}

func (l *BindGroupLayout) Release() { l.Released = true }

type BindGroup struct {
	Label    string
	Layout   *BindGroupLayout
	Entries  []hal.BindGroupEntry
	Released bool
}

func (b *BindGroup) Release() { b.Released = true }

// Buffer returns the buffer bound at binding, or nil.
func (b *BindGroup) Buffer(binding uint32) *Buffer {
	for _, e := range b.Entries {
		if e.Binding == binding && e.Buffer != nil {
			return e.Buffer.(*Buffer)
		}
	}
	return nil
}

type RenderPipeline struct {
	Label    string
	Desc     hal.RenderPipelineDescriptor
	Released bool
}

func (p *RenderPipeline) Release() { p.Released = true }

type ComputePipeline struct {
	Label    string
	Desc     hal.ComputePipelineDescriptor
	Released bool
}

func (p *ComputePipeline) Release() { p.Released = true }

type CommandBuffer struct {
	Label     string
	Submitted bool
	Released  bool
}

func (c *CommandBuffer) Release() { c.Released = true }

// Surface is a fixed-size presentable target.
type Surface struct {
	Width, Height int
	Acquires      int
	Presents      int
	AcquireErr    error

	current *TextureView
}

func NewSurface(width, height int) *Surface {
	return &Surface{Width: width, Height: height}
}

func (s *Surface) Size() (int, int) { return s.Width, s.Height }

func (s *Surface) AcquireView() (hal.TextureView, error) {
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	if s.current == nil {
		s.Acquires++
		s.current = &TextureView{Label: "swapchain", Width: uint32(s.Width), Height: uint32(s.Height)}
	}
	return s.current, nil
}

func (s *Surface) Present() {
	if s.current == nil {
		return
	}
	s.Presents++
	s.current = nil
}

func (s *Surface) Resize(width, height int) error {
	if width > 0 && height > 0 {
		s.Width, s.Height = width, height
	}
	return nil
}
