package wgpuhal

import (
	"github.com/gekko3d/gpubench/loadtest/lt/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type Buffer struct {
	buf  *wgpu.Buffer
	size uint64
}

func (b *Buffer) Size() uint64 { return b.size }
func (b *Buffer) Release()     { b.buf.Release() }

// TextureView owns its texture when tex is set.
type TextureView struct {
	view *wgpu.TextureView
	tex  *wgpu.Texture
}

func (v *TextureView) Release() {
	v.view.Release()
	if v.tex != nil {
		v.tex.Release()
	}
}

func viewOf(v hal.TextureView) *wgpu.TextureView {
	switch tv := v.(type) {
	case *TextureView:
		return tv.view
	case *frameView:
		return tv.view
	}
	return nil
}

type Sampler struct{ s *wgpu.Sampler }

func (s *Sampler) Release() { s.s.Release() }

type BindGroupLayout struct{ layout *wgpu.BindGroupLayout }

func (l *BindGroupLayout) Release() { l.layout.Release() }

type BindGroup struct{ bg *wgpu.BindGroup }

func (b *BindGroup) Release() { b.bg.Release() }

type RenderPipeline struct{ p *wgpu.RenderPipeline }

func (p *RenderPipeline) Release() { p.p.Release() }

type ComputePipeline struct{ p *wgpu.ComputePipeline }

func (p *ComputePipeline) Release() { p.p.Release() }

type CommandBuffer struct{ cmd *wgpu.CommandBuffer }

func (c *CommandBuffer) Release() { c.cmd.Release() }

type Queue struct {
	queue *wgpu.Queue
	loss  *hal.DeviceLoss
}

func (q *Queue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if err := q.loss.Err("write buffer"); err != nil {
		return err
	}
	return q.queue.WriteBuffer(buf.(*Buffer).buf, offset, data)
}

// Submit hands the command buffers to the GPU and returns immediately.
// wgpu reports no per-submit status, so a lost device is the only failure.
func (q *Queue) Submit(cmds ...hal.CommandBuffer) error {
	if err := q.loss.Err("submit"); err != nil {
		return err
	}
	wc := make([]*wgpu.CommandBuffer, 0, len(cmds))
	for _, c := range cmds {
		wc = append(wc, c.(*CommandBuffer).cmd)
	}
	q.queue.Submit(wc...)
	return nil
}

func bufferUsage(u hal.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&hal.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&hal.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&hal.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&hal.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&hal.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&hal.BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	return out
}

func shaderStage(s hal.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&hal.StageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&hal.StageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	if s&hal.StageCompute != 0 {
		out |= wgpu.ShaderStageCompute
	}
	return out
}

func layoutEntry(e hal.LayoutEntry) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: shaderStage(e.Visibility),
	}
	switch e.Type {
	case hal.BindingUniform:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: e.MinBindingSize}
	case hal.BindingStorage:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage, MinBindingSize: e.MinBindingSize}
	case hal.BindingReadOnlyStorage:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: e.MinBindingSize}
	case hal.BindingSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	case hal.BindingTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	}
	return entry
}

func vertexFormat(f hal.VertexFormat) wgpu.VertexFormat {
	switch f {
	case hal.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case hal.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		return wgpu.VertexFormatFloat32x3
	}
}

func indexFormat(f hal.IndexFormat) wgpu.IndexFormat {
	if f == hal.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}
