package wgpuhal

import (
	"github.com/gekko3d/gpubench/loadtest/lt/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type CommandEncoder struct {
	enc *wgpu.CommandEncoder
}

func (e *CommandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPass {
	rp := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    viewOf(desc.Color),
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: desc.ClearColor.R,
				G: desc.ClearColor.G,
				B: desc.ClearColor.B,
				A: desc.ClearColor.A,
			},
		}},
	}
	if desc.Depth != nil {
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            viewOf(desc.Depth),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.DepthClear,
		}
	}
	return &RenderPass{pass: e.enc.BeginRenderPass(rp)}
}

func (e *CommandEncoder) BeginComputePass(label string) hal.ComputePass {
	return &ComputePass{pass: e.enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (e *CommandEncoder) Finish() (hal.CommandBuffer, error) {
	cmd, err := e.enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &CommandBuffer{cmd: cmd}, nil
}

func (e *CommandEncoder) Release() { e.enc.Release() }

type RenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *RenderPass) SetPipeline(rp hal.RenderPipeline) {
	p.pass.SetPipeline(rp.(*RenderPipeline).p)
}

func (p *RenderPass) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.pass.SetBindGroup(index, bg.(*BindGroup).bg, nil)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf hal.Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*Buffer).buf, 0, wgpu.WholeSize)
}

func (p *RenderPass) SetIndexBuffer(buf hal.Buffer, format hal.IndexFormat) {
	p.pass.SetIndexBuffer(buf.(*Buffer).buf, indexFormat(format), 0, wgpu.WholeSize)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *RenderPass) End() error {
	defer p.pass.Release()
	return p.pass.End()
}

type ComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (p *ComputePass) SetPipeline(cp hal.ComputePipeline) {
	p.pass.SetPipeline(cp.(*ComputePipeline).p)
}

func (p *ComputePass) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.pass.SetBindGroup(index, bg.(*BindGroup).bg, nil)
}

func (p *ComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *ComputePass) End() error {
	defer p.pass.Release()
	return p.pass.End()
}
