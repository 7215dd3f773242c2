package haltest

import (
	"fmt"

	"github.com/gekko3d/gpubench/loadtest/lt/hal"
)

type CommandEncoder struct {
	dev      *Device
	Label    string
	Finished bool
	Released bool
}

func (e *CommandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPass {
	e.dev.RenderPasses++
	e.dev.logf("begin_render_pass %s", desc.Label)
	return &RenderPass{dev: e.dev, Desc: *desc, bind: map[uint32]*BindGroup{}}
}

func (e *CommandEncoder) BeginComputePass(label string) hal.ComputePass {
	e.dev.ComputePasses++
	e.dev.logf("begin_compute_pass %s", label)
	return &ComputePass{dev: e.dev, bind: map[uint32]*BindGroup{}}
}

func (e *CommandEncoder) Finish() (hal.CommandBuffer, error) {
	if err := e.dev.failure(OpFinish); err != nil {
		return nil, err
	}
	e.Finished = true
	e.dev.logf("finish")
	return &CommandBuffer{Label: e.Label}, nil
}

func (e *CommandEncoder) Release() { e.Released = true }

type RenderPass struct {
	dev      *Device
	Desc     hal.RenderPassDescriptor
	pipeline *RenderPipeline
	bind     map[uint32]*BindGroup
	vertex   *Buffer
	index    *Buffer
	ended    bool
}

func (p *RenderPass) SetPipeline(rp hal.RenderPipeline) {
	p.pipeline = rp.(*RenderPipeline)
	p.dev.RenderPipelineBinds++
	p.dev.logf("set_pipeline %s", p.pipeline.Label)
}

func (p *RenderPass) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.bind[index] = bg.(*BindGroup)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf hal.Buffer) {
	p.vertex = buf.(*Buffer)
}

func (p *RenderPass) SetIndexBuffer(buf hal.Buffer, format hal.IndexFormat) {
	p.index = buf.(*Buffer)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	groups := make(map[uint32]*BindGroup, len(p.bind))
	for k, v := range p.bind {
		groups[k] = v
	}
	p.dev.Draws = append(p.dev.Draws, Draw{
		Pipeline:      p.pipeline,
		BindGroups:    groups,
		VertexBuffer:  p.vertex,
		IndexBuffer:   p.index,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
	})
	p.dev.logf("draw_indexed %dx%d", indexCount, instanceCount)
}

func (p *RenderPass) End() error {
	if p.ended {
		return fmt.Errorf("render pass ended twice")
	}
	p.ended = true
	p.dev.logf("end_render_pass")
	return p.dev.failure(OpEndPass)
}

type ComputePass struct {
	dev      *Device
	pipeline *ComputePipeline
	bind     map[uint32]*BindGroup
	ended    bool
}

func (p *ComputePass) SetPipeline(cp hal.ComputePipeline) {
	p.pipeline = cp.(*ComputePipeline)
	p.dev.logf("set_compute_pipeline %s", p.pipeline.Label)
}

func (p *ComputePass) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.bind[index] = bg.(*BindGroup)
}

func (p *ComputePass) DispatchWorkgroups(x, y, z uint32) {
	groups := make(map[uint32]*BindGroup, len(p.bind))
	for k, v := range p.bind {
		groups[k] = v
	}
	p.dev.Dispatches = append(p.dev.Dispatches, Dispatch{Pipeline: p.pipeline, BindGroups: groups, X: x, Y: y, Z: z})
	p.dev.logf("dispatch %d", x)
}

func (p *ComputePass) End() error {
	if p.ended {
		return fmt.Errorf("compute pass ended twice")
	}
	p.ended = true
	p.dev.logf("end_compute_pass")
	return p.dev.failure(OpEndPass)
}
