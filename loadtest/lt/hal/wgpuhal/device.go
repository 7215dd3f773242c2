// Package wgpuhal implements hal on top of WebGPU (wgpu-native).
package wgpuhal

import (
	"fmt"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *Queue
	surface  *Surface
	loss     *hal.DeviceLoss
	logger   gpubench.Logger
}

// Open wraps window into a surface, picks a high-performance adapter and
// configures the swapchain. A missing adapter or device is reported as
// core.ErrUnsupportedPlatform.
func Open(window *glfw.Window, vsync bool, logger gpubench.Logger) (*Device, *Surface, error) {
	logger = gpubench.OrNop(logger)

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, nil, core.PlatformError("request adapter", err)
	}

	loss := &hal.DeviceLoss{}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Load Test Device",
		DeviceLostCallback: func(reason wgpu.DeviceLostReason, message string) {
			if loss.Lose(reason.String(), message) && reason != wgpu.DeviceLostReasonDestroyed {
				logger.Errorf("webgpu device lost (%s): %s", reason, message)
			}
		},
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, nil, core.PlatformError("request device", err)
	}

	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		device.Release()
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, nil, core.PlatformError("surface capabilities", fmt.Errorf("surface reports no formats"))
	}

	presentMode := wgpu.PresentModeFifo
	if !vsync {
		presentMode = wgpu.PresentModeImmediate
	}

	width, height := window.GetFramebufferSize()
	d := &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    &Queue{queue: device.GetQueue(), loss: loss},
		loss:     loss,
		logger:   logger,
	}
	s := &Surface{
		surface: surface,
		adapter: adapter,
		device:  device,
		loss:    loss,
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      caps.Formats[0],
			Width:       uint32(max(width, 1)),
			Height:      uint32(max(height, 1)),
			PresentMode: presentMode,
			AlphaMode:   caps.AlphaModes[0],
		},
	}
	surface.Configure(adapter, device, s.config)
	d.surface = s

	logger.Infof("webgpu device ready: surface %dx%d, format %v, present %v", width, height, s.Format(), presentMode)
	return d, s, nil
}

func (d *Device) Queue() hal.Queue { return d.queue }

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	return &Buffer{buf: buf, size: desc.Size}, nil
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.TextureView, error) {
	if want := int(desc.Width) * int(desc.Height) * 4; len(desc.Pixels) != want {
		return nil, fmt.Errorf("texture %q: have %d bytes, want %d", desc.Label, len(desc.Pixels), want)
	}
	extent := wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	err = d.queue.queue.WriteTexture(tex.AsImageCopy(), desc.Pixels, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  desc.Width * 4,
		RowsPerImage: desc.Height,
	}, &extent)
	if err != nil {
		tex.Release()
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &TextureView{view: view, tex: tex}, nil
}

func (d *Device) CreateDepthTexture(label string, width, height uint32) (hal.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: max(width, 1), Height: max(height, 1), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &TextureView{view: view, tex: tex}, nil
}

func (d *Device) CreateSampler(label string) (hal.Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &Sampler{s: s}, nil
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entries = append(entries, layoutEntry(e))
	}
	l, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroupLayout{layout: l}, nil
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	layout, ok := desc.Layout.(*BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: foreign layout %T", desc.Label, desc.Layout)
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			entry.Buffer = e.Buffer.(*Buffer).buf
			entry.Size = e.Size
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.(*Sampler).s
		case e.Texture != nil:
			entry.TextureView = viewOf(e.Texture)
		default:
			return nil, fmt.Errorf("bind group %q: binding %d has no resource", desc.Label, e.Binding)
		}
		entries = append(entries, entry)
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroup{bg: bg}, nil
}

func (d *Device) pipelineLayout(label string, layouts []hal.BindGroupLayout) (*wgpu.PipelineLayout, error) {
	wl := make([]*wgpu.BindGroupLayout, 0, len(layouts))
	for _, l := range layouts {
		wl = append(wl, l.(*BindGroupLayout).layout)
	}
	return d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Layout",
		BindGroupLayouts: wl,
	})
}

func (d *Device) shaderModule(label, source string) (*wgpu.ShaderModule, error) {
	return d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	module, err := d.shaderModule(desc.Label+" Shader", desc.Source)
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	defer module.Release()

	layout, err := d.pipelineLayout(desc.Label, desc.Layouts)
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	defer layout.Release()

	buffers := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexBuffers))
	for _, vb := range desc.VertexBuffers {
		attrs := make([]wgpu.VertexAttribute, 0, len(vb.Attributes))
		for _, a := range vb.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: vb.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	cull := wgpu.CullModeNone
	if desc.CullBack {
		cull = wgpu.CullModeBack
	}

	var depth *wgpu.DepthStencilState
	if desc.DepthTest {
		depth = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    d.surface.Format(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &RenderPipeline{p: p}, nil
}

func (d *Device) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	module, err := d.shaderModule(desc.Label+" Shader", desc.Source)
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	defer module.Release()

	layout, err := d.pipelineLayout(desc.Label, desc.Layouts)
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	defer layout.Release()

	p, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.Entry,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ComputePipeline{p: p}, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	if err := d.loss.Err("create command encoder"); err != nil {
		return nil, err
	}
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &CommandEncoder{enc: enc}, nil
}

// Release tears down the device, adapter, surface and instance in that order.
func (d *Device) Release() {
	if d.surface != nil {
		d.surface.release()
	}
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}
