package gpu

import (
	"fmt"
	"image"
	"unsafe"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"
	"github.com/gekko3d/gpubench/loadtest/lt/hal"
	"github.com/gekko3d/gpubench/loadtest/lt/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Uniform buffers are padded to the minimum uniform binding size.
	uniformSize = 256
	depthClear  = 1.0
)

var ClearColor = hal.Color{R: 0.1, G: 0.1, B: 0.12, A: 1}

type RendererOptions struct {
	// Programs holds the full render program for each style.
	Programs map[core.RenderStyle]string
	// Texture is sampled by the textured style.
	Texture *image.RGBA
	// InstanceLimit caps the instance count of every draw. Zero means no cap.
	InstanceLimit int
	Logger        gpubench.Logger
}

// Renderer owns the cube mesh, depth buffer and the three style pipelines,
// and records one color+depth pass per frame.
type Renderer struct {
	device  hal.Device
	queue   hal.Queue
	surface hal.Surface
	logger  gpubench.Logger

	mesh          *core.Mesh
	vertexBuffer  hal.Buffer
	indexBuffer   hal.Buffer
	depth         hal.TextureView
	width, height int
	proj          mgl32.Mat4

	instanceLayout hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout
	pipelines      map[core.RenderStyle]hal.RenderPipeline

	uniform     hal.Buffer
	identity    hal.Buffer
	sampler     hal.Sampler
	texture     hal.TextureView
	textureBind hal.BindGroup

	// Instance bind group, rebuilt only when the bound buffer changes.
	boundBuffer  hal.Buffer
	instanceBind hal.BindGroup

	instanceLimit int
}

func NewRenderer(device hal.Device, surface hal.Surface, opts RendererOptions) (*Renderer, error) {
	r := &Renderer{
		device:        device,
		queue:         device.Queue(),
		surface:       surface,
		logger:        gpubench.OrNop(opts.Logger),
		mesh:          core.CubeMesh(),
		pipelines:     make(map[core.RenderStyle]hal.RenderPipeline, len(core.Styles)),
		instanceLimit: opts.InstanceLimit,
	}
	if err := r.init(opts); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(opts RendererOptions) error {
	r.width, r.height = r.surface.Size()
	if err := r.createDepth(); err != nil {
		return err
	}
	r.proj = core.ProjectionMatrix(r.width, r.height)

	if err := r.createLayouts(); err != nil {
		return err
	}
	if err := r.createPipelines(opts.Programs); err != nil {
		return err
	}
	if err := r.createMeshBuffers(); err != nil {
		return err
	}
	if err := r.createUniforms(); err != nil {
		return err
	}
	if err := r.createTextureBinding(opts.Texture); err != nil {
		return err
	}
	return r.bindInstances(r.identity)
}

func (r *Renderer) createDepth() error {
	depth, err := r.device.CreateDepthTexture("Depth Texture", uint32(max(r.width, 1)), uint32(max(r.height, 1)))
	if err != nil {
		return core.ResourceError("depth texture", err)
	}
	if r.depth != nil {
		r.depth.Release()
	}
	r.depth = depth
	return nil
}

func (r *Renderer) createLayouts() error {
	var err error
	r.instanceLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "Instance BGL",
		Entries: []hal.LayoutEntry{
			{Binding: 0, Visibility: hal.StageVertex, Type: hal.BindingUniform, MinBindingSize: uniformSize},
			{Binding: 1, Visibility: hal.StageVertex, Type: hal.BindingReadOnlyStorage, MinBindingSize: matrixSize},
		},
	})
	if err != nil {
		return core.ResourceError("instance bind group layout", err)
	}
	r.textureLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "Texture BGL",
		Entries: []hal.LayoutEntry{
			{Binding: 0, Visibility: hal.StageFragment, Type: hal.BindingSampler},
			{Binding: 1, Visibility: hal.StageFragment, Type: hal.BindingTexture},
		},
	})
	if err != nil {
		return core.ResourceError("texture bind group layout", err)
	}
	return nil
}

func vertexLayout() hal.VertexBufferLayout {
	return hal.VertexBufferLayout{
		Stride: core.VertexStride,
		Attributes: []hal.VertexAttribute{
			{Format: hal.VertexFormatFloat32x3, Offset: core.OffsetPosition, Location: 0},
			{Format: hal.VertexFormatFloat32x3, Offset: core.OffsetNormal, Location: 1},
			{Format: hal.VertexFormatFloat32x2, Offset: core.OffsetUV, Location: 2},
			{Format: hal.VertexFormatFloat32x3, Offset: core.OffsetColor, Location: 3},
		},
	}
}

func (r *Renderer) createPipelines(programs map[core.RenderStyle]string) error {
	for _, style := range core.Styles {
		src, ok := programs[style]
		if !ok || src == "" {
			return core.ResourceError(style.String()+" pipeline", fmt.Errorf("no program for style"))
		}
		p, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:         style.String() + " Pipeline",
			Source:        src,
			VertexEntry:   shaders.VertexEntry,
			FragmentEntry: shaders.FragmentEntry,
			Layouts:       []hal.BindGroupLayout{r.instanceLayout, r.textureLayout},
			VertexBuffers: []hal.VertexBufferLayout{vertexLayout()},
			CullBack:      true,
			DepthTest:     true,
		})
		if err != nil {
			return core.ResourceError(style.String()+" pipeline", err)
		}
		r.pipelines[style] = p
	}
	return nil
}

func (r *Renderer) createMeshBuffers() error {
	vb := r.mesh.VertexBytes()
	ib := r.mesh.IndexBytes()

	var err error
	r.vertexBuffer, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Cube VB",
		Size:  uint64(len(vb)),
		Usage: hal.BufferUsageVertex | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return core.ResourceError("vertex buffer", err)
	}
	if err := r.queue.WriteBuffer(r.vertexBuffer, 0, vb); err != nil {
		return core.ResourceError("upload vertices", err)
	}

	r.indexBuffer, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Cube IB",
		Size:  uint64(len(ib)),
		Usage: hal.BufferUsageIndex | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return core.ResourceError("index buffer", err)
	}
	if err := r.queue.WriteBuffer(r.indexBuffer, 0, ib); err != nil {
		return core.ResourceError("upload indices", err)
	}
	return nil
}

func (r *Renderer) createUniforms() error {
	var err error
	r.uniform, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "MVP Uniform",
		Size:  uniformSize,
		Usage: hal.BufferUsageUniform | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return core.ResourceError("mvp uniform", err)
	}

	r.identity, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Identity Instance",
		Size:  matrixSize,
		Usage: hal.BufferUsageStorage | hal.BufferUsageCopyDst,
	})
	if err != nil {
		return core.ResourceError("identity buffer", err)
	}
	ident := mgl32.Ident4()
	if err := r.queue.WriteBuffer(r.identity, 0, matrixBytes(&ident, 1)); err != nil {
		return core.ResourceError("upload identity", err)
	}
	return nil
}

func (r *Renderer) createTextureBinding(img *image.RGBA) error {
	if img == nil {
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 255, 255, 255, 255
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := img.Pix
	if img.Stride != w*4 || len(img.Pix) != w*h*4 {
		pixels = make([]byte, 0, w*h*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			pixels = append(pixels, img.Pix[off:off+w*4]...)
		}
	}

	var err error
	r.texture, err = r.device.CreateTexture(&hal.TextureDescriptor{
		Label:  "Cube Texture",
		Width:  uint32(w),
		Height: uint32(h),
		Pixels: pixels,
	})
	if err != nil {
		return core.ResourceError("cube texture", err)
	}
	r.sampler, err = r.device.CreateSampler("Cube Sampler")
	if err != nil {
		return core.ResourceError("sampler", err)
	}
	r.textureBind, err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "Texture BG",
		Layout: r.textureLayout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Sampler: r.sampler},
			{Binding: 1, Texture: r.texture},
		},
	})
	if err != nil {
		return core.ResourceError("texture bind group", err)
	}
	return nil
}

func (r *Renderer) bindInstances(buf hal.Buffer) error {
	if r.instanceBind != nil && r.boundBuffer == buf {
		return nil
	}
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "Instance BG",
		Layout: r.instanceLayout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Buffer: r.uniform, Size: uniformSize},
			{Binding: 1, Buffer: buf, Size: buf.Size()},
		},
	})
	if err != nil {
		return core.ResourceError("instance bind group", err)
	}
	if r.instanceBind != nil {
		r.instanceBind.Release()
	}
	r.boundBuffer, r.instanceBind = buf, bg
	return nil
}

func matrixBytes(m *mgl32.Mat4, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&m[0])), n*matrixSize)
}

// Resize rebuilds the depth buffer and projection. Zero sizes are ignored.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.surface.Resize(width, height); err != nil {
		return core.ResourceError("resize surface", err)
	}
	r.width, r.height = width, height
	r.proj = core.ProjectionMatrix(width, height)
	return r.createDepth()
}

func (r *Renderer) Projection() mgl32.Mat4 { return r.proj }

// InstancesFor is the instance count a draw of count instances from buf
// actually uses.
func (r *Renderer) InstancesFor(buf hal.Buffer, count int) uint32 {
	if count < 0 {
		count = 0
	}
	if buf != nil && buf != r.identity {
		count = min(count, int(buf.Size()/matrixSize))
	}
	if r.instanceLimit > 0 {
		count = min(count, r.instanceLimit)
	}
	return uint32(count)
}

// RenderInstances records one color+depth pass drawing count cube
// instances whose model matrices come from buf. A nil buf draws every
// instance with the identity transform.
func (r *Renderer) RenderInstances(enc hal.CommandEncoder, buf hal.Buffer, count int, angleX, angleY float32, style core.RenderStyle) error {
	pipeline, ok := r.pipelines[style]
	if !ok {
		return &core.InvalidValueError{Kind: "render style", Value: int(style)}
	}
	if buf == nil {
		buf = r.identity
	}

	mvp := core.MultiplyMat4(r.proj, core.ViewMatrix(angleX, angleY))
	if err := r.queue.WriteBuffer(r.uniform, 0, matrixBytes(&mvp, 1)); err != nil {
		return core.SubmissionError("write mvp", err)
	}
	if err := r.bindInstances(buf); err != nil {
		return err
	}

	view, err := r.surface.AcquireView()
	if err != nil {
		return core.SubmissionError("acquire surface texture", err)
	}

	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:      "Cube Pass",
		Color:      view,
		ClearColor: ClearColor,
		Depth:      r.depth,
		DepthClear: depthClear,
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, r.instanceBind)
	pass.SetBindGroup(1, r.textureBind)
	pass.SetVertexBuffer(0, r.vertexBuffer)
	pass.SetIndexBuffer(r.indexBuffer, hal.IndexFormatUint16)
	pass.DrawIndexed(r.mesh.IndexCount(), r.InstancesFor(buf, count))
	if err := pass.End(); err != nil {
		return core.SubmissionError("end render pass", err)
	}
	return nil
}

// Present shows the frame acquired by the last RenderInstances, if any.
func (r *Renderer) Present() {
	r.surface.Present()
}

func (r *Renderer) Release() {
	res := []interface{ Release() }{
		r.instanceBind, r.textureBind, r.texture, r.sampler,
		r.identity, r.uniform, r.indexBuffer, r.vertexBuffer,
	}
	for _, style := range core.Styles {
		if p, ok := r.pipelines[style]; ok {
			res = append(res, p)
		}
	}
	res = append(res, r.textureLayout, r.instanceLayout, r.depth)
	for _, x := range res {
		if x != nil {
			x.Release()
		}
	}
	r.instanceBind, r.boundBuffer = nil, nil
	r.pipelines = map[core.RenderStyle]hal.RenderPipeline{}
}
