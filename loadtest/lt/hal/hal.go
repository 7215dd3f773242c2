// Package hal is the device/queue abstraction the benchmark core records
// against. The wgpuhal package backs it with WebGPU; haltest records calls
// for tests.
package hal

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopyDst
	BufferUsageCopySrc
)

type ShaderStage uint32

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
)

type BindingType int

const (
	BindingUniform BindingType = iota
	BindingStorage
	BindingReadOnlyStorage
	BindingSampler
	BindingTexture
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a sampled 2D RGBA8 texture. Pixels holds
// Width*Height*4 bytes, row-major with no padding.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Pixels []byte
}

type LayoutEntry struct {
	Binding        uint32
	Visibility     ShaderStage
	Type           BindingType
	MinBindingSize uint64
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []LayoutEntry
}

// BindGroupEntry sets exactly one of Buffer, Sampler or Texture.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Size    uint64
	Sampler Sampler
	Texture TextureView
}

type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

type VertexBufferLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

type RenderPipelineDescriptor struct {
	Label         string
	Source        string
	VertexEntry   string
	FragmentEntry string
	Layouts       []BindGroupLayout
	VertexBuffers []VertexBufferLayout
	CullBack      bool
	// DepthTest enables depth24plus less-compare with writes.
	DepthTest bool
}

type ComputePipelineDescriptor struct {
	Label   string
	Source  string
	Entry   string
	Layouts []BindGroupLayout
}

type Color struct {
	R, G, B, A float64
}

// RenderPassDescriptor clears one color target and an optional depth target.
type RenderPassDescriptor struct {
	Label      string
	Color      TextureView
	ClearColor Color
	Depth      TextureView
	DepthClear float32
}

type Buffer interface {
	Size() uint64
	Release()
}

type TextureView interface{ Release() }
type Sampler interface{ Release() }
type BindGroupLayout interface{ Release() }
type BindGroup interface{ Release() }
type RenderPipeline interface{ Release() }
type ComputePipeline interface{ Release() }
type CommandBuffer interface{ Release() }

// Device creates every GPU object. Creation errors are reported as-is;
// callers decide whether they are fatal.
type Device interface {
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateTexture(desc *TextureDescriptor) (TextureView, error)
	CreateDepthTexture(label string, width, height uint32) (TextureView, error)
	CreateSampler(label string) (Sampler, error)
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)
	Queue() Queue
	Release()
}

// Queue submissions never wait for the GPU.
type Queue interface {
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	Submit(cmds ...CommandBuffer) error
}

type CommandEncoder interface {
	BeginRenderPass(desc *RenderPassDescriptor) RenderPass
	BeginComputePass(label string) ComputePass
	Finish() (CommandBuffer, error)
	Release()
}

type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	DrawIndexed(indexCount, instanceCount uint32)
	End() error
}

type ComputePass interface {
	SetPipeline(p ComputePipeline)
	SetBindGroup(index uint32, bg BindGroup)
	DispatchWorkgroups(x, y, z uint32)
	End() error
}

// Surface is the presentable window target. AcquireView returns the view
// for the next frame; Present shows it.
type Surface interface {
	Size() (width, height int)
	AcquireView() (TextureView, error)
	Present()
	Resize(width, height int) error
}
