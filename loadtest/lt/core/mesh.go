package core

import (
	"encoding/binary"
	"unsafe"
)

// Vertex matches the vertex buffer layout shared by all three render pipelines.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [3]float32
}

// VertexStride is the byte size of one Vertex (11 floats).
const VertexStride = uint64(unsafe.Sizeof(Vertex{}))

// Vertex attribute byte offsets and shader locations.
const (
	OffsetPosition = 0
	OffsetNormal   = 12
	OffsetUV       = 24
	OffsetColor    = 32
)

// Mesh is immutable after construction.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

func (m *Mesh) IndexCount() uint32 { return uint32(len(m.Indices)) }

// VertexBytes views the vertex slice as raw bytes for upload.
func (m *Mesh) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*int(VertexStride))
}

// IndexBytes is padded to a multiple of 4 bytes, as buffer writes require.
func (m *Mesh) IndexBytes() []byte {
	n := len(m.Indices) * 2
	out := make([]byte, (n+3)&^3)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint16(out[2*i:], idx)
	}
	return out
}

// CubeMesh is the 2x2x2 cube every instance draws: 8 shared corners and
// 12 counter-clockwise triangles.
func CubeMesh() *Mesh {
	return &Mesh{
		Vertices: []Vertex{
			{Position: [3]float32{-1, -1, 1}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{0, 0}, Color: [3]float32{1, 0, 0}},
			{Position: [3]float32{1, -1, 1}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{1, 0}, Color: [3]float32{0, 1, 0}},
			{Position: [3]float32{1, 1, 1}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{1, 1}, Color: [3]float32{0, 0, 1}},
			{Position: [3]float32{-1, 1, 1}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{0, 1}, Color: [3]float32{1, 1, 0}},
			{Position: [3]float32{-1, -1, -1}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{1, 0}, Color: [3]float32{1, 0, 1}},
			{Position: [3]float32{1, -1, -1}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{0, 0}, Color: [3]float32{0, 1, 1}},
			{Position: [3]float32{1, 1, -1}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{0, 1}, Color: [3]float32{1, 1, 1}},
			{Position: [3]float32{-1, 1, -1}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{1, 1}, Color: [3]float32{0.2, 0.2, 0.2}},
		},
		Indices: []uint16{
			0, 1, 2, 0, 2, 3, // front
			4, 6, 5, 4, 7, 6, // back
			4, 0, 3, 4, 3, 7, // left
			1, 5, 6, 1, 6, 2, // right
			3, 2, 6, 3, 6, 7, // top
			4, 5, 1, 4, 1, 0, // bottom
		},
	}
}
