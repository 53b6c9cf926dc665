package asset

// VertexBuffer is an opaque byte region holding per-vertex data. Stride is
// the per-vertex byte size and Format a descriptor such as "float3" or
// "ushort4"; neither is interpreted during flattening, they travel to the
// render layer as-is.
type VertexBuffer struct {
	Name   string
	Data   []byte
	Stride int
	Format string
}

// Submesh is one index range of a mesh drawn with a single material.
// IndexSize is the byte width of one index element: 1, 2 or 4.
type Submesh struct {
	Indices   []byte
	IndexSize int
	Material  *Material
}

// Mesh is one drawable object. Meshes are shared by pointer identity when
// several nodes instance the same geometry.
type Mesh struct {
	Name        string
	VertexCount int
	Buffers     []VertexBuffer
	Submeshes   []Submesh
}
