package flatten

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/kumoshiro/scenepack/asset"
)

// BufferRange locates a byte run inside one of the shared pools.
type BufferRange struct {
	Offset int
	Length int
}

// VertexBufferRange is one vertex buffer copied verbatim into the vertex
// pool, with its descriptor carried through for the render layer.
type VertexBufferRange struct {
	Range  BufferRange
	Stride int
	Format string
}

// SubmeshRecord is one index range with its resolved material. Index32
// selects the index element width; 8-bit source indices were widened to
// 16-bit during encoding.
type SubmeshRecord struct {
	IndexRange BufferRange
	IndexCount int
	Index32    bool
	Material   *Material
}

// MeshRecord is one encoded drawable mesh. Several scene nodes may share a
// record (instancing).
type MeshRecord struct {
	Name          string
	VertexCount   int
	VertexBuffers []VertexBufferRange
	Submeshes     []SubmeshRecord
}

// meshEncoder copies mesh bytes into the shared pools and resolves submesh
// materials. Buffers are copied exactly; no reformatting happens here.
type meshEncoder struct {
	vertexPool []byte
	indexPool  []byte
	materials  *materialResolver
	logger     *zap.Logger
}

func (e *meshEncoder) encode(mesh *asset.Mesh) (*MeshRecord, error) {
	rec := &MeshRecord{Name: mesh.Name, VertexCount: mesh.VertexCount}

	for i := range mesh.Buffers {
		vb := &mesh.Buffers[i]
		rec.VertexBuffers = append(rec.VertexBuffers, VertexBufferRange{
			Range:  BufferRange{Offset: len(e.vertexPool), Length: len(vb.Data)},
			Stride: vb.Stride,
			Format: vb.Format,
		})
		e.vertexPool = append(e.vertexPool, vb.Data...)
	}

	for i := range mesh.Submeshes {
		sub := &mesh.Submeshes[i]
		sr, err := e.encodeSubmesh(mesh, sub)
		if err != nil {
			return nil, err
		}
		rec.Submeshes = append(rec.Submeshes, sr)
	}
	return rec, nil
}

func (e *meshEncoder) encodeSubmesh(mesh *asset.Mesh, sub *asset.Submesh) (SubmeshRecord, error) {
	sr := SubmeshRecord{}
	switch sub.IndexSize {
	case 2, 4:
		if len(sub.Indices)%sub.IndexSize != 0 {
			return sr, fmt.Errorf("mesh %q: index buffer length %d not a multiple of element size %d",
				mesh.Name, len(sub.Indices), sub.IndexSize)
		}
		sr.IndexRange = BufferRange{Offset: len(e.indexPool), Length: len(sub.Indices)}
		sr.IndexCount = len(sub.Indices) / sub.IndexSize
		sr.Index32 = sub.IndexSize == 4
		e.indexPool = append(e.indexPool, sub.Indices...)
	case 1:
		// GPU index formats start at 16 bit
		e.logger.Warn("widening 8-bit index buffer to 16-bit", zap.String("mesh", mesh.Name))
		sr.IndexRange = BufferRange{Offset: len(e.indexPool), Length: len(sub.Indices) * 2}
		sr.IndexCount = len(sub.Indices)
		widened := make([]byte, len(sub.Indices)*2)
		for j, v := range sub.Indices {
			binary.LittleEndian.PutUint16(widened[j*2:], uint16(v))
		}
		e.indexPool = append(e.indexPool, widened...)
	default:
		return sr, fmt.Errorf("mesh %q: unsupported index element size %d", mesh.Name, sub.IndexSize)
	}

	sr.Material = e.materials.Resolve(sub.Material, mesh.Name)
	return sr, nil
}
