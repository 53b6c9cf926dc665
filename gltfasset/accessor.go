package gltfasset

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/kumoshiro/scenepack/geom"
)

func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

func typeComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

// accessorBytes extracts an accessor's elements as tightly packed bytes,
// de-interleaving strided buffer views.
func (c *converter) accessorBytes(index uint32) ([]byte, int, error) {
	if int(index) >= len(c.doc.Accessors) {
		return nil, 0, errors.Errorf("accessor %d out of range", index)
	}
	acc := c.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, 0, errors.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	elemSize := componentSize(acc.ComponentType) * typeComponents(acc.Type)
	if elemSize == 0 {
		return nil, 0, errors.Errorf("accessor %d: unknown element layout", index)
	}
	count := int(acc.Count)
	if acc.BufferView == nil {
		// zero-initialized per glTF spec
		return make([]byte, count*elemSize), elemSize, nil
	}
	bv := c.doc.BufferViews[*acc.BufferView]
	data := c.doc.Buffers[bv.Buffer].Data
	base := int(bv.ByteOffset) + int(acc.ByteOffset)
	stride := int(bv.ByteStride)
	if stride == 0 || stride == elemSize {
		end := base + count*elemSize
		if end > len(data) {
			return nil, 0, errors.Errorf("accessor %d: %d bytes past end of buffer", index, end-len(data))
		}
		out := make([]byte, count*elemSize)
		copy(out, data[base:end])
		return out, elemSize, nil
	}
	out := make([]byte, 0, count*elemSize)
	for i := 0; i < count; i++ {
		off := base + i*stride
		if off+elemSize > len(data) {
			return nil, 0, errors.Errorf("accessor %d: element %d past end of buffer", index, i)
		}
		out = append(out, data[off:off+elemSize]...)
	}
	return out, elemSize, nil
}

// accessorFloats reads a float accessor as flat float32 values.
func (c *converter) accessorFloats(index uint32) ([]float32, error) {
	acc := c.doc.Accessors[index]
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, errors.Errorf("accessor %d: expected float components", index)
	}
	raw, _, err := c.accessorBytes(index)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (c *converter) readScalars(index uint32) ([]float32, error) {
	return c.accessorFloats(index)
}

func (c *converter) readVec3s(index uint32) ([][4]float32, error) {
	f, err := c.accessorFloats(index)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(f)/3)
	for i := range out {
		out[i] = [4]float32{f[i*3], f[i*3+1], f[i*3+2], 0}
	}
	return out, nil
}

func (c *converter) readVec4s(index uint32) ([][4]float32, error) {
	f, err := c.accessorFloats(index)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(f)/4)
	for i := range out {
		out[i] = [4]float32{f[i*4], f[i*4+1], f[i*4+2], f[i*4+3]}
	}
	return out, nil
}

func (c *converter) readMat4s(index uint32) ([]geom.Matrix4, error) {
	f, err := c.accessorFloats(index)
	if err != nil {
		return nil, err
	}
	out := make([]geom.Matrix4, len(f)/16)
	for i := range out {
		copy(out[i][:], f[i*16:(i+1)*16])
	}
	return out, nil
}
