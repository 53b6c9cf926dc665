package gltfasset

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/kumoshiro/scenepack/asset"
)

func accessorFormat(acc *gltf.Accessor) string {
	var comp string
	switch acc.ComponentType {
	case gltf.ComponentByte:
		comp = "byte"
	case gltf.ComponentUbyte:
		comp = "ubyte"
	case gltf.ComponentShort:
		comp = "short"
	case gltf.ComponentUshort:
		comp = "ushort"
	case gltf.ComponentUint:
		comp = "uint"
	case gltf.ComponentFloat:
		comp = "float"
	default:
		comp = "unknown"
	}
	if n := typeComponents(acc.Type); n > 1 {
		return fmt.Sprintf("%s%d", comp, n)
	}
	return comp
}

// convertMesh converts one glTF mesh, memoized by index so nodes sharing a
// mesh share the same pointer (the flatten pipeline groups instances by
// mesh identity).
func (c *converter) convertMesh(index uint32) (*asset.Mesh, error) {
	if m, ok := c.meshes[index]; ok {
		return m, nil
	}
	if int(index) >= len(c.doc.Meshes) {
		return nil, errors.Errorf("mesh index %d out of range", index)
	}
	src := c.doc.Meshes[index]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", index)
	}
	mesh := &asset.Mesh{Name: name}

	for pi, prim := range src.Primitives {
		// deterministic buffer order: glTF attribute maps are unordered
		attrs := make([]string, 0, len(prim.Attributes))
		for a := range prim.Attributes {
			attrs = append(attrs, a)
		}
		sort.Strings(attrs)

		for _, a := range attrs {
			accIndex := prim.Attributes[a]
			data, elemSize, err := c.accessorBytes(accIndex)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %q primitive %d attribute %s", name, pi, a)
			}
			mesh.Buffers = append(mesh.Buffers, asset.VertexBuffer{
				Name:   fmt.Sprintf("%d:%s", pi, a),
				Data:   data,
				Stride: elemSize,
				Format: accessorFormat(c.doc.Accessors[accIndex]),
			})
			if a == "POSITION" && mesh.VertexCount == 0 {
				mesh.VertexCount = int(c.doc.Accessors[accIndex].Count)
			}
		}

		sub, err := c.convertSubmesh(prim, name, pi)
		if err != nil {
			return nil, err
		}
		mesh.Submeshes = append(mesh.Submeshes, sub)
	}

	c.meshes[index] = mesh
	return mesh, nil
}

func (c *converter) convertSubmesh(prim *gltf.Primitive, meshName string, pi int) (asset.Submesh, error) {
	sub := asset.Submesh{}
	if prim.Indices != nil {
		data, elemSize, err := c.accessorBytes(*prim.Indices)
		if err != nil {
			return sub, errors.Wrapf(err, "mesh %q primitive %d indices", meshName, pi)
		}
		sub.Indices = data
		sub.IndexSize = elemSize
	} else {
		// non-indexed primitive: synthesize a sequential index buffer
		count := 0
		if pos, ok := prim.Attributes["POSITION"]; ok {
			count = int(c.doc.Accessors[pos].Count)
		}
		sub.Indices = make([]byte, count*4)
		for i := 0; i < count; i++ {
			binary.LittleEndian.PutUint32(sub.Indices[i*4:], uint32(i))
		}
		sub.IndexSize = 4
	}

	if prim.Material != nil {
		mat, err := c.convertMaterial(*prim.Material)
		if err != nil {
			return sub, err
		}
		sub.Material = mat
	}
	return sub, nil
}
