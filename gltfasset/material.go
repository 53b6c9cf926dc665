package gltfasset

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/kumoshiro/scenepack/asset"
)

// convertMaterial maps a glTF PBR material onto the ordered semantic
// property list, memoized by index. Factors come first and textures after
// them; the flatten resolver's texture-wins rule makes the order between
// the two irrelevant, but uniform declaration order is preserved.
func (c *converter) convertMaterial(index uint32) (*asset.Material, error) {
	if m, ok := c.materials[index]; ok {
		return m, nil
	}
	if int(index) >= len(c.doc.Materials) {
		return nil, errors.Errorf("material index %d out of range", index)
	}
	src := c.doc.Materials[index]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("material%d", index)
	}
	mat := &asset.Material{Name: name}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.Properties = append(mat.Properties, asset.Property{
				Name:     "baseColorFactor",
				Semantic: asset.SemanticBaseColor,
				Type:     asset.PropertyColor,
				Vector:   *pbr.BaseColorFactor,
			})
		}
		if pbr.MetallicFactor != nil {
			mat.Properties = append(mat.Properties, asset.Property{
				Name:     "metallicFactor",
				Semantic: asset.SemanticMetallic,
				Type:     asset.PropertyFloat,
				Float:    *pbr.MetallicFactor,
			})
		}
		if pbr.RoughnessFactor != nil {
			mat.Properties = append(mat.Properties, asset.Property{
				Name:     "roughnessFactor",
				Semantic: asset.SemanticRoughness,
				Type:     asset.PropertyFloat,
				Float:    *pbr.RoughnessFactor,
			})
		}
		if pbr.BaseColorTexture != nil {
			if err := c.addTexture(mat, asset.SemanticBaseColor, pbr.BaseColorTexture.Index); err != nil {
				return nil, errors.Wrapf(err, "material %q baseColor", name)
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			// combined in glTF: blue channel is metallic, green roughness;
			// both semantics reference the same image
			if err := c.addTexture(mat, asset.SemanticMetallic, pbr.MetallicRoughnessTexture.Index); err != nil {
				return nil, errors.Wrapf(err, "material %q metallicRoughness", name)
			}
			if err := c.addTexture(mat, asset.SemanticRoughness, pbr.MetallicRoughnessTexture.Index); err != nil {
				return nil, errors.Wrapf(err, "material %q metallicRoughness", name)
			}
		}
	}

	if src.NormalTexture != nil && src.NormalTexture.Index != nil {
		if err := c.addTexture(mat, asset.SemanticNormal, *src.NormalTexture.Index); err != nil {
			return nil, errors.Wrapf(err, "material %q normal", name)
		}
	}
	if src.OcclusionTexture != nil && src.OcclusionTexture.Index != nil {
		if err := c.addTexture(mat, asset.SemanticOcclusion, *src.OcclusionTexture.Index); err != nil {
			return nil, errors.Wrapf(err, "material %q occlusion", name)
		}
	}
	if src.EmissiveFactor != [3]float32{} {
		mat.Properties = append(mat.Properties, asset.Property{
			Name:     "emissiveFactor",
			Semantic: asset.SemanticEmission,
			Type:     asset.PropertyVec3,
			Vector:   [4]float32{src.EmissiveFactor[0], src.EmissiveFactor[1], src.EmissiveFactor[2], 0},
		})
	}
	if src.EmissiveTexture != nil {
		if err := c.addTexture(mat, asset.SemanticEmission, src.EmissiveTexture.Index); err != nil {
			return nil, errors.Wrapf(err, "material %q emissive", name)
		}
	}

	c.materials[index] = mat
	return mat, nil
}

// addTexture appends a texture-valued property: embedded images arrive
// pre-decoded as samplers, external ones as URI properties resolved later
// by the texture loader.
func (c *converter) addTexture(mat *asset.Material, sem asset.Semantic, texIndex uint32) error {
	if int(texIndex) >= len(c.doc.Textures) {
		return errors.Errorf("texture index %d out of range", texIndex)
	}
	tex := c.doc.Textures[texIndex]
	if tex.Source == nil || int(*tex.Source) >= len(c.doc.Images) {
		return nil // untextured sampler slot, nothing to resolve
	}
	img := c.doc.Images[*tex.Source]

	switch {
	case img.BufferView != nil:
		bv := c.doc.BufferViews[*img.BufferView]
		data := c.doc.Buffers[bv.Buffer].Data
		end := int(bv.ByteOffset) + int(bv.ByteLength)
		if end > len(data) {
			return errors.Errorf("image %d past end of buffer", *tex.Source)
		}
		decoded, _, err := image.Decode(bytes.NewReader(data[bv.ByteOffset:end]))
		if err != nil {
			return errors.Wrapf(err, "decode embedded image %d", *tex.Source)
		}
		mat.Properties = append(mat.Properties, asset.Property{
			Name:     fmt.Sprintf("%s:%v", mat.Name, sem),
			Semantic: sem,
			Type:     asset.PropertySampler,
			Sampler:  decoded,
		})
	case strings.HasPrefix(img.URI, "data:"):
		decoded, err := decodeDataURI(img.URI)
		if err != nil {
			return errors.Wrapf(err, "decode data URI image %d", *tex.Source)
		}
		mat.Properties = append(mat.Properties, asset.Property{
			Name:     fmt.Sprintf("%s:%v", mat.Name, sem),
			Semantic: sem,
			Type:     asset.PropertySampler,
			Sampler:  decoded,
		})
	case img.URI != "":
		mat.Properties = append(mat.Properties, asset.Property{
			Name:     img.URI,
			Semantic: sem,
			Type:     asset.PropertyURI,
			String:   img.URI,
		})
	}
	return nil
}

func decodeDataURI(uri string) (image.Image, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}
