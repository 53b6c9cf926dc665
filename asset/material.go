package asset

import "image"

// Semantic names a physical material property slot.
type Semantic int

const (
	SemanticBaseColor Semantic = iota
	SemanticMetallic
	SemanticRoughness
	SemanticNormal
	SemanticDisplacement
	SemanticOcclusion
	SemanticEmission
	SemanticSubsurface
	SemanticSpecular
	SemanticSpecularTint
	SemanticAnisotropic
	SemanticSheen
	SemanticSheenTint
	SemanticClearcoat
	SemanticClearcoatGloss
	SemanticOpacity
	SemanticIOR

	SemanticCount
)

var semanticNames = [SemanticCount]string{
	"baseColor", "metallic", "roughness", "normal", "displacement",
	"occlusion", "emission", "subsurface", "specular", "specularTint",
	"anisotropic", "sheen", "sheenTint", "clearcoat", "clearcoatGloss",
	"opacity", "ior",
}

func (s Semantic) String() string {
	if s < 0 || s >= SemanticCount {
		return "unknown"
	}
	return semanticNames[s]
}

// PropertyType is the wire type of a material property value.
type PropertyType int

const (
	PropertyFloat PropertyType = iota
	PropertyVec2
	PropertyVec3
	PropertyVec4
	PropertyColor
	PropertyString  // texture file name, resolved by a texture loader
	PropertyURI     // external texture location
	PropertySampler // embedded, already-decoded texture image
)

// Property is one (semantic, type, value) entry of a material. Only the
// payload field matching Type is meaningful.
type Property struct {
	Name     string
	Semantic Semantic
	Type     PropertyType

	Float   float32
	Vector  [4]float32 // vec2/vec3/vec4/color payload, unused tail is zero
	String  string     // string/URI payload
	Sampler image.Image
}

// Material is an ordered property list. Declaration order matters: the
// flatten resolver applies last-write-wins among uniforms.
type Material struct {
	Name       string
	Properties []Property
}
