package flatten

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kumoshiro/scenepack/asset"
)

// Texture is a resolved texture reference. The image is owned by the
// GPU-upload layer once handed over; the flatten output only references it.
type Texture struct {
	Name  string
	Image image.Image
}

// TextureLoader resolves a texture name or URI to a decoded image. Loading
// may run on worker threads internally, but Load returns only when the
// texture is final: texture resolution is a blocking dependency of mesh
// encoding.
type TextureLoader interface {
	Load(name string) (*Texture, error)
}

// ValueKind discriminates Value.
type ValueKind int

const (
	ValueScalar ValueKind = iota
	ValueVec3
	ValueVec4
	ValueTexture
)

// Value is the resolved form of one semantic: exactly one of a constant
// (scalar/vec3/vec4) or a texture, decided once during resolution and never
// re-inspected by runtime type tests downstream.
type Value struct {
	Kind    ValueKind
	Scalar  float32
	Vec     [4]float32
	Texture *Texture
}

func scalarValue(f float32) Value     { return Value{Kind: ValueScalar, Scalar: f} }
func vec3Value(x, y, z float32) Value { return Value{Kind: ValueVec3, Vec: [4]float32{x, y, z, 0}} }
func vec4Value(v [4]float32) Value    { return Value{Kind: ValueVec4, Vec: v} }

// Material holds one resolved Value per recognized semantic. Every slot is
// populated; semantics absent from the source carry their default constant.
type Material struct {
	Name   string
	Values [asset.SemanticCount]Value
}

// HasTexture reports whether the semantic resolved to a texture. The render
// layer derives shader function constants from these booleans.
func (m *Material) HasTexture(s asset.Semantic) bool {
	return m.Values[s].Kind == ValueTexture
}

// semantic groups driving uniform type coercion
type semanticGroup int

const (
	groupColor         semanticGroup = iota // vec4, alpha defaults to 1
	groupScalar                             // float, vectors reduced by averaging
	groupVector                             // vec3, scalar broadcast, vec4 truncated
	groupIgnoreUniform                      // only textures are meaningful
)

func groupOf(s asset.Semantic) semanticGroup {
	switch s {
	case asset.SemanticBaseColor, asset.SemanticEmission:
		return groupColor
	case asset.SemanticNormal, asset.SemanticDisplacement:
		return groupVector
	case asset.SemanticOcclusion:
		return groupIgnoreUniform
	default:
		return groupScalar
	}
}

// defaultMaterial returns the constants substituted when a semantic carries
// no source information.
func defaultMaterial(name string) *Material {
	m := &Material{Name: name}
	for s := asset.Semantic(0); s < asset.SemanticCount; s++ {
		switch s {
		case asset.SemanticBaseColor:
			m.Values[s] = vec4Value([4]float32{1, 1, 1, 1})
		case asset.SemanticEmission:
			m.Values[s] = vec4Value([4]float32{0, 0, 0, 1})
		case asset.SemanticNormal:
			m.Values[s] = vec3Value(0, 0, 1)
		case asset.SemanticDisplacement:
			m.Values[s] = vec3Value(0, 0, 0)
		case asset.SemanticOcclusion, asset.SemanticOpacity:
			m.Values[s] = scalarValue(1)
		case asset.SemanticRoughness:
			m.Values[s] = scalarValue(0.9)
		case asset.SemanticIOR:
			m.Values[s] = scalarValue(1.5)
		default:
			m.Values[s] = scalarValue(0)
		}
	}
	return m
}

// MaterialCache memoizes resolved materials keyed by source name + material
// name. Entries are immutable once inserted; the cache is safe for
// concurrent use. It is owned by the caller of the pipeline, never a
// package global.
type MaterialCache struct {
	lru *lru.Cache[string, *Material]
}

// NewMaterialCache returns a bounded LRU material cache.
func NewMaterialCache(size int) (*MaterialCache, error) {
	c, err := lru.New[string, *Material](size)
	if err != nil {
		return nil, err
	}
	return &MaterialCache{lru: c}, nil
}

type materialResolver struct {
	loader TextureLoader
	cache  *MaterialCache
	logger *zap.Logger
}

// Resolve maps a source material onto the semantic table. A texture always
// wins over a uniform for the same semantic regardless of declaration
// order; among uniforms the last declared wins. sourceName scopes cache
// keys (typically the mesh name); caching is skipped entirely when no
// texture loader or no source name was supplied, so uniform-only
// resolutions are never served stale.
func (r *materialResolver) Resolve(src *asset.Material, sourceName string) *Material {
	if src == nil {
		return defaultMaterial("")
	}
	cacheable := r.cache != nil && r.loader != nil && sourceName != ""
	key := sourceName + "/" + src.Name
	if cacheable {
		if m, ok := r.cache.lru.Get(key); ok {
			return m
		}
	}

	m := defaultMaterial(src.Name)
	var hasTexture [asset.SemanticCount]bool
	for i := range src.Properties {
		p := &src.Properties[i]
		if p.Semantic < 0 || p.Semantic >= asset.SemanticCount {
			continue
		}
		if tex := r.resolveTexture(p); tex != nil {
			m.Values[p.Semantic] = Value{Kind: ValueTexture, Texture: tex}
			hasTexture[p.Semantic] = true
			continue
		}
		if hasTexture[p.Semantic] {
			continue
		}
		if v, ok := coerceUniform(p); ok {
			m.Values[p.Semantic] = v
		}
	}

	if cacheable {
		r.cache.lru.Add(key, m)
	}
	return m
}

// resolveTexture returns the property's texture, or nil when the property
// is not texture-valued or loading failed (the semantic then keeps its
// uniform or default).
func (r *materialResolver) resolveTexture(p *asset.Property) *Texture {
	switch p.Type {
	case asset.PropertySampler:
		if p.Sampler == nil {
			return nil
		}
		return &Texture{Name: p.Name, Image: p.Sampler}
	case asset.PropertyString, asset.PropertyURI:
		if r.loader == nil || p.String == "" {
			return nil
		}
		tex, err := r.loader.Load(p.String)
		if err != nil {
			r.logger.Warn("texture load failed, using default constant",
				zap.String("texture", p.String), zap.Error(err))
			return nil
		}
		return tex
	}
	return nil
}

// coerceUniform applies the per-group type coercion table.
func coerceUniform(p *asset.Property) (Value, bool) {
	switch groupOf(p.Semantic) {
	case groupColor:
		switch p.Type {
		case asset.PropertyFloat:
			return vec4Value([4]float32{p.Float, p.Float, p.Float, 1}), true
		case asset.PropertyVec3:
			return vec4Value([4]float32{p.Vector[0], p.Vector[1], p.Vector[2], 1}), true
		case asset.PropertyVec4, asset.PropertyColor:
			return vec4Value(p.Vector), true
		}
	case groupScalar:
		switch p.Type {
		case asset.PropertyFloat:
			return scalarValue(p.Float), true
		case asset.PropertyVec3:
			return scalarValue((p.Vector[0] + p.Vector[1] + p.Vector[2]) / 3), true
		case asset.PropertyVec4, asset.PropertyColor:
			return scalarValue((p.Vector[0] + p.Vector[1] + p.Vector[2] + p.Vector[3]) / 4), true
		}
	case groupVector:
		switch p.Type {
		case asset.PropertyFloat:
			return vec3Value(p.Float, p.Float, p.Float), true
		case asset.PropertyVec3, asset.PropertyVec4, asset.PropertyColor:
			return vec3Value(p.Vector[0], p.Vector[1], p.Vector[2]), true
		}
	case groupIgnoreUniform:
		// occlusion constants carry no information, keep the default 1.0
	}
	return Value{}, false
}
