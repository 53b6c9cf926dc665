package flatten

import (
	"fmt"
	"image"
	"testing"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/kumoshiro/scenepack/asset"
)

type stubLoader struct {
	loads int
	fail  bool
}

func (l *stubLoader) Load(name string) (*Texture, error) {
	l.loads++
	if l.fail {
		return nil, fmt.Errorf("no such texture %q", name)
	}
	return &Texture{Name: name, Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}, nil
}

func newTestResolver(loader TextureLoader, cache *MaterialCache) *materialResolver {
	return &materialResolver{loader: loader, cache: cache, logger: zap.NewNop()}
}

func TestResolveDefaults(t *testing.T) {
	r := newTestResolver(nil, nil)
	m := r.Resolve(nil, "")

	if v := m.Values[asset.SemanticBaseColor]; v.Kind != ValueVec4 || v.Vec != [4]float32{1, 1, 1, 1} {
		t.Errorf("baseColor default = %+v", v)
	}
	if v := m.Values[asset.SemanticRoughness]; v.Kind != ValueScalar || v.Scalar != 0.9 {
		t.Errorf("roughness default = %+v", v)
	}
	if v := m.Values[asset.SemanticIOR]; v.Kind != ValueScalar || v.Scalar != 1.5 {
		t.Errorf("ior default = %+v", v)
	}
	if v := m.Values[asset.SemanticOcclusion]; v.Kind != ValueScalar || v.Scalar != 1 {
		t.Errorf("occlusion default = %+v", v)
	}
	if v := m.Values[asset.SemanticNormal]; v.Kind != ValueVec3 || v.Vec != [4]float32{0, 0, 1, 0} {
		t.Errorf("normal default = %+v", v)
	}
	if v := m.Values[asset.SemanticMetallic]; v.Kind != ValueScalar || v.Scalar != 0 {
		t.Errorf("metallic default = %+v", v)
	}
}

func TestResolveTextureWins(t *testing.T) {
	uniform := asset.Property{Name: "base", Semantic: asset.SemanticBaseColor,
		Type: asset.PropertyColor, Vector: [4]float32{1, 0, 0, 1}}
	texture := asset.Property{Name: "base.png", Semantic: asset.SemanticBaseColor,
		Type: asset.PropertyURI, String: "base.png"}

	// both declaration orders resolve to the texture
	for _, props := range [][]asset.Property{
		{uniform, texture},
		{texture, uniform},
	} {
		r := newTestResolver(&stubLoader{}, nil)
		m := r.Resolve(&asset.Material{Name: "mat", Properties: props}, "")
		if !m.HasTexture(asset.SemanticBaseColor) {
			t.Errorf("props %v: baseColor is not a texture", props)
		}
	}
}

func TestResolveLastUniformWins(t *testing.T) {
	r := newTestResolver(nil, nil)
	m := r.Resolve(&asset.Material{Name: "mat", Properties: []asset.Property{
		{Semantic: asset.SemanticRoughness, Type: asset.PropertyFloat, Float: 0.2},
		{Semantic: asset.SemanticRoughness, Type: asset.PropertyFloat, Float: 0.7},
	}}, "")
	if v := m.Values[asset.SemanticRoughness]; v.Scalar != 0.7 {
		t.Errorf("roughness = %v, want the later declaration 0.7", v.Scalar)
	}
}

func TestCoerceUniform(t *testing.T) {
	r := newTestResolver(nil, nil)
	m := r.Resolve(&asset.Material{Name: "mat", Properties: []asset.Property{
		// color semantic from a vec3: alpha defaults to 1
		{Semantic: asset.SemanticBaseColor, Type: asset.PropertyVec3, Vector: [4]float32{0.5, 0.25, 0.125, 0}},
		// scalar semantic from a vec3: components averaged
		{Semantic: asset.SemanticMetallic, Type: asset.PropertyVec3, Vector: [4]float32{0.3, 0.6, 0.9, 0}},
		// vector semantic from a scalar: broadcast
		{Semantic: asset.SemanticDisplacement, Type: asset.PropertyFloat, Float: 0.5},
		// occlusion constants carry no information
		{Semantic: asset.SemanticOcclusion, Type: asset.PropertyFloat, Float: 0.1},
	}}, "")

	if v := m.Values[asset.SemanticBaseColor]; v.Kind != ValueVec4 || v.Vec != [4]float32{0.5, 0.25, 0.125, 1} {
		t.Errorf("baseColor = %+v", v)
	}
	if v := m.Values[asset.SemanticMetallic]; v.Kind != ValueScalar || math32.Abs(v.Scalar-0.6) > 1e-6 {
		t.Errorf("metallic = %+v, want averaged 0.6", v)
	}
	if v := m.Values[asset.SemanticDisplacement]; v.Kind != ValueVec3 || v.Vec != [4]float32{0.5, 0.5, 0.5, 0} {
		t.Errorf("displacement = %+v", v)
	}
	if v := m.Values[asset.SemanticOcclusion]; v.Kind != ValueScalar || v.Scalar != 1 {
		t.Errorf("occlusion = %+v, uniform should be ignored", v)
	}
}

func TestResolveLoaderFailure(t *testing.T) {
	r := newTestResolver(&stubLoader{fail: true}, nil)
	m := r.Resolve(&asset.Material{Name: "mat", Properties: []asset.Property{
		{Semantic: asset.SemanticBaseColor, Type: asset.PropertyURI, String: "missing.png"},
	}}, "")
	if m.HasTexture(asset.SemanticBaseColor) {
		t.Error("failed load still produced a texture value")
	}
	if v := m.Values[asset.SemanticBaseColor]; v.Vec != [4]float32{1, 1, 1, 1} {
		t.Errorf("baseColor = %+v, want the default constant", v)
	}
}

func TestResolveEmbeddedSampler(t *testing.T) {
	r := newTestResolver(nil, nil)
	m := r.Resolve(&asset.Material{Name: "mat", Properties: []asset.Property{
		{Name: "embedded", Semantic: asset.SemanticEmission, Type: asset.PropertySampler,
			Sampler: image.NewRGBA(image.Rect(0, 0, 2, 2))},
	}}, "")
	if !m.HasTexture(asset.SemanticEmission) {
		t.Error("embedded sampler did not resolve to a texture")
	}
}

func TestMaterialCache(t *testing.T) {
	cache, err := NewMaterialCache(8)
	if err != nil {
		t.Fatal(err)
	}
	loader := &stubLoader{}
	r := newTestResolver(loader, cache)
	src := &asset.Material{Name: "mat", Properties: []asset.Property{
		{Semantic: asset.SemanticBaseColor, Type: asset.PropertyURI, String: "base.png"},
	}}

	first := r.Resolve(src, "meshA")
	second := r.Resolve(src, "meshA")
	if first != second {
		t.Error("same source name resolved twice instead of hitting the cache")
	}
	if loader.loads != 1 {
		t.Errorf("loader called %d times, want 1", loader.loads)
	}

	other := r.Resolve(src, "meshB")
	if other == first {
		t.Error("different source names share a cache entry")
	}

	// no source name: caching is skipped entirely
	a := r.Resolve(src, "")
	b := r.Resolve(src, "")
	if a == b {
		t.Error("uncacheable resolution returned a cached pointer")
	}
}

func TestMaterialCacheSkippedWithoutLoader(t *testing.T) {
	cache, err := NewMaterialCache(8)
	if err != nil {
		t.Fatal(err)
	}
	r := newTestResolver(nil, cache)
	src := &asset.Material{Name: "mat"}
	if r.Resolve(src, "mesh") == r.Resolve(src, "mesh") {
		t.Error("cache consulted although no texture loader is set")
	}
}
