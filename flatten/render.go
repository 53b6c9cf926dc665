package flatten

import (
	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/geom"
)

// RenderData is the render-ready product of one import pass: everything the
// GPU-upload layer needs, flattened into structure-of-arrays form. It is
// immutable after Flatten returns and exclusively owns its byte pools and
// transform arrays.
type RenderData struct {
	// SampleTimes is the uniform animation grid; empty for static assets.
	SampleTimes []float32

	// Whole-scene node arrays, indexed by flat node index in pre-order.
	NodePaths             []string
	ParentIndices         []int // -1 for roots
	LocalTransforms       []geom.Matrix4
	LocalAnimations       []TransformAnimation
	LocalAnimationIndices []int // per node into LocalAnimations, -1 static
	WorldTransforms       []geom.Matrix4
	WorldAnimations       []TransformAnimation
	WorldAnimationIndices []int

	// Encoded meshes and the shared byte pools their ranges point into.
	Meshes     []*MeshRecord
	VertexPool []byte
	IndexPool  []byte

	// Per-mesh-node arrays, parallel to each other, already permuted into
	// instance-grouped order. InstancePermutation maps grouped slot to the
	// original traversal-order slot.
	MeshNodeIndices     []int         // flat node index of each mesh node
	MeshIndices         []int         // index into Meshes
	Skins               []*SkinRecord // nil for un-skinned mesh nodes
	InstancePermutation []int
	InstanceCounts      []int // per mesh record

	SkeletonAnimations []*SkeletonAnimation
}

// WorldAt returns a node's world transform at the given sample, falling
// back to the static transform for un-animated nodes or static assets.
func (r *RenderData) WorldAt(node, sample int) geom.Matrix4 {
	if ai := r.WorldAnimationIndices[node]; ai >= 0 && sample >= 0 && sample < len(r.SampleTimes) {
		return r.WorldAnimations[ai].Matrices[sample]
	}
	return r.WorldTransforms[node]
}

// TextureFlags OR-reduces "semantic has texture" across all submeshes of a
// mesh record: one boolean per semantic, feeding shader function constants
// for the draw call that covers the whole mesh.
func (r *RenderData) TextureFlags(meshIndex int) [asset.SemanticCount]bool {
	var flags [asset.SemanticCount]bool
	for _, sub := range r.Meshes[meshIndex].Submeshes {
		if sub.Material == nil {
			continue
		}
		for s := asset.Semantic(0); s < asset.SemanticCount; s++ {
			if sub.Material.HasTexture(s) {
				flags[s] = true
			}
		}
	}
	return flags
}
