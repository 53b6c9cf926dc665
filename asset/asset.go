// Package asset is the contract between scenepack and an asset-interchange
// importer. An importer (e.g. the gltfasset package) produces a Document:
// a forest of nodes with transforms, meshes, materials, skin components and
// a flat masters list for instanced sub-hierarchies. The flatten package
// consumes it read-only.
package asset

import (
	"sort"

	"github.com/kumoshiro/scenepack/geom"
)

// Node is one element of the scene hierarchy. Path uniquely identifies the
// node with slash-delimited segments ("/scene/chr/root/hip").
type Node struct {
	Path      string
	Children  []*Node
	Transform *Transform
	Mesh      *Mesh
	Instance  *Node // master sub-hierarchy this node instances
	Components []Component
}

// Name returns the last path segment.
func (n *Node) Name() string {
	for i := len(n.Path) - 1; i >= 0; i-- {
		if n.Path[i] == '/' {
			return n.Path[i+1:]
		}
	}
	return n.Path
}

// Component is a typed attachment on a node.
type Component interface {
	component()
}

// Skin binds a mesh to skeleton joints. BindTransforms holds the rest-pose
// joint-to-model transforms, parallel to JointPaths.
type Skin struct {
	JointPaths     []string
	BindTransforms []geom.Matrix4
}

func (*Skin) component() {}

// Transform is a node's local transform: a single matrix, or a keyframed
// matrix track when len(Keys) > 1. KeyTimes and Keys are parallel and
// KeyTimes is strictly increasing.
type Transform struct {
	Matrix   geom.Matrix4
	KeyTimes []float32
	Keys     []geom.Matrix4
}

// Animated reports whether the transform has more than one keyframe.
func (t *Transform) Animated() bool {
	return t != nil && len(t.Keys) > 1
}

// At samples the track at the given time: the keyframe with the largest
// time <= at, clamped at both ends. A trackless transform returns the
// static matrix.
func (t *Transform) At(at float32) geom.Matrix4 {
	if len(t.Keys) == 0 {
		return t.Matrix
	}
	i := sort.Search(len(t.KeyTimes), func(i int) bool { return t.KeyTimes[i] > at })
	if i == 0 {
		return t.Keys[0]
	}
	return t.Keys[i-1]
}

// Document is one imported asset: the scene root forest, the masters list
// referenced by instance nodes, skeleton sub-roots, and the animation time
// range in seconds.
type Document struct {
	Scenes    []*Node
	Masters   []*Node
	Skeletons []*Node
	StartTime float32
	EndTime   float32
}
