package flatten

import (
	"github.com/chewxy/math32"

	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/geom"
)

// TransformAnimation is one node's transform sampled at every entry of
// RenderData.SampleTimes. NodeIndex links back to the static transform slot.
type TransformAnimation struct {
	NodeIndex int
	Matrices  []geom.Matrix4
}

// SampleTimes subdivides [start, end) uniformly at the given frame rate.
// An empty result means the asset is static.
func SampleTimes(start, end, fps float32) []float32 {
	if end <= start || fps <= 0 {
		return nil
	}
	n := int(math32.Ceil((end - start) * fps))
	times := make([]float32, n)
	for i := range times {
		times[i] = start + float32(i)/fps
	}
	return times
}

// transformState accumulates local and world transforms in traversal order.
// Pre-order indexing guarantees a parent's slots are filled before any child
// is added, so world composition never re-walks the parent chain.
type transformState struct {
	times []float32

	local          []geom.Matrix4
	localAnim      []TransformAnimation
	localAnimIndex []int // per node, -1 when static

	world          []geom.Matrix4
	worldAnim      []TransformAnimation
	worldAnimIndex []int
}

func newTransformState(times []float32) *transformState {
	return &transformState{times: times}
}

// staticLocal resolves a node's static local matrix: identity when the node
// has no transform or reports the zero matrix.
func staticLocal(n *asset.Node) geom.Matrix4 {
	if n.Transform == nil || n.Transform.Matrix.IsZero() {
		return *geom.NewMatrix4()
	}
	return n.Transform.Matrix
}

func (s *transformState) add(n *asset.Node, index, parent int) {
	local := staticLocal(n)
	s.local = append(s.local, local)

	animated := n.Transform.Animated() && len(s.times) > 0
	if animated {
		samples := make([]geom.Matrix4, len(s.times))
		for i, t := range s.times {
			samples[i] = n.Transform.At(t)
		}
		s.localAnimIndex = append(s.localAnimIndex, len(s.localAnim))
		s.localAnim = append(s.localAnim, TransformAnimation{NodeIndex: index, Matrices: samples})
	} else {
		s.localAnimIndex = append(s.localAnimIndex, -1)
	}

	parentWorld := geom.NewMatrix4()
	parentAnim := -1
	if parent >= 0 {
		parentWorld = &s.world[parent]
		parentAnim = s.worldAnimIndex[parent]
	}
	s.world = append(s.world, *parentWorld.Mul(&local))

	if !animated && parentAnim < 0 {
		s.worldAnimIndex = append(s.worldAnimIndex, -1)
		return
	}

	// a node is world-animated if its own track or any ancestor's is;
	// compose per sample against the parent's matching world sample
	samples := make([]geom.Matrix4, len(s.times))
	for i, t := range s.times {
		pw := parentWorld
		if parentAnim >= 0 {
			pw = &s.worldAnim[parentAnim].Matrices[i]
		}
		lw := &local
		if animated {
			m := n.Transform.At(t)
			lw = &m
		}
		samples[i] = *pw.Mul(lw)
	}
	s.worldAnimIndex = append(s.worldAnimIndex, len(s.worldAnim))
	s.worldAnim = append(s.worldAnim, TransformAnimation{NodeIndex: index, Matrices: samples})
}
