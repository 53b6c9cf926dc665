package flatten

import (
	"errors"

	"github.com/kumoshiro/scenepack/asset"
)

// Flatten runs the whole import pass over one document: masters and scene
// traversal, transform resolution, skin/skeleton binding, material
// resolution, mesh encoding and instance compaction. It either returns a
// complete RenderData or a *StageError; partial results are never returned.
// The pass is single-threaded by design: world-transform accumulation
// depends on strict parent-before-child visitation.
func Flatten(doc *asset.Document, opts *Options) (*RenderData, error) {
	o := opts.withDefaults()
	times := SampleTimes(doc.StartTime, doc.EndTime, o.FPS)

	resolver := &materialResolver{loader: o.Loader, cache: o.Cache, logger: o.Logger}
	encoder := &meshEncoder{materials: resolver, logger: o.Logger}

	var meshes []*MeshRecord
	meshIndexByMesh := map[*asset.Mesh]int{}
	encodeMesh := func(m *asset.Mesh) (int, error) {
		if idx, ok := meshIndexByMesh[m]; ok {
			return idx, nil
		}
		rec, err := encoder.encode(m)
		if err != nil {
			return 0, stageErr(StageMeshEncode, err)
		}
		meshIndexByMesh[m] = len(meshes)
		meshes = append(meshes, rec)
		return len(meshes) - 1, nil
	}

	// Masters first: instanced mesh data is encoded once here, scene
	// placement nodes then share the records by mesh identity.
	err := WalkMasters(doc.Masters, func(n *asset.Node) error {
		if n.Mesh == nil {
			return nil
		}
		_, err := encodeMesh(n.Mesh)
		return err
	})
	if err != nil {
		return nil, asStage(err, StageTraversal)
	}

	ts := newTransformState(times)
	var paths []string
	var parents []int
	type meshNode struct {
		node int
		mesh int
		skin *SkinRecord
	}
	var meshNodes []meshNode

	err = Walk(doc.Scenes, func(n *asset.Node, index, parent int) error {
		paths = append(paths, n.Path)
		parents = append(parents, parent)
		ts.add(n, index, parent)

		mesh := n.Mesh
		if mesh == nil && n.Instance != nil {
			mesh = firstMesh(n.Instance)
		}
		if mesh == nil {
			return nil
		}
		mi, err := encodeMesh(mesh)
		if err != nil {
			return err
		}
		meshNodes = append(meshNodes, meshNode{node: index, mesh: mi, skin: detectSkin(n, index, o.Logger)})
		return nil
	})
	if err != nil {
		return nil, asStage(err, StageTraversal)
	}

	var skeletons []*SkeletonAnimation
	seenRoots := map[*asset.Node]bool{}
	for _, root := range doc.Skeletons {
		if root == nil || seenRoots[root] {
			continue
		}
		seenRoots[root] = true
		sa, err := buildSkeletonAnimation(root, times)
		if err != nil {
			return nil, asStage(err, StageSkin)
		}
		skeletons = append(skeletons, sa)
	}
	for _, mn := range meshNodes {
		if mn.skin != nil {
			resolveSkin(mn.skin, skeletons, o.SkeletonRoot, o.Logger)
		}
	}

	meshIdx := make([]int, len(meshNodes))
	for i, mn := range meshNodes {
		meshIdx[i] = mn.mesh
	}
	perm, counts := CompactInstances(meshIdx)

	rd := &RenderData{
		SampleTimes:           times,
		NodePaths:             paths,
		ParentIndices:         parents,
		LocalTransforms:       ts.local,
		LocalAnimations:       ts.localAnim,
		LocalAnimationIndices: ts.localAnimIndex,
		WorldTransforms:       ts.world,
		WorldAnimations:       ts.worldAnim,
		WorldAnimationIndices: ts.worldAnimIndex,
		Meshes:                meshes,
		VertexPool:            encoder.vertexPool,
		IndexPool:             encoder.indexPool,
		InstancePermutation:   perm,
		InstanceCounts:        counts,
		SkeletonAnimations:    skeletons,
	}
	for _, p := range perm {
		rd.MeshNodeIndices = append(rd.MeshNodeIndices, meshNodes[p].node)
		rd.MeshIndices = append(rd.MeshIndices, meshNodes[p].mesh)
		rd.Skins = append(rd.Skins, meshNodes[p].skin)
	}
	return rd, nil
}

// firstMesh returns the first mesh found in pre-order inside a master
// sub-hierarchy, nil when the subtree has none.
func firstMesh(master *asset.Node) *asset.Mesh {
	stack := []*asset.Node{master}
	seen := map[*asset.Node]bool{}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		if n.Mesh != nil {
			return n.Mesh
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil
}

// asStage wraps err as a StageError unless it already carries a stage.
func asStage(err error, s Stage) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: s, Err: err}
}
