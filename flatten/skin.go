package flatten

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/geom"
)

// SkinRecord binds one mesh node to skeleton joints. SkinToSkeletonMap is
// parallel to JointPaths and maps each bound joint to its index in the
// resolved skeleton's joint list, -1 when the joint has no match.
// AnimationIndex points into RenderData.SkeletonAnimations, -1 while the
// skin is unresolved (the mesh degrades to un-skinned rendering).
type SkinRecord struct {
	NodeIndex             int
	JointPaths            []string
	InverseBindTransforms []geom.Matrix4
	SkinToSkeletonMap     []int
	AnimationIndex        int
}

// SkeletonAnimation is one skeleton sub-hierarchy flattened into its own
// zero-based joint index space, with per-joint translation/rotation samples
// stored time-major: sample*len(JointPaths)+joint.
type SkeletonAnimation struct {
	Name          string
	JointPaths    []string
	ParentIndices []int
	KeyTimes      []float32
	Translations  []geom.Vector3
	Rotations     []geom.Quaternion
}

// detectSkin returns the node's skin record, or nil when the node carries no
// skin component or the component reports zero joint paths. Bind transforms
// are inverted here; they are general affine transforms, so this is a true
// matrix inversion.
func detectSkin(n *asset.Node, index int, logger *zap.Logger) *SkinRecord {
	var skin *asset.Skin
	for _, c := range n.Components {
		s, ok := c.(*asset.Skin)
		if !ok {
			continue
		}
		if skin != nil {
			logger.Warn("multiple skin components on node, using the first",
				zap.String("node", n.Path))
			break
		}
		skin = s
	}
	if skin == nil || len(skin.JointPaths) == 0 {
		return nil
	}

	rec := &SkinRecord{
		NodeIndex:             index,
		JointPaths:            append([]string(nil), skin.JointPaths...),
		InverseBindTransforms: make([]geom.Matrix4, len(skin.JointPaths)),
		AnimationIndex:        -1,
	}
	for i := range skin.JointPaths {
		if i < len(skin.BindTransforms) && !skin.BindTransforms[i].IsZero() {
			rec.InverseBindTransforms[i] = *skin.BindTransforms[i].Inverse()
		} else {
			rec.InverseBindTransforms[i] = *geom.NewMatrix4()
		}
	}
	return rec
}

// buildSkeletonAnimation flattens a skeleton sub-root into joint paths,
// parent indices and per-sample joint poses. For a static asset a single
// rest-pose sample is stored.
func buildSkeletonAnimation(root *asset.Node, times []float32) (*SkeletonAnimation, error) {
	sa := &SkeletonAnimation{Name: root.Path}
	var joints []*asset.Node
	err := WalkSubroot(root, func(n *asset.Node, index, parent int) error {
		sa.JointPaths = append(sa.JointPaths, n.Path)
		sa.ParentIndices = append(sa.ParentIndices, parent)
		joints = append(joints, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sa.KeyTimes = times
	if len(sa.KeyTimes) == 0 {
		sa.KeyTimes = []float32{0}
	}
	jointCount := len(joints)
	sa.Translations = make([]geom.Vector3, len(sa.KeyTimes)*jointCount)
	sa.Rotations = make([]geom.Quaternion, len(sa.KeyTimes)*jointCount)
	for s, t := range sa.KeyTimes {
		for j, n := range joints {
			m := staticLocal(n)
			if n.Transform != nil && len(n.Transform.Keys) > 0 {
				m = n.Transform.At(t)
			}
			pos, rot, _ := m.Decompose()
			sa.Translations[s*jointCount+j] = *pos
			sa.Rotations[s*jointCount+j] = *rot
		}
	}
	return sa, nil
}

// skeletonRootPath returns the shortest prefix of the joint path whose last
// segment equals the root token, or "" when the token does not appear.
// Exact segment matching avoids false positives on segments that merely
// contain the token.
func skeletonRootPath(jointPath, rootToken string) string {
	segs := strings.Split(jointPath, "/")
	for i, s := range segs {
		if s == rootToken {
			return strings.Join(segs[:i+1], "/")
		}
	}
	return ""
}

// resolveSkin binds a skin to the skeleton whose first joint path equals the
// skin's skeleton-root prefix. Failure to match is not an error: the skin is
// left unresolved. Individual joints missing from the skeleton are logged
// and left as -1 in the map.
func resolveSkin(skin *SkinRecord, skeletons []*SkeletonAnimation, rootToken string, logger *zap.Logger) {
	rootPath := skeletonRootPath(skin.JointPaths[0], rootToken)
	if rootPath == "" {
		logger.Warn("no skeleton root token in joint path, skin left unresolved",
			zap.String("jointPath", skin.JointPaths[0]),
			zap.String("rootToken", rootToken))
		return
	}
	var target *SkeletonAnimation
	targetIndex := -1
	for i, sa := range skeletons {
		if len(sa.JointPaths) > 0 && sa.JointPaths[0] == rootPath {
			target = sa
			targetIndex = i
			break
		}
	}
	if target == nil {
		logger.Warn("no skeleton matches skin root, skin left unresolved",
			zap.String("root", rootPath))
		return
	}

	byPath := make(map[string]int, len(target.JointPaths))
	for i, p := range target.JointPaths {
		byPath[p] = i
	}
	skin.SkinToSkeletonMap = make([]int, len(skin.JointPaths))
	for i, p := range skin.JointPaths {
		if j, ok := byPath[p]; ok {
			skin.SkinToSkeletonMap[i] = j
		} else {
			skin.SkinToSkeletonMap[i] = -1
			logger.Warn("joint path not found in skeleton",
				zap.String("joint", p), zap.String("skeleton", target.Name))
		}
	}
	skin.AnimationIndex = targetIndex
}
