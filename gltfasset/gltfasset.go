// Package gltfasset imports glTF/GLB documents into the asset data model
// consumed by the flatten pipeline: node hierarchy with slash-delimited
// paths, matrix keyframe tracks resampled from animation channels, meshes
// with raw accessor bytes, PBR materials mapped onto the semantic property
// list, and skins with joint paths and bind transforms.
package gltfasset

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/geom"
)

// Load reads a .gltf or .glb file and converts it.
func Load(path string) (*asset.Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return FromDocument(doc)
}

// FromDocument converts an already-parsed glTF document.
func FromDocument(doc *gltf.Document) (*asset.Document, error) {
	c := &converter{
		doc:       doc,
		nodes:     make([]*asset.Node, len(doc.Nodes)),
		meshes:    map[uint32]*asset.Mesh{},
		materials: map[uint32]*asset.Material{},
	}
	return c.convert()
}

type converter struct {
	doc       *gltf.Document
	nodes     []*asset.Node
	meshes    map[uint32]*asset.Mesh
	materials map[uint32]*asset.Material
}

func (c *converter) convert() (*asset.Document, error) {
	out := &asset.Document{}

	channels, start, end, err := c.collectAnimations()
	if err != nil {
		return nil, err
	}
	out.StartTime, out.EndTime = start, end

	roots := c.sceneRoots()
	for _, r := range roots {
		node, err := c.buildNode(r, "", channels)
		if err != nil {
			return nil, err
		}
		out.Scenes = append(out.Scenes, node)
	}

	if err := c.attachSkins(out); err != nil {
		return nil, err
	}
	return out, nil
}

// sceneRoots returns the default scene's root node indices, falling back to
// every parentless node when the document declares no scenes.
func (c *converter) sceneRoots() []uint32 {
	scene := 0
	if c.doc.Scene != nil {
		scene = int(*c.doc.Scene)
	}
	if scene < len(c.doc.Scenes) {
		return c.doc.Scenes[scene].Nodes
	}
	hasParent := make([]bool, len(c.doc.Nodes))
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			hasParent[ch] = true
		}
	}
	var roots []uint32
	for i := range c.doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (c *converter) nodeName(i uint32) string {
	if name := c.doc.Nodes[i].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node%d", i)
}

// buildNode converts one glTF node and its subtree, assigning slash paths.
func (c *converter) buildNode(i uint32, parentPath string, channels map[uint32]*nodeChannels) (*asset.Node, error) {
	if int(i) >= len(c.doc.Nodes) {
		return nil, errors.Errorf("node index %d out of range", i)
	}
	if c.nodes[i] != nil {
		return nil, errors.Errorf("node %d reachable from two parents", i)
	}
	src := c.doc.Nodes[i]
	n := &asset.Node{Path: parentPath + "/" + c.nodeName(i)}
	c.nodes[i] = n

	n.Transform = c.buildTransform(src, channels[i])

	if src.Mesh != nil {
		mesh, err := c.convertMesh(*src.Mesh)
		if err != nil {
			return nil, err
		}
		n.Mesh = mesh
	}

	for _, ch := range src.Children {
		child, err := c.buildNode(ch, n.Path, channels)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// buildTransform composes the node's rest TRS (or explicit matrix) and, when
// animation channels target the node, resamples them into a matrix keyframe
// track over the union of the channels' key times.
func (c *converter) buildTransform(src *gltf.Node, ch *nodeChannels) *asset.Transform {
	var rest geom.Matrix4
	if src.MatrixOrDefault() != gltf.DefaultMatrix {
		rest = *geom.NewMatrix4FromSlice(src.Matrix[:])
	} else {
		t := src.TranslationOrDefault()
		r := src.RotationOrDefault()
		s := src.ScaleOrDefault()
		rest = *geom.NewTRSMatrix4(
			geom.NewVector3(float32(t[0]), float32(t[1]), float32(t[2])),
			geom.NewQuaternion(float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])),
			geom.NewVector3(float32(s[0]), float32(s[1]), float32(s[2])))
	}

	tr := &asset.Transform{Matrix: rest}
	if ch == nil {
		return tr
	}

	base := trsOf(src)
	tr.KeyTimes = ch.keyTimes()
	tr.Keys = make([]geom.Matrix4, len(tr.KeyTimes))
	for i, t := range tr.KeyTimes {
		tr.Keys[i] = *ch.matrixAt(t, base)
	}
	return tr
}

func (c *converter) attachSkins(out *asset.Document) error {
	if len(c.doc.Skins) == 0 {
		return nil
	}
	skins := make([]*asset.Skin, len(c.doc.Skins))
	skeletonSeen := map[*asset.Node]bool{}
	for si, src := range c.doc.Skins {
		skin := &asset.Skin{}
		for _, j := range src.Joints {
			if int(j) >= len(c.nodes) || c.nodes[j] == nil {
				return errors.Errorf("skin %d: joint node %d not in scene", si, j)
			}
			skin.JointPaths = append(skin.JointPaths, c.nodes[j].Path)
		}
		binds, err := c.bindTransforms(src, len(skin.JointPaths))
		if err != nil {
			return errors.Wrapf(err, "skin %d", si)
		}
		skin.BindTransforms = binds
		skins[si] = skin

		// skeleton sub-root: explicit skeleton node, else the first joint
		rootIdx := src.Joints[0]
		if src.Skeleton != nil {
			rootIdx = *src.Skeleton
		}
		if root := c.nodes[rootIdx]; root != nil && !skeletonSeen[root] {
			skeletonSeen[root] = true
			out.Skeletons = append(out.Skeletons, root)
		}
	}

	for i, src := range c.doc.Nodes {
		if src.Skin == nil || c.nodes[i] == nil {
			continue
		}
		if int(*src.Skin) < len(skins) && skins[*src.Skin] != nil {
			c.nodes[i].Components = append(c.nodes[i].Components, skins[*src.Skin])
		}
	}
	return nil
}

// bindTransforms inverts the skin's inverse-bind matrices back into
// rest-pose bind transforms, identity when the skin declares none.
func (c *converter) bindTransforms(src *gltf.Skin, joints int) ([]geom.Matrix4, error) {
	binds := make([]geom.Matrix4, joints)
	if src.InverseBindMatrices == nil {
		for i := range binds {
			binds[i] = *geom.NewMatrix4()
		}
		return binds, nil
	}
	mats, err := c.readMat4s(*src.InverseBindMatrices)
	if err != nil {
		return nil, err
	}
	for i := range binds {
		if i < len(mats) {
			binds[i] = *mats[i].Inverse()
		} else {
			binds[i] = *geom.NewMatrix4()
		}
	}
	return binds, nil
}
