package gltfasset

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/geom"
)

func fptr(v float32) *float32 { return &v }

func testGLTF() *gltf.Document {
	doc := gltf.NewDocument()

	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 1},
			MetallicFactor:  fptr(0.25),
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{"POSITION": pos},
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
		}},
	})

	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "rig", Children: []uint32{1, 2}},
		&gltf.Node{Name: "box", Mesh: gltf.Index(0), Translation: [3]float32{1, 2, 3}},
		&gltf.Node{Name: "box2", Mesh: gltf.Index(0)},
	)
	doc.Scenes[0].Nodes = []uint32{0}
	return doc
}

func TestFromDocument(t *testing.T) {
	out, err := FromDocument(testGLTF())
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Scenes) != 1 {
		t.Fatalf("scene root count = %d, want 1", len(out.Scenes))
	}
	rig := out.Scenes[0]
	if rig.Path != "/rig" {
		t.Errorf("root path = %q, want /rig", rig.Path)
	}
	if len(rig.Children) != 2 {
		t.Fatalf("child count = %d, want 2", len(rig.Children))
	}
	box := rig.Children[0]
	if box.Path != "/rig/box" {
		t.Errorf("child path = %q, want /rig/box", box.Path)
	}
	if box.Mesh == nil {
		t.Fatal("mesh node converted without mesh")
	}
	if rig.Children[1].Mesh != box.Mesh {
		t.Error("nodes sharing a glTF mesh got distinct mesh pointers")
	}

	// rest transform from TRS
	origin := box.Transform.Matrix.ApplyTo(geom.NewVector3(0, 0, 0))
	if origin.Sub(geom.NewVector3(1, 2, 3)).Len() > 1e-5 {
		t.Errorf("box rest origin = %v, want (1,2,3)", *origin)
	}

	mesh := box.Mesh
	if mesh.Name != "tri" || mesh.VertexCount != 3 {
		t.Errorf("mesh = %q with %d vertices, want tri with 3", mesh.Name, mesh.VertexCount)
	}
	if len(mesh.Buffers) != 1 {
		t.Fatalf("buffer count = %d, want 1", len(mesh.Buffers))
	}
	vb := mesh.Buffers[0]
	if vb.Name != "0:POSITION" || vb.Stride != 12 || vb.Format != "float3" {
		t.Errorf("position buffer descriptor = %+v", vb)
	}
	if len(vb.Data) != 36 {
		t.Errorf("position bytes = %d, want 36", len(vb.Data))
	}
	if x := math.Float32frombits(binary.LittleEndian.Uint32(vb.Data[12:])); x != 1 {
		t.Errorf("vertex 1 x = %v, want 1", x)
	}

	if len(mesh.Submeshes) != 1 {
		t.Fatalf("submesh count = %d, want 1", len(mesh.Submeshes))
	}
	sub := mesh.Submeshes[0]
	if sub.IndexSize != 2 || len(sub.Indices) != 6 {
		t.Errorf("submesh indices: size %d, %d bytes", sub.IndexSize, len(sub.Indices))
	}
	if sub.Material == nil || sub.Material.Name != "red" {
		t.Fatalf("submesh material = %+v", sub.Material)
	}
	var sawColor, sawMetallic bool
	for _, p := range sub.Material.Properties {
		switch p.Semantic {
		case asset.SemanticBaseColor:
			sawColor = true
			if p.Vector != [4]float32{1, 0, 0, 1} {
				t.Errorf("baseColorFactor = %v", p.Vector)
			}
		case asset.SemanticMetallic:
			sawMetallic = true
			if p.Float != 0.25 {
				t.Errorf("metallicFactor = %v", p.Float)
			}
		}
	}
	if !sawColor || !sawMetallic {
		t.Errorf("material properties incomplete: %+v", sub.Material.Properties)
	}

	if out.StartTime != 0 || out.EndTime != 0 {
		t.Errorf("static document has time range [%v, %v]", out.StartTime, out.EndTime)
	}
}

func TestFromDocumentAnimation(t *testing.T) {
	doc := testGLTF()
	times := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, []float32{0, 1})
	values := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {4, 0, 0}})
	doc.Animations = append(doc.Animations, &gltf.Animation{
		Samplers: []*gltf.AnimationSampler{{
			Input:         gltf.Index(times),
			Output:        gltf.Index(values),
			Interpolation: gltf.InterpolationLinear,
		}},
		Channels: []*gltf.Channel{{
			Sampler: gltf.Index(0),
			Target:  gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation},
		}},
	})

	out, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if out.StartTime != 0 || out.EndTime != 1 {
		t.Errorf("time range = [%v, %v], want [0, 1]", out.StartTime, out.EndTime)
	}
	box := out.Scenes[0].Children[0]
	if !box.Transform.Animated() {
		t.Fatal("animated node has no keyframe track")
	}
	if len(box.Transform.KeyTimes) != 2 {
		t.Fatalf("key count = %d, want 2", len(box.Transform.KeyTimes))
	}
	m := box.Transform.At(1)
	if got := m.ApplyTo(geom.NewVector3(0, 0, 0)); got.Sub(geom.NewVector3(4, 0, 0)).Len() > 1e-5 {
		t.Errorf("animated origin at t=1 = %v, want (4,0,0)", *got)
	}
	// untargeted sibling stays static
	if out.Scenes[0].Children[1].Transform.Animated() {
		t.Error("untargeted node gained a keyframe track")
	}
}

func floatBytes(vals ...float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestFromDocumentSkin(t *testing.T) {
	// two inverse bind matrices, column-major: identity and translate(0,-1,0)
	identity := []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	lowered := []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1}
	raw := floatBytes(append(identity, lowered...)...)

	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: uint32(len(raw)), Data: raw}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: uint32(len(raw))}},
		Accessors: []*gltf.Accessor{{
			BufferView:    gltf.Index(0),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorMat4,
			Count:         2,
		}},
		Nodes: []*gltf.Node{
			{Name: "root", Children: []uint32{1}},
			{Name: "hip", Translation: [3]float32{0, 1, 0}},
			{Name: "body", Skin: gltf.Index(0)},
		},
		Skins: []*gltf.Skin{{
			Joints:              []uint32{0, 1},
			InverseBindMatrices: gltf.Index(0),
			Skeleton:            gltf.Index(0),
		}},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0, 2}}},
	}

	out, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Skeletons) != 1 || out.Skeletons[0].Path != "/root" {
		t.Fatalf("skeletons = %+v, want the /root sub-root", out.Skeletons)
	}

	body := out.Scenes[1]
	if body.Path != "/body" {
		t.Fatalf("scene roots = %v", []string{out.Scenes[0].Path, body.Path})
	}
	if len(body.Components) != 1 {
		t.Fatalf("component count = %d, want 1", len(body.Components))
	}
	skin, ok := body.Components[0].(*asset.Skin)
	if !ok {
		t.Fatalf("component %T is not a skin", body.Components[0])
	}
	if len(skin.JointPaths) != 2 || skin.JointPaths[0] != "/root" || skin.JointPaths[1] != "/root/hip" {
		t.Errorf("joint paths = %v", skin.JointPaths)
	}
	// bind transform is the inverted IBM: translate(0,-1,0) inverts to (0,1,0)
	got := skin.BindTransforms[1].ApplyTo(geom.NewVector3(0, 0, 0))
	if got.Sub(geom.NewVector3(0, 1, 0)).Len() > 1e-5 {
		t.Errorf("bind transform origin = %v, want (0,1,0)", *got)
	}
}

func TestFromDocumentNonIndexed(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       "fan",
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{"POSITION": pos}}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "n", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = []uint32{0}

	out, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	sub := out.Scenes[0].Mesh.Submeshes[0]
	if sub.IndexSize != 4 || len(sub.Indices) != 12 {
		t.Fatalf("synthesized indices: size %d, %d bytes", sub.IndexSize, len(sub.Indices))
	}
	for i := 0; i < 3; i++ {
		if got := binary.LittleEndian.Uint32(sub.Indices[i*4:]); got != uint32(i) {
			t.Errorf("index %d = %d", i, got)
		}
	}
}

func TestDoubleParentFails(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "a", Children: []uint32{2}},
		&gltf.Node{Name: "b", Children: []uint32{2}},
		&gltf.Node{Name: "shared"},
	)
	doc.Scenes[0].Nodes = []uint32{0, 1}
	if _, err := FromDocument(doc); err == nil {
		t.Fatal("node with two parents converted without error")
	}
}

func TestThinCubic(t *testing.T) {
	vals := [][4]float32{
		{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 0, 0, 0}, // in-tangent, value, out-tangent
		{0, 0, 0, 0}, {2, 0, 0, 0}, {0, 0, 0, 0},
	}
	out := thinCubic(vals, gltf.InterpolationCubicSpline)
	if len(out) != 2 || out[0][0] != 1 || out[1][0] != 2 {
		t.Errorf("thinned values = %v", out)
	}
	if got := thinCubic(vals, gltf.InterpolationLinear); len(got) != len(vals) {
		t.Error("linear values were thinned")
	}
}

func TestChannelSegment(t *testing.T) {
	c := &channel{times: []float32{1, 2}, values: [][4]float32{{0, 0, 0, 0}, {10, 0, 0, 0}}}

	if v := c.vec3At(0); v.X != 0 {
		t.Errorf("before first key: %v", v)
	}
	if v := c.vec3At(1.5); v.X != 5 {
		t.Errorf("midpoint = %v, want 5", v.X)
	}
	if v := c.vec3At(9); v.X != 10 {
		t.Errorf("after last key: %v", v)
	}

	c.step = true
	if v := c.vec3At(1.5); v.X != 0 {
		t.Errorf("step interpolation midpoint = %v, want the earlier key", v.X)
	}
}
