package gltfasset

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/kumoshiro/scenepack/geom"
)

// trs is a node's decomposed rest pose, the fallback for channels an
// animation does not target.
type trs struct {
	t geom.Vector3
	r geom.Quaternion
	s geom.Vector3
}

func trsOf(n *gltf.Node) trs {
	if n.MatrixOrDefault() != gltf.DefaultMatrix {
		m := geom.NewMatrix4FromSlice(n.Matrix[:])
		p, r, s := m.Decompose()
		return trs{t: *p, r: *r, s: *s}
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return trs{
		t: geom.Vector3{X: t[0], Y: t[1], Z: t[2]},
		r: geom.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		s: geom.Vector3{X: s[0], Y: s[1], Z: s[2]},
	}
}

// channel is one sampled property track.
type channel struct {
	times  []float32
	values [][4]float32 // vec3 values leave W zero
	step   bool
}

// segment finds the keyframe pair bracketing t and the interpolation
// factor, clamped at both ends.
func (c *channel) segment(t float32) (int, int, float32) {
	i := sort.Search(len(c.times), func(i int) bool { return c.times[i] > t })
	if i == 0 {
		return 0, 0, 0
	}
	if i >= len(c.times) {
		last := len(c.times) - 1
		return last, last, 0
	}
	a, b := i-1, i
	span := c.times[b] - c.times[a]
	if span <= 0 || c.step {
		return a, a, 0
	}
	return a, b, (t - c.times[a]) / span
}

func (c *channel) vec3At(t float32) geom.Vector3 {
	a, b, f := c.segment(t)
	va := geom.Vector3{X: c.values[a][0], Y: c.values[a][1], Z: c.values[a][2]}
	if a == b {
		return va
	}
	vb := geom.Vector3{X: c.values[b][0], Y: c.values[b][1], Z: c.values[b][2]}
	return *va.Lerp(&vb, f)
}

func (c *channel) quatAt(t float32) geom.Quaternion {
	a, b, f := c.segment(t)
	qa := geom.Quaternion{X: c.values[a][0], Y: c.values[a][1], Z: c.values[a][2], W: c.values[a][3]}
	if a == b {
		return *qa.Normalize()
	}
	qb := geom.Quaternion{X: c.values[b][0], Y: c.values[b][1], Z: c.values[b][2], W: c.values[b][3]}
	return *qa.Slerp(&qb, f)
}

// nodeChannels groups the translation/rotation/scale tracks targeting one
// node.
type nodeChannels struct {
	translation *channel
	rotation    *channel
	scale       *channel
}

// keyTimes returns the sorted union of the tracks' key times.
func (nc *nodeChannels) keyTimes() []float32 {
	seen := map[float32]bool{}
	var times []float32
	add := func(c *channel) {
		if c == nil {
			return
		}
		for _, t := range c.times {
			if !seen[t] {
				seen[t] = true
				times = append(times, t)
			}
		}
	}
	add(nc.translation)
	add(nc.rotation)
	add(nc.scale)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}

func (nc *nodeChannels) matrixAt(t float32, base trs) *geom.Matrix4 {
	pos, rot, scale := base.t, base.r, base.s
	if nc.translation != nil {
		pos = nc.translation.vec3At(t)
	}
	if nc.rotation != nil {
		rot = nc.rotation.quatAt(t)
	}
	if nc.scale != nil {
		scale = nc.scale.vec3At(t)
	}
	return geom.NewTRSMatrix4(&pos, &rot, &scale)
}

// thinCubic keeps only the vertex values of a cubic-spline output
// (in-tangent, value, out-tangent triplets); the track then degrades to
// linear interpolation between spline vertices.
func thinCubic(vals [][4]float32, interp gltf.Interpolation) [][4]float32 {
	if interp != gltf.InterpolationCubicSpline {
		return vals
	}
	out := make([][4]float32, 0, len(vals)/3)
	for i := 1; i < len(vals); i += 3 {
		out = append(out, vals[i])
	}
	return out
}

// collectAnimations resamples every animation's channels per target node
// and returns the document's overall time range.
func (c *converter) collectAnimations() (map[uint32]*nodeChannels, float32, float32, error) {
	out := map[uint32]*nodeChannels{}
	var start, end float32
	first := true

	for ai, anim := range c.doc.Animations {
		for ci, ch := range anim.Channels {
			if ch.Sampler == nil || ch.Target.Node == nil {
				continue
			}
			sampler := anim.Samplers[*ch.Sampler]
			if sampler.Input == nil || sampler.Output == nil {
				continue
			}
			times, err := c.readScalars(*sampler.Input)
			if err != nil {
				return nil, 0, 0, errors.Wrapf(err, "animation %d channel %d input", ai, ci)
			}
			if len(times) == 0 {
				continue
			}

			track := &channel{times: times, step: sampler.Interpolation == gltf.InterpolationStep}
			nc := out[*ch.Target.Node]
			if nc == nil {
				nc = &nodeChannels{}
				out[*ch.Target.Node] = nc
			}

			switch ch.Target.Path {
			case gltf.TRSTranslation, gltf.TRSScale:
				vals, err := c.readVec3s(*sampler.Output)
				if err != nil {
					return nil, 0, 0, errors.Wrapf(err, "animation %d channel %d output", ai, ci)
				}
				track.values = thinCubic(vals, sampler.Interpolation)
				if ch.Target.Path == gltf.TRSTranslation {
					nc.translation = track
				} else {
					nc.scale = track
				}
			case gltf.TRSRotation:
				vals, err := c.readVec4s(*sampler.Output)
				if err != nil {
					return nil, 0, 0, errors.Wrapf(err, "animation %d channel %d output", ai, ci)
				}
				track.values = thinCubic(vals, sampler.Interpolation)
				nc.rotation = track
			default:
				// morph weights are not part of the flattened output
				continue
			}
			if len(track.values) < len(track.times) {
				track.times = track.times[:len(track.values)]
			}

			if first || times[0] < start {
				start = times[0]
			}
			if last := times[len(times)-1]; first || last > end {
				end = last
			}
			first = false
		}
	}
	return out, start, end, nil
}
