package geom

import "github.com/chewxy/math32"

type Quaternion = Vector4

func NewQuaternion(x, y, z, w Element) *Quaternion {
	return &Quaternion{X: x, Y: y, Z: z, W: w}
}

func NewIdentityQuaternion() *Quaternion {
	return &Quaternion{X: 0, Y: 0, Z: 0, W: 1}
}

func (v *Quaternion) Inverse() *Quaternion {
	return &Quaternion{X: -v.X, Y: -v.Y, Z: -v.Z, W: v.W}
}

// Mul returns the Hamilton product a*b.
func (a *Quaternion) Mul(b *Quaternion) *Quaternion {
	return &Quaternion{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

// Slerp interpolates between a and b along the shortest arc.
func (a *Quaternion) Slerp(b *Quaternion, t Element) *Quaternion {
	cos := a.Dot(b)
	b2 := *b
	if cos < 0 {
		cos = -cos
		b2 = Quaternion{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
	}
	if cos > 0.9995 {
		// nearly parallel, lerp is stable enough
		return a.Add(b2.Sub(a).Scale(t)).Normalize()
	}
	theta := math32.Acos(cos)
	sin := math32.Sin(theta)
	wa := math32.Sin((1-t)*theta) / sin
	wb := math32.Sin(t*theta) / sin
	return a.Scale(wa).Add(b2.Scale(wb)).Normalize()
}
