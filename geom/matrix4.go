package geom

import "github.com/chewxy/math32"

// Matrix4 is a 4x4 column-major matrix. Element (row, col) is stored
// at index col*4+row, so vectors are treated as columns and b.Mul(a)
// applies a first.
type Matrix4 [16]Element

func NewMatrix4() *Matrix4 {
	return &Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func NewMatrix4FromSlice(a []Element) *Matrix4 {
	mat := &Matrix4{}
	copy(mat[:], a)
	return mat
}

func NewScaleMatrix4(x, y, z Element) *Matrix4 {
	return &Matrix4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

func NewTranslateMatrix4(x, y, z Element) *Matrix4 {
	return &Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func NewRotationMatrix4FromQuaternion(q *Quaternion) *Matrix4 {
	var (
		x = q.X
		y = q.Y
		z = q.Z
		w = q.W
	)
	return &Matrix4{
		1 - 2*y*y - 2*z*z, 2*x*y + 2*z*w, 2*x*z - 2*y*w, 0,
		2*x*y - 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z + 2*x*w, 0,
		2*x*z + 2*y*w, 2*y*z - 2*x*w, 1 - 2*x*x - 2*y*y, 0,
		0, 0, 0, 1,
	}
}

// NewTRSMatrix4 composes translation, rotation and scale into a single
// matrix that applies scale first and translation last.
func NewTRSMatrix4(t *Vector3, r *Quaternion, s *Vector3) *Matrix4 {
	m := NewRotationMatrix4FromQuaternion(r)
	for i := 0; i < 3; i++ {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12] = t.X
	m[13] = t.Y
	m[14] = t.Z
	return m
}

// Mul returns the product b*a: the transform that applies a first, then b.
func (b *Matrix4) Mul(a *Matrix4) *Matrix4 {
	r := &Matrix4{}
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var sum Element
			for k := 0; k < 4; k++ {
				sum += b[k*4+row] * a[c*4+k]
			}
			r[c*4+row] = sum
		}
	}
	return r
}

// det3 computes the determinant of the 3x3 minor that excludes row r
// and column c.
func (m *Matrix4) det3(r, c int) Element {
	var rows, cols [3]int
	ri, ci := 0, 0
	for i := 0; i < 4; i++ {
		if i != r {
			rows[ri] = i
			ri++
		}
		if i != c {
			cols[ci] = i
			ci++
		}
	}
	at := func(row, col int) Element { return m[cols[col]*4+rows[row]] }
	return at(0, 0)*(at(1, 1)*at(2, 2)-at(1, 2)*at(2, 1)) -
		at(0, 1)*(at(1, 0)*at(2, 2)-at(1, 2)*at(2, 0)) +
		at(0, 2)*(at(1, 0)*at(2, 1)-at(1, 1)*at(2, 0))
}

func (m *Matrix4) Det() Element {
	var det Element
	sign := Element(1)
	for r := 0; r < 4; r++ {
		det += sign * m[r] * m.det3(r, 0)
		sign = -sign
	}
	return det
}

// Inverse returns the inverse matrix, or the zero matrix when m is
// singular.
func (m *Matrix4) Inverse() *Matrix4 {
	r := &Matrix4{}
	det := m.Det()
	if det == 0 {
		return r
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sign := Element(1)
			if (row+col)%2 == 1 {
				sign = -1
			}
			// adjugate: cofactor of (col, row)
			r[col*4+row] = sign * m.det3(col, row) / det
		}
	}
	return r
}

func (m *Matrix4) Transposed() *Matrix4 {
	return &Matrix4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

func (m *Matrix4) Clone() *Matrix4 {
	r := *m
	return &r
}

// IsZero reports whether every element is zero. Some exporters emit an
// all-zero matrix for "no transform".
func (m *Matrix4) IsZero() bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}

func (m *Matrix4) ApplyTo(v *Vector3) *Vector3 {
	return &Vector3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

func (m *Matrix4) ToArray(a []Element) {
	copy(a, m[:])
}

// Decompose splits the matrix into translation, rotation and scale.
// Shear is not representable and is folded into the rotation part.
func (m *Matrix4) Decompose() (*Vector3, *Quaternion, *Vector3) {
	pos := &Vector3{X: m[12], Y: m[13], Z: m[14]}
	scale := &Vector3{
		X: (&Vector3{X: m[0], Y: m[1], Z: m[2]}).Len(),
		Y: (&Vector3{X: m[4], Y: m[5], Z: m[6]}).Len(),
		Z: (&Vector3{X: m[8], Y: m[9], Z: m[10]}).Len(),
	}
	if m.Det() < 0 {
		scale.X = -scale.X
	}

	inv := func(s Element) Element {
		if s == 0 {
			return 0
		}
		return 1 / s
	}
	ix, iy, iz := inv(scale.X), inv(scale.Y), inv(scale.Z)
	// rotation part with scale removed, r(row,col)
	r := [3][3]Element{
		{m[0] * ix, m[4] * iy, m[8] * iz},
		{m[1] * ix, m[5] * iy, m[9] * iz},
		{m[2] * ix, m[6] * iy, m[10] * iz},
	}

	q := &Quaternion{}
	trace := r[0][0] + r[1][1] + r[2][2]
	switch {
	case trace > 0:
		s := 2 * math32.Sqrt(trace+1)
		q.W = s / 4
		q.X = (r[2][1] - r[1][2]) / s
		q.Y = (r[0][2] - r[2][0]) / s
		q.Z = (r[1][0] - r[0][1]) / s
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := 2 * math32.Sqrt(1+r[0][0]-r[1][1]-r[2][2])
		q.W = (r[2][1] - r[1][2]) / s
		q.X = s / 4
		q.Y = (r[0][1] + r[1][0]) / s
		q.Z = (r[0][2] + r[2][0]) / s
	case r[1][1] > r[2][2]:
		s := 2 * math32.Sqrt(1+r[1][1]-r[0][0]-r[2][2])
		q.W = (r[0][2] - r[2][0]) / s
		q.X = (r[0][1] + r[1][0]) / s
		q.Y = s / 4
		q.Z = (r[1][2] + r[2][1]) / s
	default:
		s := 2 * math32.Sqrt(1+r[2][2]-r[0][0]-r[1][1])
		q.W = (r[1][0] - r[0][1]) / s
		q.X = (r[0][2] + r[2][0]) / s
		q.Y = (r[1][2] + r[2][1]) / s
		q.Z = s / 4
	}
	return pos, q.Normalize(), scale
}
