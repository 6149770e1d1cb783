package linalg

// Mat4 is a row-major 4x4 homogeneous transformation matrix.
type Mat4 [4][4]float64

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Scalar returns f·I, the matrix built by the SVM's float→matrix cast.
func Scalar(f float64) Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i][i] = f
	}
	return m
}

// FromRows builds a matrix from 16 values in row-major order, as used
// by the SVM's setwm (16-float matrix constructor) opcode.
func FromRows(v [16]float64) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r][c] = v[r*4+c]
		}
	}
	return m
}

// Rows returns the matrix flattened to row-major order.
func (m Mat4) Rows() [16]float64 {
	var v [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			v[r*4+c] = m[r][c]
		}
	}
	return v
}

// Mul returns the matrix product m*o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Add returns the element-wise sum of m and o.
func (m Mat4) Add(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = m[i][j] + o[i][j]
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[j][i] = m[i][j]
		}
	}
	return r
}

// TransformPoint applies m to the homogeneous point p (w=1), dividing
// through by the resulting w.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3]
	z := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3]
	w := m[3][0]*p.X + m[3][1]*p.Y + m[3][2]*p.Z + m[3][3]
	if w != 0 && w != 1 {
		x, y, z = x/w, y/w, z/w
	}
	return Vec3{x, y, z}
}

// TransformVector applies m to v, ignoring translation.
func (m Mat4) TransformVector(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Inverse returns the inverse of m via Gauss-Jordan elimination with
// partial pivoting. If m is singular, the identity is returned and ok is
// false; callers follow the SVM's failure policy (set to identity,
// continue) rather than propagating an error out of a grid.
func (m Mat4) Inverse() (inv Mat4, ok bool) {
	a := m
	b := Identity()
	for col := 0; col < 4; col++ {
		pivot, pivotVal := col, a[col][col]
		for r := col + 1; r < 4; r++ {
			if abs(a[r][col]) > abs(pivotVal) {
				pivot, pivotVal = r, a[r][col]
			}
		}
		if abs(pivotVal) < 1e-12 {
			return Identity(), false
		}
		if pivot != col {
			a[pivot], a[col] = a[col], a[pivot]
			b[pivot], b[col] = b[col], b[pivot]
		}
		inv0 := 1 / a[col][col]
		for c := 0; c < 4; c++ {
			a[col][c] *= inv0
			b[col][c] *= inv0
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			for c := 0; c < 4; c++ {
				a[r][c] -= factor * a[col][c]
				b[r][c] -= factor * b[col][c]
			}
		}
	}
	return b, true
}

// InverseTranspose returns the inverse-transpose of m, used to
// transform normals correctly under non-uniform scale.
func (m Mat4) InverseTranspose() (Mat4, bool) {
	inv, ok := m.Inverse()
	return inv.Transpose(), ok
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
