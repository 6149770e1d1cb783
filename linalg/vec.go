// Package linalg provides the fixed-size vector and matrix math shared
// by the shading value system and the geometric pipeline: a 3-component
// tuple (used for points, vectors, normals and colors alike, since they
// share storage layout and differ only in how they transform) and
// a 4x4 homogeneous matrix.
//
// The method-on-value-type style (Add/Sub/Scale returning new Vec3s)
// follows the teacher's core/math/f32 vector package, extended here to
// float64 and to include a 4x4 matrix, which that package does not have.
package linalg

import "math"

// Vec3 is a three-component tuple: a point, vector, normal or color
// depending on the Type tag carried alongside it by shade.Value.
type Vec3 struct{ X, Y, Z float64 }

// Add returns the element-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns the element-wise difference of v and o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul returns the element-wise (component-wise) product of v and o.
// For points this is not a geometric operation, but the SVM's mulpp
// opcode is defined component-wise, not as a matrix-vector product.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// Div returns the element-wise quotient of v and o.
func (v Vec3) Div(o Vec3) Vec3 { return Vec3{v.X / o.X, v.Y / o.Y, v.Z / o.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Neg returns the additive inverse of v.
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// SqrLength returns the squared magnitude of v.
func (v Vec3) SqrLength() float64 { return v.Dot(v) }

// Length returns the magnitude of v.
func (v Vec3) Length() float64 { return math.Sqrt(v.SqrLength()) }

// Normalize returns v scaled to unit length. The zero vector is
// returned unchanged (there is no well-defined direction to normalize
// to), matching the SVM's "set to neutral value and continue" failure
// policy rather than dividing by zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Lerp returns the linear interpolation between v and o at parameter t.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 { return v.Add(o.Sub(v).Scale(t)) }

// Comp returns the i'th component (0=X, 1=Y, 2=Z).
func (v Vec3) Comp(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetComp returns a copy of v with component i set to val.
func (v Vec3) SetComp(i int, val float64) Vec3 {
	switch i {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}
