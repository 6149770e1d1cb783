package shade

import (
	"math"

	"github.com/reyesvm/renderer/linalg"
)

// Value is the SVM's universal dataflow type: a uniform or varying,
// lane-parallel scalar/vector/color/matrix/string/boolean value.
type Value struct {
	typ      Type
	class    Class
	arrayLen int
	name     string
	isParam  bool

	n       int // number of lanes actually stored: 1 for Uniform/Constant, N for Varying/Vertex/FaceVarying
	floats  []float64
	strs    []string
	bools   []bool
}

// NewUniform returns a zero-valued uniform Value of the given type.
func NewUniform(t Type) *Value { return newValue(t, Uniform, 1) }

// NewVarying returns a zero-valued varying Value with n lanes.
func NewVarying(t Type, n int) *Value { return newValue(t, Varying, n) }

// New returns a zero-valued Value of the given type/class/lane count.
// For Uniform and Constant classes n is ignored and treated as 1.
func New(t Type, c Class, n int) *Value { return newValue(t, c, n) }

func newValue(t Type, c Class, n int) *Value {
	if !c.IsVarying() {
		n = 1
	}
	if n < 0 {
		n = 0
	}
	v := &Value{typ: t, class: c, n: n}
	switch t {
	case TString:
		v.strs = make([]string, n)
	case TBool:
		v.bools = make([]bool, n)
	default:
		v.floats = make([]float64, n*t.comps())
	}
	return v
}

// Type returns the value's scalar/vector type.
func (v *Value) Type() Type { return v.typ }

// Class returns the value's storage class.
func (v *Value) Class() Class { return v.class }

// Size returns the number of lanes (1 for uniform, N for varying).
func (v *Value) Size() int { return v.n }

// ArrayLength returns the declared array length (0 means scalar).
func (v *Value) ArrayLength() int { return v.arrayLen }

// SetArrayLength sets the declared array length.
func (v *Value) SetArrayLength(n int) { v.arrayLen = n }

// Name returns the parameter name, if any.
func (v *Value) Name() string { return v.name }

// SetName sets the parameter name.
func (v *Value) SetName(name string) { v.name = name }

// IsParameter reports whether this Value is a shader parameter.
func (v *Value) IsParameter() bool { return v.isParam }

// SetIsParameter sets the is-parameter flag.
func (v *Value) SetIsParameter(b bool) { v.isParam = b }

// lane folds a lane index for uniform storage (always 0) and passes it
// through unchanged for varying storage.
func (v *Value) lane(i int) int {
	if v.class.IsVarying() {
		return i
	}
	return 0
}

// SetSize resizes a varying Value to n lanes.
func (v *Value) SetSize(n int) {
	if !v.class.IsVarying() {
		return
	}
	v.n = n
	switch v.typ {
	case TString:
		v.strs = make([]string, n)
	case TBool:
		v.bools = make([]bool, n)
	default:
		v.floats = make([]float64, n*v.typ.comps())
	}
}

// GetFloat returns the float at lane (uniform values ignore lane).
func (v *Value) GetFloat(lane int) float64 { return v.floats[v.lane(lane)] }

// SetFloat sets the float at lane.
func (v *Value) SetFloat(lane int, f float64) { v.floats[v.lane(lane)] = f }

// GetBool returns the bool at lane.
func (v *Value) GetBool(lane int) bool { return v.bools[v.lane(lane)] }

// SetBool sets the bool at lane.
func (v *Value) SetBool(lane int, b bool) { v.bools[v.lane(lane)] = b }

// GetString returns the string at lane.
func (v *Value) GetString(lane int) string { return v.strs[v.lane(lane)] }

// SetString sets the string at lane.
func (v *Value) SetString(lane int, s string) { v.strs[v.lane(lane)] = s }

// GetTriple returns the point/vector/normal/color at lane as a Vec3.
func (v *Value) GetTriple(lane int) linalg.Vec3 {
	l := v.lane(lane) * 3
	return linalg.Vec3{X: v.floats[l], Y: v.floats[l+1], Z: v.floats[l+2]}
}

// SetTriple sets the point/vector/normal/color at lane.
func (v *Value) SetTriple(lane int, t linalg.Vec3) {
	l := v.lane(lane) * 3
	v.floats[l], v.floats[l+1], v.floats[l+2] = t.X, t.Y, t.Z
}

// GetMatrix returns the matrix at lane.
func (v *Value) GetMatrix(lane int) linalg.Mat4 {
	l := v.lane(lane) * 16
	var rows [16]float64
	copy(rows[:], v.floats[l:l+16])
	return linalg.FromRows(rows)
}

// SetMatrix sets the matrix at lane.
func (v *Value) SetMatrix(lane int, m linalg.Mat4) {
	l := v.lane(lane) * 16
	rows := m.Rows()
	copy(v.floats[l:l+16], rows[:])
}

// GetPtr returns a contiguous slice view over the value's backing float
// storage, valid for the duration of one opcode.
func (v *Value) GetPtr() []float64 { return v.floats }

// Comp returns component i (0..2 for triples, 0..15 for a matrix in
// row-major order) of the value at lane.
func (v *Value) Comp(lane, i int) float64 {
	base := v.lane(lane) * v.typ.comps()
	return v.floats[base+i]
}

// SetComp sets component i of the value at lane.
func (v *Value) SetComp(lane, i int, val float64) {
	base := v.lane(lane) * v.typ.comps()
	v.floats[base+i] = val
}

// Clone returns a deep copy preserving class, type, array length and
// lane count.
func (v *Value) Clone() *Value {
	out := &Value{typ: v.typ, class: v.class, arrayLen: v.arrayLen, name: v.name, isParam: v.isParam, n: v.n}
	if v.floats != nil {
		out.floats = append([]float64(nil), v.floats...)
	}
	if v.strs != nil {
		out.strs = append([]string(nil), v.strs...)
	}
	if v.bools != nil {
		out.bools = append([]bool(nil), v.bools...)
	}
	return out
}

// SetFrom copies every lane of src into v (broadcasting a uniform src
// across v's lanes), converting between compatible types.
func (v *Value) SetFrom(src *Value) {
	for i := 0; i < v.n; i++ {
		v.setFromLane(i, src, i)
	}
}

// SetFromLane copies one lane of src (srcLane) into v's lane dstLane,
// broadcasting if src is uniform.
func (v *Value) SetFromLane(dstLane int, src *Value, srcLane int) {
	v.setFromLane(dstLane, src, srcLane)
}

func (v *Value) setFromLane(dstLane int, src *Value, srcLane int) {
	switch v.typ {
	case TString:
		v.SetString(dstLane, src.asString(srcLane))
	case TBool:
		v.SetBool(dstLane, src.asBool(srcLane))
	case TMatrix:
		v.SetMatrix(dstLane, src.asMatrix(srcLane))
	case TPoint, TVector, TNormal, TColor:
		v.SetTriple(dstLane, src.asTriple(srcLane))
	default:
		v.SetFloat(dstLane, src.asFloat(srcLane))
	}
}

// asFloat converts src's lane to a float64 (point/color component-average
// has no defined cast, so callers should not rely on it; only
// float/int/bool sources are valid).
func (v *Value) asFloat(lane int) float64 {
	switch v.typ {
	case TBool:
		if v.GetBool(lane) {
			return 1
		}
		return 0
	case TString:
		return 0
	case TMatrix:
		return v.GetMatrix(lane)[0][0]
	case TPoint, TVector, TNormal, TColor:
		return v.GetTriple(lane).X
	default:
		return v.GetFloat(lane)
	}
}

func (v *Value) asBool(lane int) bool {
	if v.typ == TBool {
		return v.GetBool(lane)
	}
	return v.asFloat(lane) != 0
}

func (v *Value) asString(lane int) string {
	if v.typ == TString {
		return v.GetString(lane)
	}
	return ""
}

// asTriple converts src's lane to a Vec3, broadcasting a float across
// all three components.
func (v *Value) asTriple(lane int) linalg.Vec3 {
	switch v.typ {
	case TPoint, TVector, TNormal, TColor:
		return v.GetTriple(lane)
	default:
		f := v.asFloat(lane)
		return linalg.Vec3{X: f, Y: f, Z: f}
	}
}

// asMatrix converts src's lane to a Mat4, broadcasting a float as f·I.
func (v *Value) asMatrix(lane int) linalg.Mat4 {
	switch v.typ {
	case TMatrix:
		return v.GetMatrix(lane)
	default:
		return linalg.Scalar(v.asFloat(lane))
	}
}

// BuildTriple constructs a point/color from three operand lanes,
// lane-parallel.
func BuildTriple(t Type, n int, x, y, z *Value) *Value {
	cls := Uniform
	if n > 1 || x.class.IsVarying() || y.class.IsVarying() || z.class.IsVarying() {
		cls = Varying
	}
	out := New(t, cls, n)
	for i := 0; i < out.Size(); i++ {
		out.SetTriple(i, linalg.Vec3{X: x.asFloat(i % maxInt(1, x.n)), Y: y.asFloat(i % maxInt(1, y.n)), Z: z.asFloat(i % maxInt(1, z.n))})
	}
	return out
}

// BuildMatrix constructs a matrix from 16 operand lanes, lane-parallel.
func BuildMatrix(n int, comps [16]*Value) *Value {
	cls := Uniform
	for _, c := range comps {
		if c.class.IsVarying() {
			cls = Varying
		}
	}
	if n > 1 {
		cls = Varying
	}
	out := New(TMatrix, cls, n)
	for i := 0; i < out.Size(); i++ {
		var rows [16]float64
		for k, c := range comps {
			rows[k] = c.asFloat(i % maxInt(1, c.n))
		}
		out.SetMatrix(i, linalg.FromRows(rows))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CastFloatToColor casts a float value to a color by broadcasting.
func CastFloatToColor(src *Value) *Value { return castToTriple(src, TColor) }

// CastFloatToPoint casts a float value to a point by broadcasting.
func CastFloatToPoint(src *Value) *Value { return castToTriple(src, TPoint) }

func castToTriple(src *Value, t Type) *Value {
	out := New(t, src.class, src.n)
	for i := 0; i < out.n; i++ {
		out.SetTriple(i, src.asTriple(i))
	}
	return out
}

// CastFloatToMatrix casts a float value to f·I.
func CastFloatToMatrix(src *Value) *Value {
	out := New(TMatrix, src.class, src.n)
	for i := 0; i < out.n; i++ {
		out.SetMatrix(i, src.asMatrix(i))
	}
	return out
}

// CastPointToColor reinterprets a point's components as a color (no
// gamma or range conversion).
func CastPointToColor(src *Value) *Value { return reinterpretTriple(src, TColor) }

// CastColorToPoint reinterprets a color's components as a point.
func CastColorToPoint(src *Value) *Value { return reinterpretTriple(src, TPoint) }

func reinterpretTriple(src *Value, t Type) *Value {
	out := src.Clone()
	out.typ = t
	return out
}

// IsNaN reports whether any float component at lane is NaN, used by
// opcodes that must detect their own domain faults.
func (v *Value) IsNaN(lane int) bool {
	switch v.typ {
	case TPoint, TVector, TNormal, TColor:
		t := v.GetTriple(lane)
		return math.IsNaN(t.X) || math.IsNaN(t.Y) || math.IsNaN(t.Z)
	case TMatrix:
		m := v.GetMatrix(lane)
		for i := range m {
			for j := range m[i] {
				if math.IsNaN(m[i][j]) {
					return true
				}
			}
		}
		return false
	default:
		return math.IsNaN(v.GetFloat(lane))
	}
}
