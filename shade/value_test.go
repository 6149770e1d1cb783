package shade

import (
	"testing"

	"github.com/reyesvm/renderer/linalg"
)

func TestUniformSizeIsOne(t *testing.T) {
	v := NewUniform(TFloat)
	if v.Size() != 1 {
		t.Fatalf("uniform Size() = %d, want 1", v.Size())
	}
}

func TestVaryingSizeIsN(t *testing.T) {
	const n = 17
	v := NewVarying(TColor, n)
	if v.Size() != n {
		t.Fatalf("varying Size() = %d, want %d", v.Size(), n)
	}
}

func TestCastFloatToColorBroadcasts(t *testing.T) {
	f := NewVarying(TFloat, 2)
	f.SetFloat(0, 0.5)
	f.SetFloat(1, 1.0)
	c := CastFloatToColor(f)
	got := c.GetTriple(0)
	want := linalg.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	if got != want {
		t.Fatalf("CastFloatToColor lane 0 = %+v, want %+v", got, want)
	}
}

func TestCastFloatToMatrixIsScalarTimesIdentity(t *testing.T) {
	f := NewUniform(TFloat)
	f.SetFloat(0, 2)
	m := CastFloatToMatrix(f).GetMatrix(0)
	want := linalg.Scalar(2)
	if m != want {
		t.Fatalf("CastFloatToMatrix = %+v, want %+v", m, want)
	}
}

func TestPointColorReinterpretIsComponentwise(t *testing.T) {
	p := NewUniform(TPoint)
	p.SetTriple(0, linalg.Vec3{X: 1, Y: 2, Z: 3})
	c := CastPointToColor(p)
	if c.Type() != TColor {
		t.Fatalf("CastPointToColor type = %v, want TColor", c.Type())
	}
	if c.GetTriple(0) != p.GetTriple(0) {
		t.Fatalf("CastPointToColor changed components: got %+v, want %+v", c.GetTriple(0), p.GetTriple(0))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	v := NewVarying(TFloat, 3)
	v.SetFloat(0, 1)
	c := v.Clone()
	c.SetFloat(0, 99)
	if v.GetFloat(0) == 99 {
		t.Fatalf("mutating clone affected original")
	}
}

func TestSetFromBroadcastsUniformIntoVarying(t *testing.T) {
	uni := NewUniform(TFloat)
	uni.SetFloat(0, 7)
	v := NewVarying(TFloat, 4)
	for i := 0; i < v.Size(); i++ {
		v.SetFromLane(i, uni, 0)
	}
	for i := 0; i < v.Size(); i++ {
		if v.GetFloat(i) != 7 {
			t.Fatalf("lane %d = %v, want 7", i, v.GetFloat(i))
		}
	}
}
