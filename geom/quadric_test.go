package geom

import (
	"math"
	"testing"

	"github.com/reyesvm/renderer/internal/assert"
	"github.com/reyesvm/renderer/linalg"
)

func identityPose() Pose {
	return Pose{M: linalg.Identity(), MIT: linalg.Identity(), MR: linalg.Identity()}
}

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestUnitSphereBoundIsExact(t *testing.T) {
	q := &Quadric{
		Kind: Sphere, Radius: 1,
		ThetaMin: -math.Pi / 2, ThetaMax: math.Pi / 2,
		PhiMin: 0, PhiMax: 2 * math.Pi,
		Pose: identityPose(),
	}
	b := q.Bound()
	const eps = 1e-9
	for _, c := range [...]struct {
		axis     string
		min, max float64
	}{
		{"X", b.Min.X, b.Max.X}, {"Y", b.Min.Y, b.Max.Y}, {"Z", b.Min.Z, b.Max.Z},
	} {
		assert.To(t).For("unit sphere bound min %s", c.axis).ThatFloat(c.min).Equals(-1, eps)
		assert.To(t).For("unit sphere bound max %s", c.axis).ThatFloat(c.max).Equals(1, eps)
	}
}

func TestQuadricSplitBoundsNestInParent(t *testing.T) {
	q := &Quadric{
		Kind: Sphere, Radius: 1,
		ThetaMin: -math.Pi / 2, ThetaMax: math.Pi / 2,
		PhiMin: 0, PhiMax: 2 * math.Pi,
		Pose: identityPose(),
	}
	parent := q.Bound()
	for _, child := range q.Split() {
		cb := child.Bound()
		const slack = 1e-9
		if cb.Min.X < parent.Min.X-slack || cb.Min.Y < parent.Min.Y-slack || cb.Min.Z < parent.Min.Z-slack {
			t.Fatalf("child min %+v escapes parent min %+v", cb.Min, parent.Min)
		}
		if cb.Max.X > parent.Max.X+slack || cb.Max.Y > parent.Max.Y+slack || cb.Max.Z > parent.Max.Z+slack {
			t.Fatalf("child max %+v escapes parent max %+v", cb.Max, parent.Max)
		}
	}
}

func TestQuadricSeamContinuity(t *testing.T) {
	q := &Quadric{
		Kind: Cylinder, Radius: 2, ZMin: -1, ZMax: 1,
		PhiMin: 0, PhiMax: 2 * math.Pi,
		Pose: identityPose(),
	}
	const uRes, vRes = 8, 4
	g := q.Dice(uRes, vRes)
	for iv := 0; iv <= vRes; iv++ {
		first := g.P[g.index(0, iv)]
		last := g.P[g.index(uRes, iv)]
		d := first.Sub(last).Length()
		if d > 1e-9 {
			t.Fatalf("seam mismatch at row %d: %+v vs %+v (delta %g)", iv, first, last, d)
		}
	}
}
