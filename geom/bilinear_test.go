package geom

import (
	"testing"

	"github.com/reyesvm/renderer/linalg"
)

func unitBilinearPatch() *BilinearPatch {
	return &BilinearPatch{
		P: [4]linalg.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 1, Y: 1, Z: 0},
		},
		Pose: identityPose(),
	}
}

func TestBilinearPatchSplitBoundsNestInParent(t *testing.T) {
	p := unitBilinearPatch()
	parent := p.Bound()
	for _, child := range p.Split() {
		cb := child.Bound()
		if cb.Min.X < parent.Min.X-1e-9 || cb.Min.Y < parent.Min.Y-1e-9 {
			t.Fatalf("child min %+v escapes parent min %+v", cb.Min, parent.Min)
		}
		if cb.Max.X > parent.Max.X+1e-9 || cb.Max.Y > parent.Max.Y+1e-9 {
			t.Fatalf("child max %+v escapes parent max %+v", cb.Max, parent.Max)
		}
	}
}

func TestPhantomPatchSplitDropsMissingCorner(t *testing.T) {
	p := unitBilinearPatch()
	p.Phantom = true
	p.Missing = 1
	children := p.Split()
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3 for a phantom patch", len(children))
	}
	// Kept children are q0, q2, q3; q2 sits opposite the missing corner
	// 1, wholly inside the triangle, so only q0 and q3 stay phantom.
	for i, c := range children {
		bp := c.(*BilinearPatch)
		wantPhantom := i != 1
		if bp.Phantom != wantPhantom || (wantPhantom && bp.Missing != 1) {
			t.Errorf("child %d phantom=%v missing=%d, want phantom=%v missing=1", i, bp.Phantom, bp.Missing, wantPhantom)
		}
	}
}
