package geom

import (
	"testing"

	"github.com/reyesvm/renderer/linalg"
)

func TestLinearCurveRibbonCorners(t *testing.T) {
	g := &CurveGroup{
		Kind:    LinearCurve,
		Lengths: []int{2},
		Points: []linalg.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Widths: []float64{0.1, 0.1},
		Normal: linalg.Vec3{X: 0, Y: 1, Z: 0},
		Pose:   identityPose(),
	}
	segs := g.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	seg := segs[0].(*Segment)
	grid := seg.Dice(1, 1)
	if grid.NU != 2 || grid.NV != 2 {
		t.Fatalf("grid dims = %dx%d, want 2x2", grid.NU, grid.NV)
	}

	const eps = 1e-6
	want := []linalg.Vec3{
		{X: 0.05, Y: 0, Z: 0},
		{X: -0.05, Y: 0, Z: 0},
		{X: 0.05, Y: 0, Z: 1},
		{X: -0.05, Y: 0, Z: 1},
	}
	for _, w := range want {
		found := false
		for _, p := range grid.P {
			if vecClose(p, w, eps) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected ribbon corner %+v not found among %+v", w, grid.P)
		}
	}
}

func TestSegmentBoundGrowsByWidth(t *testing.T) {
	g := &CurveGroup{
		Kind:    LinearCurve,
		Lengths: []int{2},
		Points: []linalg.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Widths: []float64{0.2, 0.2},
		Pose:   identityPose(),
	}
	seg := g.Segments()[0].(*Segment)
	b := seg.Bound()
	if b.Min.X > -0.1+1e-9 || b.Max.X < 0.1-1e-9 {
		t.Fatalf("bound %+v does not account for width 0.2", b)
	}
}
