package reyes

import (
	"context"
	"testing"

	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/internal/rlog"
	"github.com/reyesvm/renderer/linalg"
)

// fakeSurface is a minimal geom.Surface double: a fixed camera-space
// box that never straddles the eye plane, diceable only once its
// parametric extent (tracked via halvings) shrinks below a threshold.
type fakeSurface struct {
	box       geom.Bound
	halvings  int
	forceNeverDiceable bool
	diced     *bool // set true when Dice is called, shared across splits
}

func newFakeSurface(box geom.Bound) *fakeSurface {
	return &fakeSurface{box: box, diced: new(bool)}
}

func (f *fakeSurface) Bound() geom.Bound  { return f.box }
func (f *fakeSurface) Transform(geom.Pose) {}

func (f *fakeSurface) Diceable(linalg.Mat4, int) (bool, int, int, geom.SplitDir) {
	if f.forceNeverDiceable {
		return false, 0, 0, geom.SplitU
	}
	return f.halvings >= 2, 4, 4, geom.SplitU
}

// Split returns a single child when forceNeverDiceable is set so the
// depth-cap test walks a 32-deep chain rather than a 2^32-node tree;
// otherwise it returns the usual two children.
func (f *fakeSurface) Split() []geom.Surface {
	a := &fakeSurface{box: f.box, halvings: f.halvings + 1, forceNeverDiceable: f.forceNeverDiceable, diced: f.diced}
	if f.forceNeverDiceable {
		return []geom.Surface{a}
	}
	b := &fakeSurface{box: f.box, halvings: f.halvings + 1, forceNeverDiceable: f.forceNeverDiceable, diced: f.diced}
	return []geom.Surface{a, b}
}

func (f *fakeSurface) Dice(uSize, vSize int) *geom.Grid {
	*f.diced = true
	return geom.NewGrid(uSize, vSize)
}

func insideBox() geom.Bound {
	return geom.Bound{Min: linalg.Vec3{X: -1, Y: -1, Z: 5}, Max: linalg.Vec3{X: 1, Y: 1, Z: 6}}
}

func testCamera() Camera {
	return Camera{
		ToRaster: linalg.Identity(),
		Hither:   1, Yon: 100,
		XRes: 640, YRes: 480,
		GridSize: 16,
	}
}

func TestDispatcherDicesAfterEnoughSplits(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	s := newFakeSurface(insideBox())
	var gridCount int
	err := d.Run(context.Background(), []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		gridCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if gridCount == 0 {
		t.Fatal("expected at least one shaded grid")
	}
}

func TestDispatcherCullsSurfaceBehindHither(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	behind := geom.Bound{Min: linalg.Vec3{X: -1, Y: -1, Z: -5}, Max: linalg.Vec3{X: 1, Y: 1, Z: 0.5}}
	s := newFakeSurface(behind)
	called := false
	err := d.Run(context.Background(), []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if called {
		t.Fatal("surface entirely behind the hither plane should never reach onGrid")
	}
}

func TestDispatcherRespectsSplitDepthCap(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	s := newFakeSurface(insideBox())
	s.forceNeverDiceable = true
	var gridCount int
	err := d.Run(context.Background(), []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		gridCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if gridCount == 0 {
		t.Fatal("a surface that never reports diceable must still be forced to dice at the recursion cap")
	}
}

func TestDispatcherAbandonsOnCancelledContext(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	s := newFakeSurface(insideBox())
	s.forceNeverDiceable = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := d.Run(ctx, []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run on an already-cancelled context should return nil, got %v", err)
	}
	if called {
		t.Fatal("no grid should be produced once the context is already cancelled")
	}
}

func TestDispatcherAbortsRunOnFatalFrameError(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	s := newFakeSurface(insideBox())
	wantErr := rerr.FatalFrame("unknown opcode")
	err := d.Run(context.Background(), []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		return wantErr
	})
	if err == nil {
		t.Fatal("expected Run to propagate a fatal-frame error")
	}
	if !rerr.Is(err, rerr.KindFatalFrame) {
		t.Fatalf("expected a fatal-frame error, got %v", err)
	}
}

func TestDispatcherContinuesAfterNonFatalGridError(t *testing.T) {
	d := New(testCamera(), rlog.Background())
	s := newFakeSurface(insideBox())
	callCount := 0
	err := d.Run(context.Background(), []geom.Surface{s}, func(ctx context.Context, surf geom.Surface, g *geom.Grid) error {
		callCount++
		return rerr.ShaderRuntime("test", "division by zero")
	})
	if err != nil {
		t.Fatalf("a shader-runtime error must not abort the frame, got %v", err)
	}
	if callCount == 0 {
		t.Fatal("onGrid was never called")
	}
}
