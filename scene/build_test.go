package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/linalg"
)

func identity() linalg.Mat4 { return linalg.Identity() }

func vec3(x, y, z float64) linalg.Vec3 { return linalg.Vec3{X: x, Y: y, Z: z} }

func identityMatrix() Matrix {
	return Matrix(linalg.Identity().Rows())
}

func decodeSample(t *testing.T) *Scene {
	t.Helper()
	s, err := Load(strings.NewReader(sampleSceneJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestSurfacesBuildsQuadricAtWorldOrigin(t *testing.T) {
	s := decodeSample(t)
	surfaces, err := s.Surfaces()
	if err != nil {
		t.Fatalf("Surfaces: %v", err)
	}
	if len(surfaces) != 1 {
		t.Fatalf("got %d surfaces, want 1", len(surfaces))
	}
	q, ok := surfaces[0].(*geom.Quadric)
	if !ok {
		t.Fatalf("surface is %T, want *geom.Quadric", surfaces[0])
	}
	if q.Kind != geom.Sphere {
		t.Fatalf("quadric kind = %v, want Sphere", q.Kind)
	}
	// World-to-camera translates by -10 on Z (the sample scene's camera
	// sits at world Z=10 looking down -Z), and the sphere's own
	// transform is identity, so its bound should land at camera-space Z
	// in [-11,-9], not at the object-space [-1,1].
	b := q.Bound()
	if b.Max.Z > -9+1e-9 || b.Min.Z < -11-1e-9 {
		t.Fatalf("camera-space bound = %+v, want Z roughly in [-11,-9]", b)
	}
}

func TestInstancesCarriesOriginatingAttributes(t *testing.T) {
	s := decodeSample(t)
	s.World.Primitives[0].Attributes.Surface = &ShaderRef{Name: "matte"}
	instances, err := s.Instances()
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("got %d instances, want 1", len(instances))
	}
	if instances[0].Attributes.Surface == nil || instances[0].Attributes.Surface.Name != "matte" {
		t.Fatalf("Attributes.Surface = %+v, want a ShaderRef named \"matte\"", instances[0].Attributes.Surface)
	}
}

func TestSurfacesRejectsUnknownPrimitiveKind(t *testing.T) {
	s := decodeSample(t)
	s.World.Primitives[0].Kind = "teapot"
	if _, err := s.Surfaces(); err == nil {
		t.Fatal("expected an error for an unknown primitive kind")
	}
}

func TestSurfacesRejectsMismatchedQuadricBlock(t *testing.T) {
	s := decodeSample(t)
	s.World.Primitives[0].Quadric = nil
	if _, err := s.Surfaces(); err == nil {
		t.Fatal("expected an error when the quadric block is missing")
	}
}

func TestBuildPatchBilinearUsesFourPoints(t *testing.T) {
	p := &Primitive{
		Kind:       "patch",
		Attributes: Attributes{Transform: identityMatrix()},
		Patch: &PatchDef{
			Type: "bilinear",
			Points: []Vec3{
				{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
				{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
			},
		},
	}
	surfaces, err := p.build(identity())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bp, ok := surfaces[0].(*geom.BilinearPatch)
	if !ok {
		t.Fatalf("surface is %T, want *geom.BilinearPatch", surfaces[0])
	}
	if bp.P[1].X != 1 {
		t.Fatalf("P[1].X = %v, want 1", bp.P[1].X)
	}
}

func TestBuildPatchBilinearRejectsWrongPointCount(t *testing.T) {
	p := &Primitive{
		Kind:       "patch",
		Attributes: Attributes{Transform: identityMatrix()},
		Patch:      &PatchDef{Type: "bilinear", Points: []Vec3{{}}},
	}
	if _, err := p.build(identity()); err == nil {
		t.Fatal("expected an error for a bilinear patch with one point")
	}
}

func TestBuildCurvesExpandsToOneSurfacePerSegment(t *testing.T) {
	p := &Primitive{
		Kind:       "curves",
		Attributes: Attributes{Transform: identityMatrix()},
		Curves: &CurvesDef{
			Type:    "linear",
			Lengths: []int{2, 3},
			Points: []Vec3{
				{X: 0}, {X: 1},
				{X: 0}, {X: 1}, {X: 2},
			},
			Widths: []float64{0.1, 0.1, 0.1, 0.1, 0.1},
		},
	}
	surfaces, err := p.build(identity())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// A length-2 linear curve has one segment, a length-3 curve has
	// two, so the group should expand to three Surfaces total.
	if len(surfaces) != 3 {
		t.Fatalf("got %d segments, want 3", len(surfaces))
	}
}

func TestBuildCameraUsesSceneResolution(t *testing.T) {
	s := decodeSample(t)
	cam := s.BuildCamera()
	if cam.XRes != 4 || cam.YRes != 4 {
		t.Fatalf("resolution = %d x %d, want 4x4", cam.XRes, cam.YRes)
	}
	if cam.GridSize != 16 {
		t.Fatalf("GridSize = %d, want the default of 16", cam.GridSize)
	}
}

func TestScreenToRasterMatrixFlipsYAndScales(t *testing.T) {
	m := screenToRasterMatrix(0, 4, 0, 4, 4, 4)
	origin := m.TransformPoint(vec3(0, 0, 0))
	if math.Abs(origin.X) > 1e-9 || math.Abs(origin.Y-4) > 1e-9 {
		t.Fatalf("screen (0,0) -> raster %+v, want (0,4)", origin)
	}
	corner := m.TransformPoint(vec3(4, 4, 0))
	if math.Abs(corner.X-4) > 1e-9 || math.Abs(corner.Y) > 1e-9 {
		t.Fatalf("screen (4,4) -> raster %+v, want (4,0)", corner)
	}
}

func TestBuildDisplaysResolvesFormatNames(t *testing.T) {
	s := decodeSample(t)
	reqs, err := s.BuildDisplays()
	if err != nil {
		t.Fatalf("BuildDisplays: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Name != "beauty" || !reqs[0].Required {
		t.Fatalf("requests = %+v", reqs)
	}
}

func TestBuildDisplaysRejectsUnknownFormat(t *testing.T) {
	s := decodeSample(t)
	s.Displays[0].Formats = []string{"bogus"}
	if _, err := s.BuildDisplays(); err == nil {
		t.Fatal("expected an error for an unknown sample format name")
	}
}
