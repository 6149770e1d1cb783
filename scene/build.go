package scene

import (
	"math"

	"github.com/pkg/errors"

	"github.com/reyesvm/renderer/display"
	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/linalg"
	"github.com/reyesvm/renderer/reyes"
)

var quadricKinds = map[string]geom.QuadricKind{
	"sphere":      geom.Sphere,
	"cone":        geom.Cone,
	"cylinder":    geom.Cylinder,
	"hyperboloid": geom.Hyperboloid,
	"paraboloid":  geom.Paraboloid,
	"torus":       geom.Torus,
	"disk":        geom.Disk,
}

func toVec3(v Vec3) linalg.Vec3 { return linalg.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func toMat4(m Matrix) linalg.Mat4 { return linalg.FromRows([16]float64(m)) }

// poseFrom builds a geom.Pose from a primitive's world-to-camera-composed
// transform, deriving the inverse-transpose used for normal transforms.
func poseFrom(m linalg.Mat4) (geom.Pose, error) {
	mit, ok := m.InverseTranspose()
	if !ok {
		return geom.Pose{}, errors.New("scene: singular transform has no inverse-transpose")
	}
	return geom.Pose{M: m, MIT: mit, MR: m}, nil
}

// Instance pairs one built geom.Surface with the Attributes of the
// primitive it came from, so a caller can still look up the bound
// Surface/Displacement shaders after Surfaces has collapsed curve
// groups to one Surface per segment.
type Instance struct {
	Geometry   geom.Surface
	Attributes Attributes
}

// Surfaces converts every primitive in s.World into a geom.Surface,
// composing its declared object-to-world transform with the camera's
// world-to-camera matrix so every Pose.M lands directly in camera
// space, where geom's eval/Dice/Bound methods expect it. Curve groups
// expand to one Surface per segment, matching CurveGroup.Segments.
func (s *Scene) Surfaces() ([]geom.Surface, error) {
	instances, err := s.Instances()
	if err != nil {
		return nil, err
	}
	out := make([]geom.Surface, len(instances))
	for i, inst := range instances {
		out[i] = inst.Geometry
	}
	return out, nil
}

// Instances is Surfaces plus each built Surface's originating
// Attributes, letting a caller resolve bound shaders per-surface.
func (s *Scene) Instances() ([]Instance, error) {
	worldToCamera := toMat4(s.Camera.WorldToCamera)
	var out []Instance
	for i, prim := range s.World.Primitives {
		surfaces, err := prim.build(worldToCamera)
		if err != nil {
			return nil, errors.Wrapf(err, "scene: primitive %d (%s)", i, prim.Kind)
		}
		for _, g := range surfaces {
			out = append(out, Instance{Geometry: g, Attributes: prim.Attributes})
		}
	}
	return out, nil
}

func (p *Primitive) build(worldToCamera linalg.Mat4) ([]geom.Surface, error) {
	// Mat4 multiplication composes for column-vector application
	// (TransformPoint computes M*p), so the camera transform goes on
	// the left: (worldToCamera*objectToWorld)*p == worldToCamera*(objectToWorld*p).
	objectToCamera := worldToCamera.Mul(toMat4(p.Attributes.Transform))
	pose, err := poseFrom(objectToCamera)
	if err != nil {
		return nil, err
	}
	switch p.Kind {
	case "quadric":
		return p.buildQuadric(pose)
	case "patch":
		return p.buildPatch(pose)
	case "nurbs":
		return p.buildNURBS(pose)
	case "curves":
		return p.buildCurves(pose)
	default:
		return nil, errors.Errorf("scene: unknown primitive kind %q", p.Kind)
	}
}

func (p *Primitive) buildQuadric(pose geom.Pose) ([]geom.Surface, error) {
	if p.Quadric == nil {
		return nil, errors.New("scene: primitive kind \"quadric\" missing its quadric block")
	}
	d := p.Quadric
	kind, ok := quadricKinds[d.Type]
	if !ok {
		return nil, errors.Errorf("scene: unknown quadric type %q", d.Type)
	}
	q := &geom.Quadric{
		Kind:        kind,
		Radius:      d.Radius,
		MinorRadius: d.MinorRadius,
		ZMin:        d.ZMin,
		ZMax:        d.ZMax,
		Height:      d.Height,
		ThetaMin:    d.ThetaMin,
		ThetaMax:    d.ThetaMax,
		PhiMin:      d.PhiMin,
		PhiMax:      d.PhiMax,
		Pose:        pose,
	}
	return []geom.Surface{q}, nil
}

func (p *Primitive) buildPatch(pose geom.Pose) ([]geom.Surface, error) {
	if p.Patch == nil {
		return nil, errors.New("scene: primitive kind \"patch\" missing its patch block")
	}
	d := p.Patch
	switch d.Type {
	case "bilinear":
		if len(d.Points) != 4 {
			return nil, errors.Errorf("scene: bilinear patch needs 4 points, got %d", len(d.Points))
		}
		var ctrl [4]linalg.Vec3
		for i, pt := range d.Points {
			ctrl[i] = toVec3(pt)
		}
		bp := &geom.BilinearPatch{P: ctrl, Phantom: d.Phantom, Missing: d.Missing, Pose: pose}
		return []geom.Surface{bp}, nil
	case "bicubic":
		if len(d.Points) != 16 {
			return nil, errors.Errorf("scene: bicubic patch needs 16 points, got %d", len(d.Points))
		}
		var ctrl [4][4]linalg.Vec3
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				ctrl[i][j] = toVec3(d.Points[i*4+j])
			}
		}
		// The only basis this format currently declares is "bezier":
		// control points already supplied in Bezier form, so both
		// conversion matrices are the identity. A future basis (e.g.
		// "bspline") would map to a real conversion matrix here instead.
		bc := &geom.BicubicPatch{P: ctrl, UBasis: geom.IdentityBasis, VBasis: geom.IdentityBasis, Pose: pose}
		return []geom.Surface{bc}, nil
	default:
		return nil, errors.Errorf("scene: unknown patch type %q", d.Type)
	}
}

func (p *Primitive) buildNURBS(pose geom.Pose) ([]geom.Surface, error) {
	if p.NURBS == nil {
		return nil, errors.New("scene: primitive kind \"nurbs\" missing its nurbs block")
	}
	d := p.NURBS
	control := make([]geom.HPoint, len(d.Control))
	for i, c := range d.Control {
		control[i] = geom.HPoint{X: c.X, Y: c.Y, Z: c.Z, W: c.W}
	}
	n := &geom.NURBS{
		UOrder: d.UOrder, VOrder: d.VOrder,
		UKnots: append([]float64(nil), d.UKnots...),
		VKnots: append([]float64(nil), d.VKnots...),
		CUVerts: d.CUVerts, CVVerts: d.CVVerts,
		Control: control,
		Pose:    pose,
	}
	return []geom.Surface{n}, nil
}

func (p *Primitive) buildCurves(pose geom.Pose) ([]geom.Surface, error) {
	if p.Curves == nil {
		return nil, errors.New("scene: primitive kind \"curves\" missing its curves block")
	}
	d := p.Curves
	kind := geom.LinearCurve
	if d.Type == "cubic" {
		kind = geom.CubicCurve
	}
	points := make([]linalg.Vec3, len(d.Points))
	for i, pt := range d.Points {
		points[i] = toVec3(pt)
	}
	var normal linalg.Vec3
	if d.Normal != nil {
		normal = toVec3(*d.Normal)
	}
	vstep := d.VStep
	if vstep == 0 {
		vstep = 3 // Bezier step, the format's only basis (see buildPatch)
	}
	g := &geom.CurveGroup{
		Kind: kind, Lengths: d.Lengths, Points: points, Widths: d.Widths,
		VStep: vstep, Periodic: d.Periodic, Normal: normal, Pose: pose,
	}
	return g.Segments(), nil
}

// BuildCamera derives a reyes.Camera from the scene's declared
// projection, clip planes and resolution.
func (s *Scene) BuildCamera() reyes.Camera {
	c := s.Camera
	gridSize := c.GridSize
	if gridSize == 0 {
		gridSize = 16
	}
	return reyes.Camera{
		ToRaster: cameraToRaster(c),
		Hither:   c.Hither, Yon: c.Yon,
		XRes: c.XRes, YRes: c.YRes,
		GridSize: gridSize,
	}
}

// cameraToRaster builds the camera-to-raster matrix: screen-to-raster
// applied after the camera-to-screen projection. Mul composes for
// column-vector application, so the later transform goes on the left.
func cameraToRaster(c Camera) linalg.Mat4 {
	proj := perspectiveMatrix(c.Projection.FOV, c.Hither, c.Yon)
	if c.Projection.Kind == "orthographic" {
		proj = linalg.Identity()
	}
	screenToRaster := screenToRasterMatrix(c.CropXMin, c.CropXMax, c.CropYMin, c.CropYMax, c.XRes, c.YRes)
	return screenToRaster.Mul(proj)
}

// perspectiveMatrix builds the camera-to-screen projection: x and y
// scaled by the field of view, z remapped to [0,1] over [hither,yon],
// and w set to the input z so TransformPoint's divide-by-w performs
// the perspective divide. TransformPoint computes out = M*p with p a
// column vector, so row 2 (index 8-11) produces z' and row 3 (index
// 12-15) produces w.
func perspectiveMatrix(fovDegrees, hither, yon float64) linalg.Mat4 {
	if fovDegrees <= 0 {
		fovDegrees = 90
	}
	invTan := 1.0 / tanHalf(fovDegrees)
	m := linalg.Identity()
	rows := m.Rows()
	rows[0] = invTan
	rows[5] = invTan
	rows[10] = yon / (yon - hither)
	rows[11] = -yon * hither / (yon - hither)
	rows[12] = 0
	rows[13] = 0
	rows[14] = 1
	rows[15] = 0
	return linalg.FromRows(rows)
}

func tanHalf(degrees float64) float64 {
	return math.Tan(degrees * math.Pi / 180 / 2)
}

func screenToRasterMatrix(xmin, xmax, ymin, ymax float64, xres, yres int) linalg.Mat4 {
	if xmax == xmin {
		xmin, xmax = -1, 1
	}
	if ymax == ymin {
		ymin, ymax = -1, 1
	}
	m := linalg.Identity()
	rows := m.Rows()
	// screen x in [xmin,xmax] -> raster x in [0,xres]; screen y in
	// [ymin,ymax] -> raster y in [0,yres], flipped since raster Y grows
	// downward while screen Y grows upward. Translation terms live in
	// column 3 of each output row (m[0][3], m[1][3]), matching
	// TransformPoint's out_i = m[i]·p + m[i][3].
	sx := float64(xres) / (xmax - xmin)
	sy := -float64(yres) / (ymax - ymin)
	rows[0] = sx
	rows[3] = -xmin * sx
	rows[5] = sy
	rows[7] = -ymax * sy
	return linalg.FromRows(rows)
}

// BuildDisplays converts the scene's declared display requests into
// display.Request values, resolving format-name strings to
// display.SampleFormat constants.
func (s *Scene) BuildDisplays() ([]display.Request, error) {
	out := make([]display.Request, 0, len(s.Displays))
	for _, d := range s.Displays {
		formats, err := resolveFormats(d.Formats)
		if err != nil {
			return nil, errors.Wrapf(err, "scene: display %q", d.Name)
		}
		out = append(out, display.Request{
			Name: d.Name, Type: d.Type, Mode: d.Mode, Required: d.Required,
			Offered: formats,
		})
	}
	return out, nil
}

var sampleFormatNames = map[string]display.SampleFormat{
	"float":  display.FormatFloat32,
	"uint8":  display.FormatUnsigned8,
	"int8":   display.FormatSigned8,
	"uint16": display.FormatUnsigned16,
	"int16":  display.FormatSigned16,
	"uint32": display.FormatUnsigned32,
	"int32":  display.FormatSigned32,
}

func resolveFormats(names []string) ([]display.SampleFormat, error) {
	if len(names) == 0 {
		return []display.SampleFormat{display.FormatUnsigned8}, nil
	}
	out := make([]display.SampleFormat, len(names))
	for i, n := range names {
		f, ok := sampleFormatNames[n]
		if !ok {
			return nil, errors.Errorf("unknown sample format %q", n)
		}
		out[i] = f
	}
	return out, nil
}
