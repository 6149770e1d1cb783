package geom

import "github.com/reyesvm/renderer/linalg"

// CurveKind distinguishes linear from cubic curve groups.
type CurveKind int

const (
	LinearCurve CurveKind = iota
	CubicCurve
)

// CurveGroup is an array of curve lengths over a shared control-point
// stream, plus periodicity. Cubic groups store a basis step; control
// points are taken as given and treated as Bezier control points (the
// scene layer defaults the step to 3 and performs no basis conversion).
type CurveGroup struct {
	Kind     CurveKind
	Lengths  []int // control points per curve
	Points   []linalg.Vec3
	Widths   []float64 // per control point; scaled by Pose at Bound/Dice time
	VStep    int       // cubic basis step (Bezier: 3, B-spline: 1, Catmull-Rom: 1, Hermite: 2)
	Periodic bool
	// Normal is the curve's reference normal ("N" bound at primitive
	// creation, RiCurves' uniform N primitive variable). The ribbon
	// conversion extrudes along Normal × tangent; a zero Normal falls
	// back to deriving a binormal from a fixed view direction, which
	// degenerates for curves parallel to that direction.
	Normal linalg.Vec3
	Pose   Pose
}

// segmentStart returns the control-point offset of curve index c's
// s'th cubic segment.
func (g *CurveGroup) segmentStart(c, s int) int {
	off := 0
	for i := 0; i < c; i++ {
		off += g.Lengths[i]
	}
	return off + s*g.VStep
}

func (g *CurveGroup) curveSegmentCount(c int) int {
	n := g.Lengths[c]
	if g.Kind == LinearCurve {
		if g.Periodic {
			return n
		}
		return n - 1
	}
	if g.Periodic {
		return n / g.VStep
	}
	return (n-4)/g.VStep + 1
}

// endpointTangent applies the three-way fallback rule:
// "(P1-P0), else (P2-P0), else (P3-P0), picking the first whose
// squared length exceeds 10^-6 of the longest candidate".
func endpointTangent(p0, p1, p2, p3 linalg.Vec3) linalg.Vec3 {
	candidates := [3]linalg.Vec3{p1.Sub(p0), p2.Sub(p0), p3.Sub(p0)}
	var lenSq [3]float64
	longest := 0.0
	for i, c := range candidates {
		lenSq[i] = c.SqrLength()
		if lenSq[i] > longest {
			longest = lenSq[i]
		}
	}
	threshold := 1e-6 * longest
	for i, c := range candidates {
		if lenSq[i] > threshold {
			return c
		}
	}
	return candidates[2]
}

// Segment is one cubic (or linear, treated as a degree-1 "segment")
// piece of a CurveGroup, the unit the dispatcher actually
// bounds/dices/splits.
type Segment struct {
	group    *CurveGroup
	curve, s int
	ctrl     [4]linalg.Vec3 // for linear, only ctrl[0], ctrl[1] are meaningful
	w0, w1   float64
	split    int
}

// Segments decomposes a CurveGroup into its per-segment Surfaces.
func (g *CurveGroup) Segments() []Surface {
	var out []Surface
	for c := range g.Lengths {
		n := g.curveSegmentCount(c)
		for s := 0; s < n; s++ {
			seg := &Segment{group: g, curve: c, s: s}
			start := g.segmentStart(c, s)
			if g.Kind == LinearCurve {
				seg.ctrl[0] = g.pointAt(c, start)
				seg.ctrl[1] = g.pointAt(c, start+1)
				seg.w0 = g.widthAt(c, start)
				seg.w1 = g.widthAt(c, start+1)
			} else {
				for i := 0; i < 4; i++ {
					seg.ctrl[i] = g.pointAt(c, start+i)
				}
				seg.w0 = g.widthAt(c, start)
				seg.w1 = g.widthAt(c, start+3)
			}
			out = append(out, seg)
		}
	}
	return out
}

func (g *CurveGroup) pointAt(c, i int) linalg.Vec3 {
	base := 0
	for k := 0; k < c; k++ {
		base += g.Lengths[k]
	}
	n := g.Lengths[c]
	if g.Periodic {
		i = i % n
	} else if i >= n {
		i = n - 1
	}
	return g.Points[base+i]
}

func (g *CurveGroup) widthAt(c, i int) float64 {
	base := 0
	for k := 0; k < c; k++ {
		base += g.Lengths[k]
	}
	n := g.Lengths[c]
	if i >= n {
		i = n - 1
	}
	if base+i < len(g.Widths) {
		return g.Widths[base+i]
	}
	return 0.01
}

func (s *Segment) evalPoint(t float64) linalg.Vec3 {
	if s.group.Kind == LinearCurve {
		return s.ctrl[0].Lerp(s.ctrl[1], t)
	}
	return deCasteljau4(s.ctrl, t)
}

func (s *Segment) width(t float64) float64 { return s.w0 + (s.w1-s.w0)*t }

func (s *Segment) tangent(t float64) linalg.Vec3 {
	if s.group.Kind == LinearCurve {
		return s.ctrl[1].Sub(s.ctrl[0])
	}
	if t < 0.5 {
		return endpointTangent(s.ctrl[0], s.ctrl[1], s.ctrl[2], s.ctrl[3])
	}
	return endpointTangent(s.ctrl[3], s.ctrl[2], s.ctrl[1], s.ctrl[0]).Neg()
}

func (s *Segment) Bound() Bound {
	b := EmptyBound()
	n := 2
	if s.group.Kind == CubicCurve {
		n = 4
	}
	maxW := 0.0
	for i := 0; i < n; i++ {
		b.Expand(s.group.Pose.M.TransformPoint(s.ctrl[i]))
	}
	if s.w0 > maxW {
		maxW = s.w0
	}
	if s.w1 > maxW {
		maxW = s.w1
	}
	b.GrowWidth(maxW * s.widthScale())
	return b
}

// widthScale is the isotropic stretch Pose.M applies to a curve's
// width: the average length of the transformed x/y basis vectors,
// derived from Pose.MIT the same way a normal is.
func (s *Segment) widthScale() float64 {
	xHat := s.group.Pose.MIT.TransformVector(linalg.Vec3{X: 1})
	yHat := s.group.Pose.MIT.TransformVector(linalg.Vec3{Y: 1})
	return 0.5 * (xHat.Length() + yHat.Length())
}

// Transform composes pose onto the owning group's object-to-camera
// pose, leaving control points and widths untouched: Bound/Diceable/Dice
// apply the accumulated pose (and derive the width scale from it) at
// the point of use, matching Quadric.Transform. Since Pose lives on the
// shared CurveGroup, this affects every segment of the curve the
// receiver belongs to.
func (s *Segment) Transform(pose Pose) {
	s.group.Pose.M = pose.M.Mul(s.group.Pose.M)
	s.group.Pose.MIT = pose.MIT.Mul(s.group.Pose.MIT)
	s.group.Pose.MR = pose.MR
	s.group.Pose.Time = pose.Time
}

// Diceable chooses between splitting into two shorter segments and
// converting to a ribbon patch: a segment whose raster-space length fits
// the grid-length budget, or that has been split 32 times, is diced.
// The curve's width is not consulted.
func (s *Segment) Diceable(mCtoRaster linalg.Mat4, gridSize int) (bool, int, int, SplitDir) {
	toCamera := func(t float64) linalg.Vec3 { return s.group.Pose.M.TransformPoint(s.evalPoint(t)) }
	length := probeEdgeLength(mCtoRaster, toCamera)
	rasterWidth := s.width(0.5) // approximate; true raster width needs a projected scale factor
	if length <= float64(gridSize) || s.split >= 32 {
		n := diceSize(length, gridSize, false)
		return true, n, 1, SplitU
	}
	_ = rasterWidth
	return false, 0, 0, SplitU
}

// Split bisects the segment's parametric domain, for cubics via
// de Casteljau subdivision.
func (s *Segment) Split() []Surface {
	if s.group.Kind == LinearCurve {
		mid := s.ctrl[0].Lerp(s.ctrl[1], 0.5)
		midW := (s.w0 + s.w1) / 2
		a := &Segment{group: s.group, curve: s.curve, s: s.s, split: s.split + 1}
		a.ctrl[0], a.ctrl[1] = s.ctrl[0], mid
		a.w0, a.w1 = s.w0, midW
		b := &Segment{group: s.group, curve: s.curve, s: s.s, split: s.split + 1}
		b.ctrl[0], b.ctrl[1] = mid, s.ctrl[1]
		b.w0, b.w1 = midW, s.w1
		return []Surface{a, b}
	}
	p := s.ctrl
	a01 := p[0].Lerp(p[1], 0.5)
	a12 := p[1].Lerp(p[2], 0.5)
	a23 := p[2].Lerp(p[3], 0.5)
	a012 := a01.Lerp(a12, 0.5)
	a123 := a12.Lerp(a23, 0.5)
	mid := a012.Lerp(a123, 0.5)
	midW := (s.w0 + s.w1) / 2

	left := &Segment{group: s.group, curve: s.curve, s: s.s, split: s.split + 1}
	left.ctrl = [4]linalg.Vec3{p[0], a01, a012, mid}
	left.w0, left.w1 = s.w0, midW

	right := &Segment{group: s.group, curve: s.curve, s: s.s, split: s.split + 1}
	right.ctrl = [4]linalg.Vec3{mid, a123, a23, p[3]}
	right.w0, right.w1 = midW, s.w1

	return []Surface{left, right}
}

// Dice converts the segment to a ribbon by extruding along
// normal×tangent scaled by width at uSize+1 evenly spaced sample points
// along the segment, filling a 2×(uSize+1) grid directly (no
// intermediate bicubic patch is built). The reference normal comes from the owning group's
// bound N; groups with no bound normal fall back to a fixed view
// direction, which only degenerates for curves running parallel to
// that direction.
func (s *Segment) Dice(uSize, vSize int) *Grid {
	g := NewGrid(2, uSize+1)
	refNormal := s.group.Normal
	useViewFallback := refNormal == (linalg.Vec3{})
	viewDir := linalg.Vec3{X: 0, Y: 0, Z: -1}
	scale := s.widthScale()
	for i := 0; i <= uSize; i++ {
		t := float64(i) / float64(uSize)
		p := s.evalPoint(t)
		tan := s.tangent(t).Normalize()
		var binorm linalg.Vec3
		if useViewFallback {
			binorm = viewDir.Cross(tan).Normalize()
		} else {
			binorm = refNormal.Cross(tan).Normalize()
		}
		w := s.width(t) / 2 * scale
		left := s.group.Pose.M.TransformPoint(p.Sub(binorm.Scale(w)))
		right := s.group.Pose.M.TransformPoint(p.Add(binorm.Scale(w)))
		wn := s.group.Pose.MIT.TransformVector(tan.Cross(binorm)).Normalize()
		g.Set(0, i, left, wn, 0, t)
		g.Set(1, i, right, wn, 1, t)
	}
	return g
}
