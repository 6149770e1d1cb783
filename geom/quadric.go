package geom

import (
	"math"

	"github.com/reyesvm/renderer/linalg"
)

// QuadricKind selects which of the seven standard RenderMan quadrics a
// Quadric evaluates.
type QuadricKind int

const (
	Sphere QuadricKind = iota
	Cone
	Cylinder
	Hyperboloid
	Paraboloid
	Torus
	Disk
)

// Quadric is a parametric quadric primitive: its canonical parameters
// plus a pose, diced analytically from sin/cos tables.
type Quadric struct {
	Kind QuadricKind

	Radius           float64 // sphere/cylinder/disk/torus major radius
	MinorRadius      float64 // torus minor radius
	ZMin, ZMax       float64
	Height           float64 // cone/paraboloid
	ThetaMin, ThetaMax float64 // φ sweep, radians
	PhiMin, PhiMax   float64   // θ sweep (longitudinal), radians

	Pose Pose

	split int // recursion depth, capped by the dispatcher at 32
}

// eval returns the object-space point at (u, v) in [0,1]×[0,1] and its
// (not yet normalized) surface normal, via the analytic parametrization
// for q.Kind.
func (q *Quadric) eval(u, v float64) (p, n linalg.Vec3) {
	phi := q.PhiMin + u*(q.PhiMax-q.PhiMin)
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	switch q.Kind {
	case Sphere:
		theta := q.ThetaMin + v*(q.ThetaMax-q.ThetaMin)
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		r := q.Radius * cosT
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: q.Radius * sinT}
		n = p
	case Cylinder:
		z := q.ZMin + v*(q.ZMax-q.ZMin)
		p = linalg.Vec3{X: q.Radius * cosPhi, Y: q.Radius * sinPhi, Z: z}
		n = linalg.Vec3{X: cosPhi, Y: sinPhi, Z: 0}
	case Cone:
		z := v * q.Height
		r := q.Radius * (1 - v)
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: z}
		slope := q.Radius / q.Height
		n = linalg.Vec3{X: cosPhi, Y: sinPhi, Z: slope}
	case Hyperboloid:
		z := q.ZMin + v*(q.ZMax-q.ZMin)
		r := q.Radius
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: z}
		n = linalg.Vec3{X: cosPhi, Y: sinPhi, Z: 0}
	case Paraboloid:
		z := q.ZMin + v*(q.ZMax-q.ZMin)
		r := q.Radius * math.Sqrt(math.Max(0, z/q.Height))
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: z}
		n = linalg.Vec3{X: cosPhi, Y: sinPhi, Z: q.Height / (2 * math.Max(r, 1e-9))}
	case Torus:
		theta := q.ThetaMin + v*(q.ThetaMax-q.ThetaMin)
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		r := q.Radius + q.MinorRadius*cosT
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: q.MinorRadius * sinT}
		n = linalg.Vec3{X: cosT * cosPhi, Y: cosT * sinPhi, Z: sinT}
	case Disk:
		r := q.Radius * v
		p = linalg.Vec3{X: r * cosPhi, Y: r * sinPhi, Z: q.ZMin}
		n = linalg.Vec3{X: 0, Y: 0, Z: 1}
	}
	return p, n
}

// Bound computes a camera-space bound by revolution: sampling the
// surface densely around its φ and θ sweep and enclosing every
// sampled point. This stands in for the reference design's piecewise-
// Bezier arc enclosure — see DESIGN.md for why a dense
// sampled bound was chosen over deriving per-quadric analytic Bezier
// control points.
func (q *Quadric) Bound() Bound {
	b := EmptyBound()
	const samples = 16
	for i := 0; i <= samples; i++ {
		u := float64(i) / samples
		for j := 0; j <= samples; j++ {
			v := float64(j) / samples
			p, _ := q.eval(u, v)
			b.Expand(q.Pose.M.TransformPoint(p))
		}
	}
	return b
}

func (q *Quadric) Transform(pose Pose) {
	q.Pose.M = pose.M.Mul(q.Pose.M)
	q.Pose.MIT = pose.MIT.Mul(q.Pose.MIT)
	q.Pose.MR = pose.MR
	q.Pose.Time = pose.Time
}

func (q *Quadric) Diceable(mCtoRaster linalg.Mat4, gridSize int) (bool, int, int, SplitDir) {
	toCamera := func(u, v float64) linalg.Vec3 {
		p, _ := q.eval(u, v)
		return q.Pose.M.TransformPoint(p)
	}
	uLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(t, 0.5) })
	vLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(0.5, t) })

	if uLen <= float64(gridSize) && vLen <= float64(gridSize) {
		return true, diceSize(uLen, gridSize, false), diceSize(vLen, gridSize, false), SplitU
	}
	if uLen >= vLen {
		return false, 0, 0, SplitU
	}
	return false, 0, 0, SplitV
}

// Split halves the quadric's parametric domain in U (φ), copying pose
// into both children. It always splits in U; the direction Diceable
// returns is not used.
func (q *Quadric) Split() []Surface {
	a, b := *q, *q
	a.split, b.split = q.split+1, q.split+1
	midPhi := (q.PhiMin + q.PhiMax) / 2
	a.PhiMax, b.PhiMin = midPhi, midPhi
	return []Surface{&a, &b}
}

// Dice fills a (uSize+1)×(vSize+1) grid by analytic evaluation at regular
// (u, v) samples.
func (q *Quadric) Dice(uSize, vSize int) *Grid {
	g := NewGrid(uSize+1, vSize+1)
	for iv := 0; iv <= vSize; iv++ {
		v := float64(iv) / float64(vSize)
		for iu := 0; iu <= uSize; iu++ {
			u := float64(iu) / float64(uSize)
			p, n := q.eval(u, v)
			wp := q.Pose.M.TransformPoint(p)
			wn := q.Pose.MIT.TransformVector(n).Normalize()
			g.Set(iu, iv, wp, wn, u, v)
		}
	}
	return g
}
