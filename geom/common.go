// Package geom implements the REYES geometric primitives: quadrics,
// bilinear/bicubic patches and patch meshes, NURBS surfaces, and curve
// groups, plus the common bound/transform/diceable/split/dice contract
// the dispatcher drives them through.
package geom

import "github.com/reyesvm/renderer/linalg"

// Bound is an axis-aligned box in camera space.
type Bound struct {
	Min, Max linalg.Vec3
}

// EmptyBound returns a bound that Expand will grow from nothing.
func EmptyBound() Bound {
	const inf = 1e30
	return Bound{
		Min: linalg.Vec3{X: inf, Y: inf, Z: inf},
		Max: linalg.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Expand grows the bound to enclose p.
func (b *Bound) Expand(p linalg.Vec3) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}

// Union returns the smallest bound enclosing both b and o.
func (b Bound) Union(o Bound) Bound {
	out := b
	out.Expand(o.Min)
	out.Expand(o.Max)
	return out
}

// GrowWidth expands the bound uniformly by r in every direction, used
// to account for curve width.
func (b *Bound) GrowWidth(r float64) {
	b.Min.X -= r
	b.Min.Y -= r
	b.Min.Z -= r
	b.Max.X += r
	b.Max.Y += r
	b.Max.Z += r
}

// StraddlesEyePlane reports whether the bound spans z=0, the
// condition that forces non-diceable/split-both in the dispatcher.
func (b Bound) StraddlesEyePlane() bool { return b.Min.Z < 0 && b.Max.Z > 0 }

// Pose carries the three transform matrices a primitive composes onto
// itself: object-to-camera, its inverse-transpose, and a raster-space
// variant.
type Pose struct {
	M    linalg.Mat4 // object to camera
	MIT  linalg.Mat4 // inverse-transpose, for normals
	MR   linalg.Mat4 // raster-space variant used by Diceable's probe
	Time float64
}

// SplitDir names which parametric axis a non-diceable surface should
// split along.
type SplitDir int

const (
	SplitU SplitDir = iota
	SplitV
	SplitBoth
)

// PrimVars holds a surface's declared color and opacity, each a single
// uniform value; no other primitive variables are carried.
type PrimVars struct {
	Cs, Os *linalg.Vec3 // nil if not declared; uniform fallback color/opacity
}

// Grid is a diced micropolygon grid: nu × nv vertices with their
// shading-relevant per-vertex arrays, ready for SVM submission.
type Grid struct {
	NU, NV int
	P      []linalg.Vec3
	N      []linalg.Vec3
	U, V   []float64
	S, T   []float64
	Cs, Os []linalg.Vec3
	Hole   []bool // NURBS trim mask; nil when the surface has no trim loops
}

// NewGrid allocates a Grid of the given resolution with all arrays
// sized nu*nv, Cs/Os pre-filled opaque white.
func NewGrid(nu, nv int) *Grid {
	n := nu * nv
	g := &Grid{
		NU: nu, NV: nv,
		P: make([]linalg.Vec3, n), N: make([]linalg.Vec3, n),
		U: make([]float64, n), V: make([]float64, n),
		S: make([]float64, n), T: make([]float64, n),
		Cs: make([]linalg.Vec3, n), Os: make([]linalg.Vec3, n),
	}
	for i := range g.Cs {
		g.Cs[i] = linalg.Vec3{X: 1, Y: 1, Z: 1}
		g.Os[i] = linalg.Vec3{X: 1, Y: 1, Z: 1}
	}
	return g
}

func (g *Grid) index(iu, iv int) int { return iv*g.NU + iu }

// Set fills one grid vertex's position/normal/parametric coordinates.
func (g *Grid) Set(iu, iv int, p, n linalg.Vec3, u, v float64) {
	i := g.index(iu, iv)
	g.P[i], g.N[i] = p, n
	g.U[i], g.V[i] = u, v
	g.S[i], g.T[i] = u, v
}

// MarkHole flags a diced vertex as trimmed away (NURBS.Dice marks every
// vertex trimmedOut reports).
func (g *Grid) MarkHole(iu, iv int) {
	if g.Hole == nil {
		g.Hole = make([]bool, g.NU*g.NV)
	}
	g.Hole[g.index(iu, iv)] = true
}

// Surface is the contract every geometric primitive implements, driven
// by the REYES dispatcher.
type Surface interface {
	Bound() Bound
	Transform(pose Pose)
	Diceable(mCtoRaster linalg.Mat4, gridSize int) (diceable bool, uSize, vSize int, dir SplitDir)
	Split() []Surface
	Dice(uSize, vSize int) *Grid
}

// probeEdgeLength estimates a primitive's projected raster-space edge
// length along one parametric axis using an 8-point probe dice, by
// sampling eval at 9 points along the edge and summing consecutive
// projected distances.
func probeEdgeLength(mCtoRaster linalg.Mat4, eval func(t float64) linalg.Vec3) float64 {
	const probes = 8
	length := 0.0
	prev := mCtoRaster.TransformPoint(eval(0))
	for i := 1; i <= probes; i++ {
		t := float64(i) / probes
		cur := mCtoRaster.TransformPoint(eval(t))
		length += prev.Sub(cur).Length()
		prev = cur
	}
	return length
}

// diceSize converts a raster-space edge length into a grid resolution
// bounded by gridSize, rounding up to the next power of two if binary
// is set.
func diceSize(edgeLen float64, gridSize int, binary bool) int {
	n := int(edgeLen)
	if n < 1 {
		n = 1
	}
	if n > gridSize {
		n = gridSize
	}
	if binary {
		p := 1
		for p < n {
			p <<= 1
		}
		n = p
	}
	return n
}
