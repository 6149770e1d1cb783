package geom

import "github.com/reyesvm/renderer/linalg"

// bezierFromBasis converts 4 control points from an arbitrary cubic
// basis to the Bezier basis via Mbasis · Mbezier⁻¹. basis is the 4×4 basis matrix rows paired
// with the 4 control points as if multiplying a row vector of
// points by basis⁻¹·bezierBasis; here we take the simpler and
// equivalent route of directly blending with precomputed weights.
func bezierFromBasis(basis [4][4]float64, pts [4]linalg.Vec3) [4]linalg.Vec3 {
	var out [4]linalg.Vec3
	for i := 0; i < 4; i++ {
		var sum linalg.Vec3
		for j := 0; j < 4; j++ {
			sum = sum.Add(pts[j].Scale(basis[i][j]))
		}
		out[i] = sum
	}
	return out
}

// BezierBasis is the standard cubic Bezier basis matrix, used as the
// eval-form matrix b(t) = [1,t,t^2,t^3]·BezierBasis·P.
var BezierBasis = [4][4]float64{
	{1, 0, 0, 0},
	{-3, 3, 0, 0},
	{3, -6, 3, 0},
	{-1, 3, -3, 1},
}

// IdentityBasis is the conversion matrix for a patch whose control
// points are already expressed in the Bezier basis: UBasis/VBasis
// store the conversion matrix Mbasis·Mbezier⁻¹, which is the identity
// when there is nothing to convert.
var IdentityBasis = [4][4]float64{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 0, 1},
}

func deCasteljau4(p [4]linalg.Vec3, t float64) linalg.Vec3 {
	a := p[0].Lerp(p[1], t)
	b := p[1].Lerp(p[2], t)
	c := p[2].Lerp(p[3], t)
	ab := a.Lerp(b, t)
	bc := b.Lerp(c, t)
	return ab.Lerp(bc, t)
}

// BilinearPatch is a 4-control-point patch, optionally degenerated to
// a triangle by discarding one corner.
type BilinearPatch struct {
	P        [4]linalg.Vec3 // P00, P10, P01, P11
	Phantom  bool           // true if this patch is missing a corner
	Missing  int            // index of the phantom (discarded) corner
	Pose     Pose
	splitLvl int
}

func (p *BilinearPatch) eval(u, v float64) linalg.Vec3 {
	top := p.P[0].Lerp(p.P[1], u)
	bot := p.P[2].Lerp(p.P[3], u)
	return top.Lerp(bot, v)
}

func (p *BilinearPatch) Bound() Bound {
	b := EmptyBound()
	for _, c := range p.P {
		b.Expand(p.Pose.M.TransformPoint(c))
	}
	return b
}

// Transform composes pose onto the patch's object-to-camera pose,
// leaving the control points untouched: Bound/Diceable/Dice apply the
// accumulated pose at the point of use, matching Quadric.Transform.
func (p *BilinearPatch) Transform(pose Pose) {
	p.Pose.M = pose.M.Mul(p.Pose.M)
	p.Pose.MIT = pose.MIT.Mul(p.Pose.MIT)
	p.Pose.MR = pose.MR
	p.Pose.Time = pose.Time
}

func (p *BilinearPatch) Diceable(mCtoRaster linalg.Mat4, gridSize int) (bool, int, int, SplitDir) {
	toCamera := func(u, v float64) linalg.Vec3 { return p.Pose.M.TransformPoint(p.eval(u, v)) }
	uLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(t, 0) })
	vLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(0, t) })
	if uLen <= float64(gridSize) && vLen <= float64(gridSize) {
		return true, diceSize(uLen, gridSize, false), diceSize(vLen, gridSize, false), SplitU
	}
	if uLen >= vLen {
		return false, 0, 0, SplitU
	}
	return false, 0, 0, SplitV
}

// Split subdivides at the midpoint. A phantom (triangular) patch
// produces three children rather than four: such patches split into
// three children when refined, and descendants remember which corner
// is missing.
func (p *BilinearPatch) Split() []Surface {
	mid := func(a, b linalg.Vec3) linalg.Vec3 { return a.Lerp(b, 0.5) }
	m01 := mid(p.P[0], p.P[1])
	m23 := mid(p.P[2], p.P[3])
	m02 := mid(p.P[0], p.P[2])
	m13 := mid(p.P[1], p.P[3])
	center := mid(m01, m23)

	q0 := &BilinearPatch{P: [4]linalg.Vec3{p.P[0], m01, m02, center}, Pose: p.Pose, splitLvl: p.splitLvl + 1}
	q1 := &BilinearPatch{P: [4]linalg.Vec3{m01, p.P[1], center, m13}, Pose: p.Pose, splitLvl: p.splitLvl + 1}
	q2 := &BilinearPatch{P: [4]linalg.Vec3{m02, center, p.P[2], m23}, Pose: p.Pose, splitLvl: p.splitLvl + 1}
	q3 := &BilinearPatch{P: [4]linalg.Vec3{center, m13, m23, p.P[3]}, Pose: p.Pose, splitLvl: p.splitLvl + 1}

	if !p.Phantom {
		return []Surface{q0, q1, q2, q3}
	}
	// Drop the child that would carry the missing corner, mark the
	// two adjoining it as phantom in turn. The child diagonally opposite
	// the missing corner (index 3-Missing) lies wholly inside the
	// triangle and stays an ordinary patch.
	children := []*BilinearPatch{q0, q1, q2, q3}
	keep := make([]Surface, 0, 3)
	for i, c := range children {
		if i == p.Missing {
			continue
		}
		if i != 3-p.Missing {
			c.Phantom = true
			c.Missing = p.Missing
		}
		keep = append(keep, c)
	}
	return keep
}

func (p *BilinearPatch) Dice(uSize, vSize int) *Grid {
	g := NewGrid(uSize+1, vSize+1)
	normal := p.Pose.MIT.TransformVector(p.P[1].Sub(p.P[0]).Cross(p.P[2].Sub(p.P[0]))).Normalize()
	for iv := 0; iv <= vSize; iv++ {
		v := float64(iv) / float64(vSize)
		for iu := 0; iu <= uSize; iu++ {
			u := float64(iu) / float64(uSize)
			g.Set(iu, iv, p.Pose.M.TransformPoint(p.eval(u, v)), normal, u, v)
		}
	}
	return g
}

// BicubicPatch is a 16-control-point patch stored in the user's
// declared basis, converted to Bezier before splitting/dicing.
type BicubicPatch struct {
	P          [4][4]linalg.Vec3
	UBasis     [4][4]float64
	VBasis     [4][4]float64
	Pose       Pose
	bezierized bool
}

// toBezier applies the user basis to Bezier conversion along both
// parametric directions, producing a control net directly evaluable
// with the standard Bezier blend.
func (p *BicubicPatch) toBezier() {
	if p.bezierized {
		return
	}
	var rows [4][4]linalg.Vec3
	for i := 0; i < 4; i++ {
		var col [4]linalg.Vec3
		for j := 0; j < 4; j++ {
			col[j] = p.P[j][i]
		}
		rows[i] = bezierFromBasis(p.VBasis, col)
	}
	var out [4][4]linalg.Vec3
	for i := 0; i < 4; i++ {
		var row [4]linalg.Vec3
		for j := 0; j < 4; j++ {
			row[j] = rows[j][i]
		}
		blended := bezierFromBasis(p.UBasis, row)
		for j := 0; j < 4; j++ {
			out[i][j] = blended[j]
		}
	}
	p.P = out
	p.UBasis, p.VBasis = IdentityBasis, IdentityBasis
	p.bezierized = true
}

func (p *BicubicPatch) eval(u, v float64) linalg.Vec3 {
	p.toBezier()
	var cols [4]linalg.Vec3
	for i := 0; i < 4; i++ {
		cols[i] = deCasteljau4(p.P[i], v)
	}
	return deCasteljau4(cols, u)
}

func (p *BicubicPatch) Bound() Bound {
	p.toBezier()
	b := EmptyBound()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			b.Expand(p.Pose.M.TransformPoint(p.P[i][j]))
		}
	}
	return b
}

// Transform composes pose onto the patch's object-to-camera pose; see
// BilinearPatch.Transform.
func (p *BicubicPatch) Transform(pose Pose) {
	p.Pose.M = pose.M.Mul(p.Pose.M)
	p.Pose.MIT = pose.MIT.Mul(p.Pose.MIT)
	p.Pose.MR = pose.MR
	p.Pose.Time = pose.Time
}

func (p *BicubicPatch) Diceable(mCtoRaster linalg.Mat4, gridSize int) (bool, int, int, SplitDir) {
	toCamera := func(u, v float64) linalg.Vec3 { return p.Pose.M.TransformPoint(p.eval(u, v)) }
	uLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(t, 0) })
	vLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(0, t) })
	if uLen <= float64(gridSize) && vLen <= float64(gridSize) {
		return true, diceSize(uLen, gridSize, false), diceSize(vLen, gridSize, false), SplitU
	}
	if uLen >= vLen {
		return false, 0, 0, SplitU
	}
	return false, 0, 0, SplitV
}

// Split performs the standard de Casteljau-style midpoint split along
// U, halving the Bezier control net.
func (p *BicubicPatch) Split() []Surface {
	p.toBezier()
	// p.P is indexed [i][j] with i blended against u (the outer
	// parameter in eval) and j against v; splitting in U therefore
	// de Casteljau-subdivides along i for each fixed column j.
	var left, right [4][4]linalg.Vec3
	for j := 0; j < 4; j++ {
		var col [4]linalg.Vec3
		for i := 0; i < 4; i++ {
			col[i] = p.P[i][j]
		}
		a := col[0].Lerp(col[1], 0.5)
		b := col[1].Lerp(col[2], 0.5)
		c := col[2].Lerp(col[3], 0.5)
		ab := a.Lerp(b, 0.5)
		bc := b.Lerp(c, 0.5)
		mid := ab.Lerp(bc, 0.5)
		left[0][j], left[1][j], left[2][j], left[3][j] = col[0], a, ab, mid
		right[0][j], right[1][j], right[2][j], right[3][j] = mid, bc, c, col[3]
	}
	return []Surface{
		&BicubicPatch{P: left, UBasis: IdentityBasis, VBasis: IdentityBasis, Pose: p.Pose, bezierized: true},
		&BicubicPatch{P: right, UBasis: IdentityBasis, VBasis: IdentityBasis, Pose: p.Pose, bezierized: true},
	}
}

func (p *BicubicPatch) Dice(uSize, vSize int) *Grid {
	p.toBezier()
	g := NewGrid(uSize+1, vSize+1)
	const eps = 1e-3
	for iv := 0; iv <= vSize; iv++ {
		v := float64(iv) / float64(vSize)
		for iu := 0; iu <= uSize; iu++ {
			u := float64(iu) / float64(uSize)
			pt := p.eval(u, v)
			du := p.eval(minF(u+eps, 1), v).Sub(pt)
			dv := p.eval(u, minF(v+eps, 1)).Sub(pt)
			n := p.Pose.MIT.TransformVector(du.Cross(dv)).Normalize()
			g.Set(iu, iv, p.Pose.M.TransformPoint(pt), n, u, v)
		}
	}
	return g
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// PatchMesh is a uPatches×vPatches array over an nu×nv control grid,
// with periodicity flags.
type PatchMesh struct {
	NU, NV         int
	Controls       []linalg.Vec3 // row-major, length NU*NV
	UBasis, VBasis [4][4]float64
	UPeriodic, VPeriodic bool
	Pose           Pose
}

func (m *PatchMesh) at(i, j int) linalg.Vec3 {
	if m.UPeriodic {
		i = ((i % m.NU) + m.NU) % m.NU
	}
	if m.VPeriodic {
		j = ((j % m.NV) + m.NV) % m.NV
	}
	return m.Controls[j*m.NU+i]
}

// uPatchCount is the number of bicubic patches spanned along U (vStep
// 1, so a mesh of NU control columns has NU-3 patches unless periodic,
// in which case every column starts a patch).
func (m *PatchMesh) uPatchCount() int {
	if m.UPeriodic {
		return m.NU
	}
	return m.NU - 3
}

func (m *PatchMesh) vPatchCount() int {
	if m.VPeriodic {
		return m.NV
	}
	return m.NV - 3
}

// Patch extracts the (pu, pv)'th bicubic patch as a standalone
// BicubicPatch, looking up control points with wraparound on the
// periodic axes.
func (m *PatchMesh) Patch(pu, pv int) *BicubicPatch {
	var ctrl [4][4]linalg.Vec3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			ctrl[i][j] = m.at(pu+i, pv+j)
		}
	}
	return &BicubicPatch{P: ctrl, UBasis: m.UBasis, VBasis: m.VBasis, Pose: m.Pose}
}

// Split decomposes the mesh into its constituent per-patch bicubic
// surfaces, letting the dispatcher treat each independently from then
// on.
func (m *PatchMesh) Split() []Surface {
	out := make([]Surface, 0, m.uPatchCount()*m.vPatchCount())
	for pv := 0; pv < m.vPatchCount(); pv++ {
		for pu := 0; pu < m.uPatchCount(); pu++ {
			out = append(out, m.Patch(pu, pv))
		}
	}
	return out
}

func (m *PatchMesh) Bound() Bound {
	b := EmptyBound()
	for _, c := range m.Controls {
		b.Expand(m.Pose.M.TransformPoint(c))
	}
	return b
}

// Transform composes pose onto the mesh's object-to-camera pose; see
// BilinearPatch.Transform.
func (m *PatchMesh) Transform(pose Pose) {
	m.Pose.M = pose.M.Mul(m.Pose.M)
	m.Pose.MIT = pose.MIT.Mul(m.Pose.MIT)
	m.Pose.MR = pose.MR
	m.Pose.Time = pose.Time
}

// Diceable always reports false: a mesh is split into per-patch
// bicubic surfaces before any dicing decision is made.
func (m *PatchMesh) Diceable(linalg.Mat4, int) (bool, int, int, SplitDir) {
	return false, 0, 0, SplitBoth
}

func (m *PatchMesh) Dice(uSize, vSize int) *Grid { return m.Patch(0, 0).Dice(uSize, vSize) }
