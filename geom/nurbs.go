package geom

import (
	"github.com/reyesvm/renderer/linalg"
)

// HPoint is a homogeneous 4D control point (x, y, z, w).
type HPoint struct {
	X, Y, Z, W float64
}

func (h HPoint) euclid() linalg.Vec3 {
	if h.W == 0 {
		return linalg.Vec3{X: h.X, Y: h.Y, Z: h.Z}
	}
	return linalg.Vec3{X: h.X / h.W, Y: h.Y / h.W, Z: h.Z / h.W}
}

func lerpH(a, b HPoint, t float64) HPoint {
	return HPoint{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
		W: a.W + (b.W-a.W)*t,
	}
}

// TrimCurve is a 2D NURBS curve in (u, v) parameter space bounding one
// loop of a trim region.
type TrimCurve struct {
	Order  int
	Knots  []float64
	Points []HPoint // z ignored; x, y are (u, v)
}

// Sample evaluates the trim curve at n+1 regular parameter steps for
// the point-in-loop test, at a density chosen to match the surface's
// shading rate.
func (tc *TrimCurve) Sample(n int) []linalg.Vec3 {
	out := make([]linalg.Vec3, 0, n+1)
	for i := 0; i <= n; i++ {
		u := tc.Knots[tc.Order-1] + float64(i)/float64(n)*(tc.Knots[len(tc.Knots)-tc.Order]-tc.Knots[tc.Order-1])
		out = append(out, evalNurbsCurve(tc.Order, tc.Knots, tc.Points, u))
	}
	return out
}

func evalNurbsCurve(order int, knots []float64, pts []HPoint, u float64) linalg.Vec3 {
	span := findSpan(order, knots, len(pts), u)
	var sum HPoint
	for i := 0; i < order; i++ {
		idx := span - order + 1 + i
		if idx < 0 || idx >= len(pts) {
			continue
		}
		w := basisWeight(order, knots, span, idx, u)
		sum.X += pts[idx].X * w
		sum.Y += pts[idx].Y * w
		sum.Z += pts[idx].Z * w
		sum.W += pts[idx].W * w
	}
	return sum.euclid()
}

// basisWeight is a direct (non-recursive-table) evaluation of the
// i'th B-spline basis function at u via the Cox-de Boor recursion,
// sufficient for the occasional trim/tensor evaluation this renderer
// performs (as opposed to a pre-tabulated basis for every shading
// sample, which the reference implementation precomputes per bucket).
func basisWeight(order int, knots []float64, span, i int, u float64) float64 {
	return coxDeBoor(i, order, knots, u)
}

func coxDeBoor(i, k int, knots []float64, u float64) float64 {
	if k == 1 {
		if i < 0 || i+1 >= len(knots) {
			return 0
		}
		if knots[i] <= u && (u < knots[i+1] || (u == knots[i+1] && i+1 == len(knots)-1)) {
			return 1
		}
		return 0
	}
	var left, right float64
	if i >= 0 && i+k-1 < len(knots) && knots[i+k-1] != knots[i] {
		left = (u - knots[i]) / (knots[i+k-1] - knots[i]) * coxDeBoor(i, k-1, knots, u)
	}
	if i+1 >= 0 && i+k < len(knots) && knots[i+k] != knots[i+1] {
		right = (knots[i+k] - u) / (knots[i+k] - knots[i+1]) * coxDeBoor(i+1, k-1, knots, u)
	}
	return left + right
}

func findSpan(order int, knots []float64, nCtrl int, u float64) int {
	lo, hi := order-1, nCtrl
	if u >= knots[hi] {
		return hi - 1
	}
	for lo < hi {
		mid := (lo + hi) / 2
		if u < knots[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo - 1
}

// pointInLoop applies the odd-winding horizontal-ray-crossing rule.
func pointInLoop(loop []linalg.Vec3, u, v float64) bool {
	inside := false
	n := len(loop)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := loop[i], loop[j]
		if (pi.Y > v) != (pj.Y > v) {
			uCross := pj.X + (v-pj.Y)/(pi.Y-pj.Y)*(pi.X-pj.X)
			if u < uCross {
				inside = !inside
			}
		}
	}
	return inside
}

// NURBS is a tensor-product rational B-spline surface.
type NURBS struct {
	UOrder, VOrder   int
	UKnots, VKnots   []float64
	CUVerts, CVVerts int
	Control          []HPoint // row-major, length CUVerts*CVVerts
	ThetaMin, ThetaMax float64
	Trims            []*TrimCurve
	Pose             Pose
}

func (s *NURBS) at(i, j int) HPoint { return s.Control[j*s.CUVerts+i] }

// InsertKnot performs Boehm-style refinement, inserting ubar r times
// along the U direction: "a single knot inserted r
// times at parameter ū in span k with existing multiplicity s creates
// min(r, p+1-s) new control points per row, using affine combinations
// Q_i = α·P_i + (1-α)·P_{i-1}."
func (s *NURBS) InsertKnot(ubar float64, r int) {
	p := s.UOrder - 1
	k := findSpan(s.UOrder, s.UKnots, s.CUVerts, ubar)
	mult := 0
	for _, kn := range s.UKnots {
		if kn == ubar {
			mult++
		}
	}
	r = minInt(r, p+1-mult)
	if r <= 0 {
		return
	}
	for rep := 0; rep < r; rep++ {
		newKnots := make([]float64, len(s.UKnots)+1)
		copy(newKnots, s.UKnots[:k+1])
		newKnots[k+1] = ubar
		copy(newKnots[k+2:], s.UKnots[k+1:])

		newControl := make([]HPoint, (s.CUVerts+1)*s.CVVerts)
		for row := 0; row < s.CVVerts; row++ {
			for i := 0; i <= s.CUVerts; i++ {
				var q HPoint
				switch {
				case i <= k-p:
					q = s.at(i, row)
				case i > k:
					q = s.at(i-1, row)
				default:
					denom := s.UKnots[i+p] - s.UKnots[i]
					alpha := 0.0
					if denom != 0 {
						alpha = (ubar - s.UKnots[i]) / denom
					}
					q = lerpH(s.at(maxInt(i-1, 0), row), s.at(i, row), alpha)
				}
				newControl[row*(s.CUVerts+1)+i] = q
			}
		}
		s.UKnots = newKnots
		s.Control = newControl
		s.CUVerts++
		k++
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Clamp repeats the endpoint knots to order multiplicity in both
// parametric directions, inserting knots (and the control points that
// go with them) wherever the existing end multiplicity falls short,
// rather than merely overwriting the knot array in place.
func (s *NURBS) Clamp() {
	s.clampU()
	s.transpose()
	s.clampU()
	s.transpose()
}

// clampU raises the multiplicity of s.UKnots' first and last distinct
// values to s.UOrder via Boehm insertion, leaving interior knots and
// the surface's shape untouched. Boehm's insertion formula assumes the
// knot being inserted sits strictly between two already-distinct knot
// values; that assumption breaks at an under-clamped end (findSpan's
// end-of-domain shortcut picks a span that doesn't border the knot
// being inserted, splicing it out of order). clampULow sidesteps this
// by only ever raising the multiplicity of UKnots[0], so the high end
// is handled by reversing the parametrization, clamping what is now
// the low end, then reversing back.
func (s *NURBS) clampU() {
	s.clampULow()
	s.reverseU()
	s.clampULow()
	s.reverseU()
}

func (s *NURBS) clampULow() {
	lo := s.UKnots[0]
	loMult := endMultiplicity(s.UKnots, lo, true)
	if loMult < s.UOrder {
		s.InsertKnot(lo, s.UOrder-loMult)
	}
}

// reverseU reflects the U parametrization: u' = UKnots[0]+UKnots[last]-u.
// Reversing, clamping the (new) low end, and reversing again clamps
// what was originally the high end, reusing clampULow's logic instead
// of a separate high-end insertion path.
func (s *NURBS) reverseU() {
	m := len(s.UKnots) - 1
	span := s.UKnots[0] + s.UKnots[m]
	newKnots := make([]float64, len(s.UKnots))
	for i, k := range s.UKnots {
		newKnots[m-i] = span - k
	}
	s.UKnots = newKnots

	n := s.CUVerts - 1
	newControl := make([]HPoint, len(s.Control))
	for i := 0; i < s.CUVerts; i++ {
		for j := 0; j < s.CVVerts; j++ {
			newControl[j*s.CUVerts+i] = s.at(n-i, j)
		}
	}
	s.Control = newControl
}

// endMultiplicity counts how many times value repeats at the start
// (fromStart) or end of a sorted knot vector.
func endMultiplicity(knots []float64, value float64, fromStart bool) int {
	n := 0
	if fromStart {
		for _, k := range knots {
			if k != value {
				break
			}
			n++
		}
		return n
	}
	for i := len(knots) - 1; i >= 0; i-- {
		if knots[i] != value {
			break
		}
		n++
	}
	return n
}

// transpose swaps the U and V parametric directions in place: a clamp
// (or any other U-only operation) applied before and after a pair of
// transposes acts on V instead, with no separate V-specific
// implementation needed.
func (s *NURBS) transpose() {
	newControl := make([]HPoint, len(s.Control))
	for u := 0; u < s.CUVerts; u++ {
		for v := 0; v < s.CVVerts; v++ {
			newControl[u*s.CVVerts+v] = s.at(u, v)
		}
	}
	s.Control = newControl
	s.UOrder, s.VOrder = s.VOrder, s.UOrder
	s.UKnots, s.VKnots = s.VKnots, s.UKnots
	s.CUVerts, s.CVVerts = s.CVVerts, s.CUVerts
}

// Split inserts the midpoint knot to full multiplicity and partitions
// the control points and knots into two children.
func (s *NURBS) Split() []Surface {
	mid := (s.UKnots[s.UOrder-1] + s.UKnots[len(s.UKnots)-s.UOrder]) / 2
	s.InsertKnot(mid, s.UOrder-1)

	splitIdx := findSpan(s.UOrder, s.UKnots, s.CUVerts, mid) + 1

	left := s.sliceU(0, splitIdx)
	right := s.sliceU(splitIdx-s.UOrder+1, s.CUVerts)
	return []Surface{left, right}
}

func (s *NURBS) sliceU(from, to int) *NURBS {
	n := to - from
	ctrl := make([]HPoint, n*s.CVVerts)
	for row := 0; row < s.CVVerts; row++ {
		for i := 0; i < n; i++ {
			ctrl[row*n+i] = s.at(from+i, row)
		}
	}
	knots := append([]float64{}, s.UKnots[from:from+n+s.UOrder]...)
	out := &NURBS{
		UOrder: s.UOrder, VOrder: s.VOrder,
		UKnots: knots, VKnots: s.VKnots,
		CUVerts: n, CVVerts: s.CVVerts,
		Control: ctrl, Trims: s.Trims, Pose: s.Pose,
	}
	return out
}

func (s *NURBS) Bound() Bound {
	b := EmptyBound()
	for _, c := range s.Control {
		b.Expand(s.Pose.M.TransformPoint(c.euclid()))
	}
	return b
}

// Transform composes pose onto the surface's object-to-camera pose,
// leaving the control net untouched: Bound/Diceable/Dice apply the
// accumulated pose at the point of use, matching Quadric.Transform.
func (s *NURBS) Transform(pose Pose) {
	s.Pose.M = pose.M.Mul(s.Pose.M)
	s.Pose.MIT = pose.MIT.Mul(s.Pose.MIT)
	s.Pose.MR = pose.MR
	s.Pose.Time = pose.Time
}

// blendPoint evaluates the tensor-product rational surface point at
// (u, v) by the standard Cox-de Boor weighted blend of the control
// net, with no normal computation.
func (s *NURBS) blendPoint(u, v float64) linalg.Vec3 {
	spanU := findSpan(s.UOrder, s.UKnots, s.CUVerts, u)
	spanV := findSpan(s.VOrder, s.VKnots, s.CVVerts, v)
	var sum HPoint
	for i := 0; i < s.UOrder; i++ {
		ui := spanU - s.UOrder + 1 + i
		if ui < 0 || ui >= s.CUVerts {
			continue
		}
		wu := coxDeBoor(ui, s.UOrder, s.UKnots, u)
		for j := 0; j < s.VOrder; j++ {
			vi := spanV - s.VOrder + 1 + j
			if vi < 0 || vi >= s.CVVerts {
				continue
			}
			wv := coxDeBoor(vi, s.VOrder, s.VKnots, v)
			w := wu * wv
			c := s.at(ui, vi)
			sum.X += c.X * w
			sum.Y += c.Y * w
			sum.Z += c.Z * w
			sum.W += c.W * w
		}
	}
	return sum.euclid()
}

func (s *NURBS) evalSurf(u, v float64) (linalg.Vec3, linalg.Vec3) {
	p := s.blendPoint(u, v)
	const eps = 1e-3
	pu := s.blendPoint(minF(u+eps, 1), v)
	pv := s.blendPoint(u, minF(v+eps, 1))
	n := pu.Sub(p).Cross(pv.Sub(p)).Normalize()
	return p, n
}

func (s *NURBS) evalPointOnly(u, v float64) linalg.Vec3 {
	return s.blendPoint(u, v)
}

func (s *NURBS) Diceable(mCtoRaster linalg.Mat4, gridSize int) (bool, int, int, SplitDir) {
	toCamera := func(u, v float64) linalg.Vec3 { return s.Pose.M.TransformPoint(s.evalPointOnly(u, v)) }
	uLo, uHi := s.UKnots[s.UOrder-1], s.UKnots[len(s.UKnots)-s.UOrder]
	vLo, vHi := s.VKnots[s.VOrder-1], s.VKnots[len(s.VKnots)-s.VOrder]
	uLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera(uLo+t*(uHi-uLo), (vLo+vHi)/2) })
	vLen := probeEdgeLength(mCtoRaster, func(t float64) linalg.Vec3 { return toCamera((uLo+uHi)/2, vLo+t*(vHi-vLo)) })
	if uLen <= float64(gridSize) && vLen <= float64(gridSize) {
		return true, diceSize(uLen, gridSize, false), diceSize(vLen, gridSize, false), SplitU
	}
	if uLen >= vLen {
		return false, 0, 0, SplitU
	}
	return false, 0, 0, SplitV
}

func (s *NURBS) Dice(uSize, vSize int) *Grid {
	g := NewGrid(uSize+1, vSize+1)
	uLo, uHi := s.UKnots[s.UOrder-1], s.UKnots[len(s.UKnots)-s.UOrder]
	vLo, vHi := s.VKnots[s.VOrder-1], s.VKnots[len(s.VKnots)-s.VOrder]

	loops := make([][]linalg.Vec3, len(s.Trims))
	for i, tc := range s.Trims {
		segs := maxInt(4, ceilDiv(uSize+vSize, 2))
		loops[i] = tc.Sample(segs)
	}

	for iv := 0; iv <= vSize; iv++ {
		v := vLo + float64(iv)/float64(vSize)*(vHi-vLo)
		for iu := 0; iu <= uSize; iu++ {
			u := uLo + float64(iu)/float64(uSize)*(uHi-uLo)
			p, n := s.evalSurf(u, v)
			wp := s.Pose.M.TransformPoint(p)
			wn := s.Pose.MIT.TransformVector(n).Normalize()
			g.Set(iu, iv, wp, wn, (u-uLo)/(uHi-uLo), (v-vLo)/(vHi-vLo))
			if trimmedOut(loops, u, v) {
				g.MarkHole(iu, iv)
			}
		}
	}
	return g
}

// trimmedOut applies the odd-winding rule across every nested trim
// loop: a point inside an odd number of loops is kept, inside an even
// number (including zero) is a hole, matching nested trim semantics.
func trimmedOut(loops [][]linalg.Vec3, u, v float64) bool {
	if len(loops) == 0 {
		return false
	}
	count := 0
	for _, loop := range loops {
		if pointInLoop(loop, u, v) {
			count++
		}
	}
	return count%2 == 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

