// Package shading binds a diced micropolygon grid into the shading
// virtual machine's per-grid Environment and runs a surface's
// Displacement and Surface programs against it, the glue between
// geom's Grid and svm's Interp the dispatcher's GridHandler closes
// over.
package shading

import (
	"strings"

	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/linalg"
	"github.com/reyesvm/renderer/svm"
)

// Shaders bundles the programs bound to one primitive's Displacement
// and Surface shader slots (spec.md §6 Input's ShaderRef pair); either
// may be nil, in which case that stage is skipped.
type Shaders struct {
	Displacement *svm.Program
	Surface      *svm.Program
}

// Run shades a grid in place: it runs Displacement first (so a
// surface shader sees a perturbed P/N), then Surface, leaving the
// grid's Cs/Os holding the final Ci/Oi the dispatcher's caller bins
// into buckets. surfaceName labels errors for rerr's surface-scoped
// kinds.
func Run(surfaceName string, g *geom.Grid, s Shaders) error {
	if s.Displacement != nil {
		if err := runStage(surfaceName, g, s.Displacement, bindDisplacement, writeDisplacement); err != nil {
			return err
		}
	}
	if s.Surface != nil {
		if err := runStage(surfaceName, g, s.Surface, bindSurface, writeSurface); err != nil {
			return err
		}
	}
	return nil
}

func runStage(surfaceName string, g *geom.Grid, prog *svm.Program, bind func(*svm.Environment, *geom.Grid), writeback func(*svm.Environment, *geom.Grid)) error {
	n := len(g.P)
	env := svm.NewEnvironment(prog, n)
	bind(env, g)
	ip := svm.NewInterp(prog, env)
	if err := ip.RunInit(); err != nil {
		return classify(surfaceName, prog.Name, err)
	}
	if err := ip.RunMain(); err != nil {
		return classify(surfaceName, prog.Name, err)
	}
	writeback(env, g)
	return nil
}

// classify maps an interpreter error to the rerr kind its cause
// matches: an unknown opcode is listed under KindFatalFrame in
// rerr's own doc comment (a program the loader accepted but the
// interpreter can't execute indicates a corrupt or unsupported build,
// not a per-shader numeric fault), everything else is a recoverable
// KindShaderRuntime fault scoped to this surface.
func classify(surfaceName, shaderName string, err error) error {
	if strings.Contains(err.Error(), "unknown opcode") {
		return rerr.FatalFrame("shading: %s: %v", shaderName, err)
	}
	return rerr.ShaderRuntime(surfaceName, "shading: %s: %v", shaderName, err)
}

// bindGeometry sets the system variables every shader stage shares:
// position, normals, parametric and texture coordinates.
func bindGeometry(env *svm.Environment, g *geom.Grid) {
	p, n := env.System("P"), env.System("N")
	ng := env.System("Ng")
	u, v := env.System("u"), env.System("v")
	s, t := env.System("s"), env.System("t")
	for i := range g.P {
		p.SetTriple(i, g.P[i])
		n.SetTriple(i, g.N[i])
		ng.SetTriple(i, g.N[i])
		u.SetFloat(i, g.U[i])
		v.SetFloat(i, g.V[i])
		s.SetFloat(i, g.S[i])
		t.SetFloat(i, g.T[i])
	}
}

func bindDisplacement(env *svm.Environment, g *geom.Grid) {
	bindGeometry(env, g)
}

// writeDisplacement reads the possibly-perturbed P/N back from the
// environment into the grid, so the surface stage (and Bound/Dice
// callers downstream) see the displaced geometry.
func writeDisplacement(env *svm.Environment, g *geom.Grid) {
	p, n := env.System("P"), env.System("N")
	for i := range g.P {
		g.P[i] = p.GetTriple(i)
		g.N[i] = n.GetTriple(i)
	}
}

// bindSurface binds the geometry plus the surface-shading-only system
// variables: Cs/Os (inherited color/opacity), I (the view vector,
// approximated as P itself since camera space puts the eye at the
// origin), and Ci/Oi pre-seeded with Cs/Os as the no-op fallback a
// surface shader that never assigns them falls back to.
func bindSurface(env *svm.Environment, g *geom.Grid) {
	bindGeometry(env, g)
	cs, os := env.System("Cs"), env.System("Os")
	i, ci, oi := env.System("I"), env.System("Ci"), env.System("Oi")
	for idx := range g.P {
		cs.SetTriple(idx, g.Cs[idx])
		os.SetTriple(idx, g.Os[idx])
		i.SetTriple(idx, g.P[idx])
		// Ci/Oi default to the inherited Cs/Os, the usual fallback for
		// a surface shader that never assigns them.
		ci.SetTriple(idx, g.Cs[idx])
		oi.SetTriple(idx, g.Os[idx])
	}
	env.System("E").SetTriple(0, linalg.Vec3{})
}

// writeSurface reads Ci/Oi back into the grid's Cs/Os storage, the
// slots display.ReorderToRGBA and the bucket compositor read as the
// grid's final color and opacity.
func writeSurface(env *svm.Environment, g *geom.Grid) {
	ci, oi := env.System("Ci"), env.System("Oi")
	for i := range g.P {
		g.Cs[i] = ci.GetTriple(i)
		g.Os[i] = oi.GetTriple(i)
	}
}
