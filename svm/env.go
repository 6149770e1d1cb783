package svm

import "github.com/reyesvm/renderer/shade"

// systemVarSpec describes one system variable's type and class, used
// to allocate Environment storage lazily on first reference.
type systemVarSpec struct {
	typ   shade.Type
	class shade.Class
}

// systemVars enumerates the representative subset of RenderMan's
// standard shading variables this interpreter supports:
// geometric, surface, and light-loop state. A shader referencing a
// name outside this table fails to load with an error rather than
// panicking at run time.
var systemVars = map[string]systemVarSpec{
	"P":   {shade.TPoint, shade.Varying},
	"N":   {shade.TNormal, shade.Varying},
	"Ng":  {shade.TNormal, shade.Varying},
	"I":   {shade.TVector, shade.Varying},
	"E":   {shade.TPoint, shade.Uniform},
	"u":   {shade.TFloat, shade.Varying},
	"v":   {shade.TFloat, shade.Varying},
	"s":   {shade.TFloat, shade.Varying},
	"t":   {shade.TFloat, shade.Varying},
	"du":  {shade.TFloat, shade.Varying},
	"dv":  {shade.TFloat, shade.Varying},
	"dPdu": {shade.TVector, shade.Varying},
	"dPdv": {shade.TVector, shade.Varying},
	"Cs":  {shade.TColor, shade.Varying},
	"Os":  {shade.TColor, shade.Varying},
	"Ci":  {shade.TColor, shade.Varying},
	"Oi":  {shade.TColor, shade.Varying},
	"L":   {shade.TVector, shade.Varying},
	"Cl":  {shade.TColor, shade.Varying},
	"Ol":  {shade.TColor, shade.Varying},
	"time": {shade.TFloat, shade.Uniform},
	"alpha": {shade.TFloat, shade.Varying},
}

// Environment is the shading context a program's Init and Main
// sections run against: one lane per micropolygon-grid vertex, the
// system variables for this shader stage, and storage for every
// declared local.
type Environment struct {
	N       int
	program *Program
	system  map[string]*shade.Value
	locals  []*shade.Value
}

// NewEnvironment allocates an Environment with n shading lanes for the
// given program, pre-allocating every declared local and lazily
// allocating system variables as they're first referenced.
func NewEnvironment(p *Program, n int) *Environment {
	e := &Environment{N: n, program: p, system: map[string]*shade.Value{}}
	e.locals = make([]*shade.Value, len(p.Locals))
	for i, decl := range p.Locals {
		size := n
		if !decl.Class.IsVarying() {
			size = 1
		}
		e.locals[i] = shade.New(decl.Type, decl.Class, size)
		e.locals[i].SetName(decl.Name)
	}
	return e
}

// Local returns the storage for the i'th declared local.
func (e *Environment) Local(i int) *shade.Value { return e.locals[i] }

// LocalByName resolves a declared local by name, or returns nil.
func (e *Environment) LocalByName(name string) *shade.Value {
	if i := e.program.LocalIndex(name); i >= 0 {
		return e.locals[i]
	}
	return nil
}

// System returns the storage for a system variable, allocating it on
// first use. It panics if name is not in the supported set; Load
// rejects programs that reference such a name, so a loaded program
// never reaches that panic.
func (e *Environment) System(name string) *shade.Value {
	if v, ok := e.system[name]; ok {
		return v
	}
	spec, ok := systemVars[name]
	if !ok {
		panic("svm: unsupported system variable " + name)
	}
	size := e.N
	if !spec.class.IsVarying() {
		size = 1
	}
	v := shade.New(spec.typ, spec.class, size)
	v.SetName(name)
	e.system[name] = v
	return v
}

// HasSystemVar reports whether name is a recognized system variable,
// used by the loader's validation pass.
func HasSystemVar(name string) bool {
	_, ok := systemVars[name]
	return ok
}
