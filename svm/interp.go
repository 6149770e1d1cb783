package svm

import (
	"math"

	"github.com/pkg/errors"
	"github.com/reyesvm/renderer/bitvec"
	"github.com/reyesvm/renderer/linalg"
	"github.com/reyesvm/renderer/shade"
)

// opFunc executes one opcode against the interpreter's current stack
// and mask state.
type opFunc func(*Interp, Instr) error

// Interp runs a Program's Init and Main sections against an
// Environment, maintaining the running execution mask stack that
// restricts writes to the lanes still active under the current
// control-flow nesting.
type Interp struct {
	prog *Program
	env  *Environment
	st   *shade.Stack

	masks []*bitvec.V
	pc    int
}

// NewInterp constructs an Interp over env, with every lane initially
// active.
func NewInterp(p *Program, env *Environment) *Interp {
	ip := &Interp{prog: p, env: env, st: shade.NewStack()}
	ip.masks = []*bitvec.V{bitvec.New(env.N)}
	ip.masks[0].SetAll(true)
	return ip
}

// Mask returns the currently active execution mask.
func (ip *Interp) Mask() *bitvec.V { return ip.masks[len(ip.masks)-1] }

func (ip *Interp) pushMask(m *bitvec.V) { ip.masks = append(ip.masks, m) }

func (ip *Interp) popMask() *bitvec.V {
	n := len(ip.masks)
	m := ip.masks[n-1]
	ip.masks = ip.masks[:n-1]
	return m
}

// RunInit executes the program's init: section once, over the same
// lanes and execution mask as main:, computing default parameter values.
func (ip *Interp) RunInit() error { return ip.run(ip.prog.Init) }

// RunMain executes the program's main: section, the per-grid shading
// body.
func (ip *Interp) RunMain() error { return ip.run(ip.prog.Main) }

func (ip *Interp) run(code []Instr) error {
	ip.pc = 0
	for ip.pc < len(code) {
		instr := code[ip.pc]
		fn, ok := opcodes[instr.Op]
		if !ok {
			return errors.Errorf("svm: %s: unknown opcode %q at cell %d", ip.prog.Name, instr.Op, ip.pc)
		}
		next := ip.pc + 1
		ip.pc = next
		if err := fn(ip, instr); err != nil {
			return errors.Wrapf(err, "svm: %s: cell %d (%s)", ip.prog.Name, next-1, instr.Op)
		}
	}
	return nil
}

// resolve dereferences an Operand against the environment and
// constant pool, returning a (non-owned) Value reference for
// OpLocalVar/OpSystemVar operands or a freshly built one-lane constant
// for OpConstFloat/OpConstString.
func (ip *Interp) resolve(a Operand) *shade.Value {
	switch a.Kind {
	case OpLocalVar:
		if v := ip.env.LocalByName(a.Str); v != nil {
			return v
		}
		panic("svm: unresolved local " + a.Str)
	case OpSystemVar:
		return ip.env.System(a.Str)
	case OpConstFloat:
		v := shade.NewUniform(shade.TFloat)
		v.SetFloat(0, a.Num)
		return v
	case OpConstString:
		v := shade.NewUniform(shade.TString)
		v.SetString(0, a.Str)
		return v
	default:
		panic("svm: operand is not a value")
	}
}

func resultSize(a, b *shade.Value) int {
	n := a.Size()
	if b.Size() > n {
		n = b.Size()
	}
	return n
}

func wideClass(a, b *shade.Value, n int) shade.Class {
	if n > 1 {
		return shade.Varying
	}
	if a.Class().IsVarying() || b.Class().IsVarying() {
		return shade.Varying
	}
	return shade.Uniform
}

// maskedAssign copies src into dst lane by lane, honoring mask: a
// masked-off lane keeps its previous dst value, matching the SVM's
// masked-write discipline.
func maskedAssign(dst, src *shade.Value, mask *bitvec.V) {
	n := dst.Size()
	for lane := 0; lane < n; lane++ {
		if mask != nil && lane < mask.Size() && !mask.Get(lane) {
			continue
		}
		srcLane := lane
		if src.Size() == 1 {
			srcLane = 0
		}
		dst.SetFromLane(lane, src, srcLane)
	}
}

func elementwiseFloat(ip *Interp, a, b *shade.Value, aTemp, bTemp bool, fn func(a, b float64) float64) error {
	n := resultSize(a, b)
	out := ip.st.PushTemp(a.Type(), wideClass(a, b, n), n)
	mask := ip.Mask()
	for lane := 0; lane < n; lane++ {
		if mask != nil && lane < mask.Size() && !mask.Get(lane) {
			continue
		}
		al, bl := lane, lane
		if a.Size() == 1 {
			al = 0
		}
		if b.Size() == 1 {
			bl = 0
		}
		out.SetFloat(lane, fn(a.GetFloat(al), b.GetFloat(bl)))
	}
	ip.st.Release(a, aTemp)
	ip.st.Release(b, bTemp)
	return nil
}

// elementwiseTriple applies fn componentwise across whichever of a, b
// is a triple type (point/vector/normal/color), broadcasting a bare
// float operand across all three components.
func elementwiseTriple(ip *Interp, a, b *shade.Value, aTemp, bTemp bool, fn func(a, b float64) float64) error {
	n := resultSize(a, b)
	typ := a.Type()
	if !typ.IsTriple() {
		typ = b.Type()
	}
	out := ip.st.PushTemp(typ, wideClass(a, b, n), n)
	mask := ip.Mask()
	for lane := 0; lane < n; lane++ {
		if mask != nil && lane < mask.Size() && !mask.Get(lane) {
			continue
		}
		al, bl := lane, lane
		if a.Size() == 1 {
			al = 0
		}
		if b.Size() == 1 {
			bl = 0
		}
		at, bt := a.GetTriple(al), b.GetTriple(bl)
		out.SetTriple(lane, linalg.Vec3{
			X: fn(at.X, bt.X),
			Y: fn(at.Y, bt.Y),
			Z: fn(at.Z, bt.Z),
		})
	}
	ip.st.Release(a, aTemp)
	ip.st.Release(b, bTemp)
	return nil
}

// binary pops the top two stack operands (pushed as a, then b) and
// dispatches to the triple or float elementwise path depending on
// their types.
func binary(ip *Interp, fn func(a, b float64) float64) error {
	b, bTemp := ip.st.Pop()
	a, aTemp := ip.st.Pop()
	if a.Type().IsTriple() || b.Type().IsTriple() {
		return elementwiseTriple(ip, a, b, aTemp, bTemp, fn)
	}
	return elementwiseFloat(ip, a, b, aTemp, bTemp, fn)
}

var opcodes map[string]opFunc

func init() {
	opcodes = map[string]opFunc{
		"push": func(ip *Interp, instr Instr) error {
			a := instr.Args[0]
			isTemp := a.Kind == OpConstFloat || a.Kind == OpConstString
			ip.st.Push(ip.resolve(a), isTemp)
			return nil
		},
		"dup": func(ip *Interp, instr Instr) error {
			v, isTemp := ip.st.Pop()
			ip.st.Push(v, isTemp)
			ip.st.Push(v, false)
			return nil
		},
		"drop": func(ip *Interp, instr Instr) error {
			v, isTemp := ip.st.Pop()
			ip.st.Release(v, isTemp)
			return nil
		},
		"load": func(ip *Interp, instr Instr) error {
			ip.st.Push(ip.resolve(instr.Args[0]), false)
			return nil
		},
		"store": func(ip *Interp, instr Instr) error {
			dst := ip.resolve(instr.Args[0])
			src, isTemp := ip.st.Pop()
			maskedAssign(dst, src, ip.Mask())
			ip.st.Release(src, isTemp)
			return nil
		},

		"add": func(ip *Interp, instr Instr) error { return binary(ip, func(a, b float64) float64 { return a + b }) },
		"sub": func(ip *Interp, instr Instr) error { return binary(ip, func(a, b float64) float64 { return a - b }) },
		"mul": func(ip *Interp, instr Instr) error { return binary(ip, func(a, b float64) float64 { return a * b }) },
		"div": func(ip *Interp, instr Instr) error {
			return binary(ip, func(a, b float64) float64 {
				if b == 0 {
					return 0
				}
				return a / b
			})
		},
		"mod": func(ip *Interp, instr Instr) error { return binary(ip, math.Mod) },
		"neg": func(ip *Interp, instr Instr) error {
			v, isTemp := ip.st.Pop()
			out := ip.st.PushTemp(v.Type(), v.Class(), v.Size())
			for lane := 0; lane < v.Size(); lane++ {
				if v.Type().IsTriple() {
					t := v.GetTriple(lane)
					out.SetTriple(lane, linalg.Vec3{X: -t.X, Y: -t.Y, Z: -t.Z})
				} else {
					out.SetFloat(lane, -v.GetFloat(lane))
				}
			}
			ip.st.Release(v, isTemp)
			return nil
		},

		"lt": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a < b }) },
		"le": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a <= b }) },
		"gt": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a > b }) },
		"ge": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a >= b }) },
		"eq": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a == b }) },
		"ne": func(ip *Interp, instr Instr) error { return compare(ip, func(a, b float64) bool { return a != b }) },

		"and": func(ip *Interp, instr Instr) error { return logical(ip, func(a, b bool) bool { return a && b }) },
		"or":  func(ip *Interp, instr Instr) error { return logical(ip, func(a, b bool) bool { return a || b }) },
		"not": func(ip *Interp, instr Instr) error {
			v, isTemp := ip.st.Pop()
			out := ip.st.PushTemp(shade.TBool, v.Class(), v.Size())
			for lane := 0; lane < v.Size(); lane++ {
				out.SetBool(lane, !truthy(v, lane))
			}
			ip.st.Release(v, isTemp)
			return nil
		},

		"sqrt":  func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Sqrt) },
		"abs":   func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Abs) },
		"floor": func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Floor) },
		"ceil":  func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Ceil) },
		"sin":   func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Sin) },
		"cos":   func(ip *Interp, instr Instr) error { return unaryMath(ip, math.Cos) },
		"pow":   func(ip *Interp, instr Instr) error { return binary(ip, math.Pow) },
		"min":   func(ip *Interp, instr Instr) error { return binary(ip, math.Min) },
		"max":   func(ip *Interp, instr Instr) error { return binary(ip, math.Max) },

		"castf2c": func(ip *Interp, instr Instr) error { return castUnary(ip, shade.CastFloatToColor) },
		"castf2p": func(ip *Interp, instr Instr) error { return castUnary(ip, shade.CastFloatToPoint) },
		"castf2m": func(ip *Interp, instr Instr) error { return castUnary(ip, shade.CastFloatToMatrix) },
		"castp2c": func(ip *Interp, instr Instr) error { return castUnary(ip, shade.CastPointToColor) },
		"castc2p": func(ip *Interp, instr Instr) error { return castUnary(ip, shade.CastColorToPoint) },

		"RS_PUSH": func(ip *Interp, instr Instr) error {
			ip.pushMask(ip.Mask().Clone())
			return nil
		},
		"RS_POP": func(ip *Interp, instr Instr) error {
			if len(ip.masks) > 1 {
				ip.popMask()
			}
			return nil
		},
		"RS_GET": func(ip *Interp, instr Instr) error {
			v := ip.st.PushTemp(shade.TBool, shade.Varying, ip.Mask().Size())
			for lane := 0; lane < v.Size(); lane++ {
				v.SetBool(lane, ip.Mask().Get(lane))
			}
			return nil
		},
		"RS_INVERSE": func(ip *Interp, instr Instr) error {
			m := ip.masks[len(ip.masks)-2].Clone()
			inv := ip.Mask().Clone()
			inv.Complement()
			m.And(inv)
			ip.masks[len(ip.masks)-1] = m
			return nil
		},
		"S_CLEAR": func(ip *Interp, instr Instr) error {
			ip.Mask().SetAll(false)
			return nil
		},
		"S_GET": func(ip *Interp, instr Instr) error {
			v, isTemp := ip.st.Pop()
			m := bitvec.New(v.Size())
			for lane := 0; lane < v.Size(); lane++ {
				m.Set(lane, truthy(v, lane))
			}
			m.And(ip.Mask())
			ip.st.Release(v, isTemp)
			ip.masks[len(ip.masks)-1] = m
			return nil
		},

		"jmp": func(ip *Interp, instr Instr) error {
			ip.pc = instr.Args[0].Index
			return nil
		},
		"RS_JZ": func(ip *Interp, instr Instr) error { return jumpIfMask(ip, instr, true) },
		"RS_JNZ": func(ip *Interp, instr Instr) error { return jumpIfMask(ip, instr, false) },
		"S_JZ": func(ip *Interp, instr Instr) error { return jumpIfTop(ip, instr, true) },
		"S_JNZ": func(ip *Interp, instr Instr) error { return jumpIfTop(ip, instr, false) },
	}
}

func castUnary(ip *Interp, fn func(*shade.Value) *shade.Value) error {
	v, isTemp := ip.st.Pop()
	out := fn(v)
	ip.st.Release(v, isTemp)
	ip.st.Push(out, true)
	return nil
}

func unaryMath(ip *Interp, fn func(float64) float64) error {
	v, isTemp := ip.st.Pop()
	out := ip.st.PushTemp(v.Type(), v.Class(), v.Size())
	for lane := 0; lane < v.Size(); lane++ {
		if v.Type().IsTriple() {
			t := v.GetTriple(lane)
			out.SetTriple(lane, linalg.Vec3{X: fn(t.X), Y: fn(t.Y), Z: fn(t.Z)})
		} else {
			out.SetFloat(lane, fn(v.GetFloat(lane)))
		}
	}
	ip.st.Release(v, isTemp)
	return nil
}

func compare(ip *Interp, fn func(a, b float64) bool) error {
	b, bTemp := ip.st.Pop()
	a, aTemp := ip.st.Pop()
	n := resultSize(a, b)
	out := ip.st.PushTemp(shade.TBool, wideClass(a, b, n), n)
	for lane := 0; lane < n; lane++ {
		al, bl := lane, lane
		if a.Size() == 1 {
			al = 0
		}
		if b.Size() == 1 {
			bl = 0
		}
		out.SetBool(lane, fn(a.GetFloat(al), b.GetFloat(bl)))
	}
	ip.st.Release(a, aTemp)
	ip.st.Release(b, bTemp)
	return nil
}

func logical(ip *Interp, fn func(a, b bool) bool) error {
	b, bTemp := ip.st.Pop()
	a, aTemp := ip.st.Pop()
	n := resultSize(a, b)
	out := ip.st.PushTemp(shade.TBool, wideClass(a, b, n), n)
	for lane := 0; lane < n; lane++ {
		al, bl := lane, lane
		if a.Size() == 1 {
			al = 0
		}
		if b.Size() == 1 {
			bl = 0
		}
		out.SetBool(lane, fn(a.GetBool(al), b.GetBool(bl)))
	}
	ip.st.Release(a, aTemp)
	ip.st.Release(b, bTemp)
	return nil
}

// jumpIfMask branches when the current running mask is entirely
// zero (wantZero=true, "RS_JZ": skip a block with no active lanes) or
// when at least one lane is active (wantZero=false, "RS_JNZ").
func jumpIfMask(ip *Interp, instr Instr, wantZero bool) error {
	allZero := ip.Mask().AllZero()
	if allZero == wantZero {
		ip.pc = instr.Args[0].Index
	}
	return nil
}

// truthy treats a bool value's lane as itself and any other value's
// lane as a C-style truth test (nonzero is true), so a shader can branch directly on a
// comparison result or on a plain numeric flag.
func truthy(v *shade.Value, lane int) bool {
	if v.Type() == shade.TBool {
		return v.GetBool(lane)
	}
	return v.GetFloat(lane) != 0
}

// jumpIfTop pops a value and branches on its truthiness, for uniform
// (scalar) control flow that doesn't need a mask push.
func jumpIfTop(ip *Interp, instr Instr, wantZero bool) error {
	v, isTemp := ip.st.Pop()
	z := !truthy(v, 0)
	ip.st.Release(v, isTemp)
	if z == wantZero {
		ip.pc = instr.Args[0].Index
	}
	return nil
}
