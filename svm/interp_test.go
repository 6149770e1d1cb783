package svm

import (
	"strings"
	"testing"
)

func TestInterpRunsArithmeticAndStore(t *testing.T) {
	p, err := Load(strings.NewReader(sampleProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env := NewEnvironment(p, 1)
	ip := NewInterp(p, env)
	if err := ip.RunMain(); err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	result := env.LocalByName("result")
	if got := result.GetFloat(0); got != 3 {
		t.Fatalf("result = %v, want 3", got)
	}
	if ip.st.LiveTemps() != 0 {
		t.Fatalf("LiveTemps() after run = %d, want 0 (pool leaked)", ip.st.LiveTemps())
	}
}

const maskProgram = `
surface masked
init:
main:
push 0
S_JZ SkipA
push 99
store $sink
SkipA:
push 1
store $sink
`

func TestInterpMaskSkipsBlock(t *testing.T) {
	text := strings.Replace(maskProgram, "surface masked", "surface masked\nfloat uniform sink", 1)
	p, err := Load(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env := NewEnvironment(p, 1)
	ip := NewInterp(p, env)
	if err := ip.RunMain(); err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if got := env.LocalByName("sink").GetFloat(0); got != 1 {
		t.Fatalf("sink = %v, want 1 (S_JZ should have skipped the 99 branch)", got)
	}
}

const varyingIfProgram = `
surface varyingif
float varying cond
float varying out

init:
main:
push -1
store $out
RS_PUSH
load $cond
S_GET
push 7
store $out
RS_POP
`

// TestInterpVaryingMaskWritesOnlyActiveLanes covers a plain varying if
// with no else: a lane whose condition is false must keep whatever it
// held before the masked store, not the block's write.
func TestInterpVaryingMaskWritesOnlyActiveLanes(t *testing.T) {
	p, err := Load(strings.NewReader(varyingIfProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env := NewEnvironment(p, 2)
	env.LocalByName("cond").SetFloat(0, 1)
	env.LocalByName("cond").SetFloat(1, 0)
	ip := NewInterp(p, env)
	if err := ip.RunMain(); err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	out := env.LocalByName("out")
	if got := out.GetFloat(0); got != 7 {
		t.Fatalf("out[0] = %v, want 7 (active lane should see the masked store)", got)
	}
	if got := out.GetFloat(1); got != -1 {
		t.Fatalf("out[1] = %v, want -1 (masked-off lane must keep its prior value)", got)
	}
}

const nestedVaryingIfElseProgram = `
surface nestedifelse
float varying cond
float varying icond
float varying out

init:
main:
push -1
store $out

RS_PUSH
load $cond
S_GET
RS_JZ End

RS_PUSH
load $icond
S_GET
RS_JZ InnerElse
push 10
store $out
InnerElse:
RS_INVERSE
push 20
store $out
RS_POP

End:
RS_POP
`

// TestInterpNestedVaryingIfElseHonorsEnclosingMask exercises a varying
// if/else nested inside another varying if. Lane 2 never enters the
// outer then-block (its cond is false), so the inner if/else must never
// touch it: RS_INVERSE has to intersect the inverted inner condition
// with the enclosing mask, not just invert the inner one.
func TestInterpNestedVaryingIfElseHonorsEnclosingMask(t *testing.T) {
	p, err := Load(strings.NewReader(nestedVaryingIfElseProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env := NewEnvironment(p, 3)
	cond, icond := env.LocalByName("cond"), env.LocalByName("icond")
	// Lane 0: outer true, inner true.  Lane 1: outer true, inner false.
	// Lane 2: outer false — must stay untouched by anything inside it.
	cond.SetFloat(0, 1)
	cond.SetFloat(1, 1)
	cond.SetFloat(2, 0)
	icond.SetFloat(0, 1)
	icond.SetFloat(1, 0)
	icond.SetFloat(2, 0)

	ip := NewInterp(p, env)
	if err := ip.RunMain(); err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	out := env.LocalByName("out")
	if got := out.GetFloat(0); got != 10 {
		t.Fatalf("out[0] = %v, want 10 (outer true, inner then)", got)
	}
	if got := out.GetFloat(1); got != 20 {
		t.Fatalf("out[1] = %v, want 20 (outer true, inner else)", got)
	}
	if got := out.GetFloat(2); got != -1 {
		t.Fatalf("out[2] = %v, want -1: lane 2 never entered the outer then-block, so the "+
			"inner if/else (RS_INVERSE in particular) must not write to it", got)
	}
}
