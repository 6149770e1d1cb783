package shading

import (
	"testing"

	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/linalg"
	"github.com/reyesvm/renderer/svm"
)

func twoPointGrid() *geom.Grid {
	g := geom.NewGrid(2, 1)
	g.P[0] = linalg.Vec3{X: 0, Y: 0, Z: 0}
	g.P[1] = linalg.Vec3{X: 1, Y: 0, Z: 0}
	g.N[0] = linalg.Vec3{X: 0, Y: 0, Z: 1}
	g.N[1] = linalg.Vec3{X: 0, Y: 0, Z: 1}
	return g
}

func constantColorProgram(name string) *svm.Program {
	return &svm.Program{
		Type: svm.Surface,
		Name: name,
		Main: []svm.Instr{
			{Op: "push", Args: []svm.Operand{{Kind: svm.OpConstFloat, Num: 1}}},
			{Op: "castf2c"},
			{Op: "store", Args: []svm.Operand{{Kind: svm.OpSystemVar, Str: "Ci"}}},
		},
	}
}

func offsetPositionProgram(name string) *svm.Program {
	return &svm.Program{
		Type: svm.Displacement,
		Name: name,
		Main: []svm.Instr{
			{Op: "push", Args: []svm.Operand{{Kind: svm.OpSystemVar, Str: "P"}}},
			{Op: "push", Args: []svm.Operand{{Kind: svm.OpConstFloat, Num: 0.5}}},
			{Op: "add"},
			{Op: "store", Args: []svm.Operand{{Kind: svm.OpSystemVar, Str: "P"}}},
		},
	}
}

func unknownOpcodeProgram(name string) *svm.Program {
	return &svm.Program{
		Type: svm.Surface,
		Name: name,
		Main: []svm.Instr{{Op: "bogus"}},
	}
}

func TestRunSurfaceWritesCiBackToGridCs(t *testing.T) {
	g := twoPointGrid()
	if err := Run("sphere1", g, Shaders{Surface: constantColorProgram("whiteout")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, c := range g.Cs {
		if c.X != 1 || c.Y != 1 || c.Z != 1 {
			t.Fatalf("Cs[%d] = %+v, want (1,1,1)", i, c)
		}
	}
}

func TestRunDisplacementWritesPBackToGrid(t *testing.T) {
	g := twoPointGrid()
	if err := Run("sphere1", g, Shaders{Displacement: offsetPositionProgram("bump")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []linalg.Vec3{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 1.5, Y: 0.5, Z: 0.5}}
	for i, p := range g.P {
		if p != want[i] {
			t.Fatalf("P[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestRunDisplacementThenSurfaceSeesPerturbedGeometry(t *testing.T) {
	g := twoPointGrid()
	s := Shaders{
		Displacement: offsetPositionProgram("bump"),
		Surface:      constantColorProgram("whiteout"),
	}
	if err := Run("sphere1", g, s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.P[0].X != 0.5 {
		t.Fatalf("P[0].X = %v, want 0.5 (displacement ran before surface)", g.P[0].X)
	}
	if g.Cs[0].X != 1 {
		t.Fatalf("Cs[0].X = %v, want 1", g.Cs[0].X)
	}
}

func TestRunClassifiesUnknownOpcodeAsFatalFrame(t *testing.T) {
	g := twoPointGrid()
	err := Run("sphere1", g, Shaders{Surface: unknownOpcodeProgram("broken")})
	if err == nil {
		t.Fatal("expected Run to fail on an unknown opcode")
	}
	if !rerr.Is(err, rerr.KindFatalFrame) {
		t.Fatalf("expected KindFatalFrame, got %v", err)
	}
}
