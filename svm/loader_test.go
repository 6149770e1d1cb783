package svm

import (
	"strings"
	"testing"

	"github.com/reyesvm/renderer/shade"
)

const sampleProgram = `
surface test
float uniform result
color varying tint

init:
main:
push 1
push 2
add
store $result
`

func TestLoadParsesHeaderAndLocals(t *testing.T) {
	p, err := Load(strings.NewReader(sampleProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Type != Surface {
		t.Fatalf("Type = %v, want Surface", p.Type)
	}
	if p.Name != "test" {
		t.Fatalf("Name = %q, want test", p.Name)
	}
	if len(p.Locals) != 2 {
		t.Fatalf("len(Locals) = %d, want 2", len(p.Locals))
	}
	if p.Locals[0].Type != shade.TFloat || p.Locals[0].Class != shade.Uniform {
		t.Fatalf("Locals[0] = %+v, want float uniform", p.Locals[0])
	}
	if p.Locals[1].Type != shade.TColor || p.Locals[1].Class != shade.Varying {
		t.Fatalf("Locals[1] = %+v, want color varying", p.Locals[1])
	}
	if p.LocalIndex("tint") != 1 {
		t.Fatalf("LocalIndex(tint) = %d, want 1", p.LocalIndex("tint"))
	}
}

func TestLoadResolvesMainInstructions(t *testing.T) {
	p, err := Load(strings.NewReader(sampleProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Main) != 4 {
		t.Fatalf("len(Main) = %d, want 4", len(p.Main))
	}
	if p.Main[0].Op != "push" || p.Main[0].Args[0].Kind != OpConstFloat || p.Main[0].Args[0].Num != 1 {
		t.Fatalf("Main[0] = %+v", p.Main[0])
	}
	if p.Main[3].Op != "store" || p.Main[3].Args[0].Kind != OpLocalVar || p.Main[3].Args[0].Str != "result" {
		t.Fatalf("Main[3] = %+v", p.Main[3])
	}
}

const jumpProgram = `
surface labeled
init:
main:
Start:
push 1
S_JZ Done
push 2
Done:
drop
`

func TestLoadResolvesLabels(t *testing.T) {
	p, err := Load(strings.NewReader(jumpProgram))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var jz *Instr
	for i := range p.Main {
		if p.Main[i].Op == "S_JZ" {
			jz = &p.Main[i]
		}
	}
	if jz == nil {
		t.Fatalf("no S_JZ instruction found")
	}
	if jz.Args[0].Kind != OpLabel {
		t.Fatalf("S_JZ operand kind = %v, want OpLabel", jz.Args[0].Kind)
	}
	if got, want := p.Main[jz.Args[0].Index].Op, "drop"; got != want {
		t.Fatalf("resolved label points at %q, want %q", got, want)
	}
}
