package svm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/reyesvm/renderer/shade"
)

// jumpOps is the set of mnemonics whose sole/final operand names a
// label rather than a constant or variable.
var jumpOps = map[string]bool{
	"jmp": true, "jz": true, "jnz": true,
	"RS_JZ": true, "RS_JNZ": true, "S_JZ": true, "S_JNZ": true,
}

var typeNames = map[string]shade.Type{
	"float": shade.TFloat, "int": shade.TInt, "point": shade.TPoint,
	"vector": shade.TVector, "normal": shade.TNormal, "color": shade.TColor,
	"matrix": shade.TMatrix, "string": shade.TString, "bool": shade.TBool,
}

var classNames = map[string]shade.Class{
	"uniform": shade.Uniform, "varying": shade.Varying, "vertex": shade.Vertex,
	"constant": shade.Constant, "facevarying": shade.FaceVarying,
}

var shaderTypeNames = map[string]ShaderType{
	"surface": Surface, "light": Light, "volume": Volume, "imager": Imager,
	"displacement": Displacement, "transformation": Transformation, "atmosphere": Atmosphere,
}

// Load parses a textual .slx program. The grammar
// accepted here is line-oriented: one header token pair, zero or more
// local declarations, then an "init:" section and a "main:" section,
// each a sequence of "Label:" lines and instruction lines. A local
// declaration is "type class [arrayLen] name"; any tokens after the
// name are ignored and no default value is recorded, so a local's
// starting value is zero unless init: assigns one.
func Load(r io.Reader) (*Program, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	i := 0
	next := func() ([]string, bool) {
		for i < len(lines) {
			f := lines[i]
			i++
			if len(f) > 0 {
				return f, true
			}
		}
		return nil, false
	}

	header, ok := next()
	if !ok || len(header) < 2 {
		return nil, errors.New("svm: missing shader header")
	}
	st, ok := shaderTypeNames[header[0]]
	if !ok {
		return nil, errors.Errorf("svm: unknown shader type %q", header[0])
	}
	prog := &Program{Type: st, Name: header[1]}

	for i < len(lines) {
		fields := lines[i]
		i++
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "init:" {
			break
		}
		decl, err := parseLocalDecl(fields)
		if err != nil {
			return nil, err
		}
		prog.Locals = append(prog.Locals, decl)
	}

	prog.Init, prog.initLabels, i, err = parseSection(lines, i, "main:")
	if err != nil {
		return nil, err
	}
	prog.Main, prog.mainLabels, i, err = parseSection(lines, i, "")
	if err != nil {
		return nil, err
	}
	for _, code := range [][]Instr{prog.Init, prog.Main} {
		for _, in := range code {
			for _, a := range in.Args {
				if a.Kind == OpSystemVar && !HasSystemVar(a.Str) {
					return nil, errors.Errorf("svm: %s: unsupported system variable %q", prog.Name, a.Str)
				}
			}
		}
	}
	return prog, nil
}

func readLines(r io.Reader) ([][]string, error) {
	var out [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			out = append(out, nil)
			continue
		}
		out = append(out, tokenize(line))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "svm: reading program")
	}
	return out, nil
}

// tokenize splits a line into fields, keeping quoted strings (including
// their embedded spaces) as single tokens.
func tokenize(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case r == ' ' || r == '\t':
			if inQuote {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}

func parseLocalDecl(fields []string) (LocalDecl, error) {
	if len(fields) < 3 {
		return LocalDecl{}, errors.Errorf("svm: malformed local declaration %q", strings.Join(fields, " "))
	}
	typ, ok := typeNames[fields[0]]
	if !ok {
		return LocalDecl{}, errors.Errorf("svm: unknown type %q", fields[0])
	}
	cls, ok := classNames[fields[1]]
	if !ok {
		return LocalDecl{}, errors.Errorf("svm: unknown class %q", fields[1])
	}
	rest := fields[2:]
	arrayLen := 0
	if n, err := strconv.Atoi(rest[0]); err == nil {
		arrayLen = n
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return LocalDecl{}, errors.Errorf("svm: local declaration missing name")
	}
	return LocalDecl{Name: rest[0], Type: typ, Class: cls, ArrayLen: arrayLen}, nil
}

// parseSection parses "Label:" / instruction lines until it sees
// stopAt (or EOF if stopAt is ""), returning the flat instruction
// array, its resolved label table, and the new cursor.
func parseSection(lines [][]string, i int, stopAt string) ([]Instr, map[string]int, int, error) {
	labels := map[string]int{}
	var instrs []Instr
	type pendingJump struct{ instrIdx, argIdx int; label string }
	var pending []pendingJump

	for i < len(lines) {
		fields := lines[i]
		if len(fields) == 0 {
			i++
			continue
		}
		if stopAt != "" && fields[0] == stopAt {
			i++
			break
		}
		i++
		if strings.HasSuffix(fields[0], ":") && len(fields) == 1 {
			labels[strings.TrimSuffix(fields[0], ":")] = len(instrs)
			continue
		}
		instr := Instr{Op: fields[0]}
		args := fields[1:]
		if jumpOps[instr.Op] && len(args) > 0 {
			pending = append(pending, pendingJump{instrIdx: len(instrs), argIdx: 0, label: args[len(args)-1]})
			instr.Args = append(instr.Args, Operand{Kind: OpLabel})
			args = args[:len(args)-1]
		}
		for _, a := range args {
			instr.Args = append(instr.Args, classifyOperand(a))
		}
		instrs = append(instrs, instr)
	}
	for _, pj := range pending {
		idx, ok := labels[pj.label]
		if !ok {
			return nil, nil, i, errors.Errorf("svm: undefined label %q", pj.label)
		}
		instrs[pj.instrIdx].Args[pj.argIdx] = Operand{Kind: OpLabel, Index: idx}
	}
	return instrs, labels, i, nil
}

func classifyOperand(tok string) Operand {
	switch {
	case strings.HasPrefix(tok, "\"") && strings.HasSuffix(tok, "\"") && len(tok) >= 2:
		return Operand{Kind: OpConstString, Str: tok[1 : len(tok)-1]}
	case strings.HasPrefix(tok, "$"):
		return Operand{Kind: OpLocalVar, Str: tok[1:]}
	case strings.HasPrefix(tok, "@"):
		return Operand{Kind: OpSystemVar, Str: tok[1:]}
	default:
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return Operand{Kind: OpConstFloat, Num: f}
		}
		// Bare identifiers that are neither $local nor @system and
		// don't parse as a number are treated as system variables,
		// matching RSL's convention that P, N, u, v, ... are bare.
		return Operand{Kind: OpSystemVar, Str: tok}
	}
}
