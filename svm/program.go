// Package svm implements the shading virtual machine: the loader that
// resolves textual .slx bytecode into a flat program of opcode cells,
// and the interpreter that runs that program against a grid of
// shading lanes under a running execution mask.
package svm

import "github.com/reyesvm/renderer/shade"

// ShaderType classifies which of the seven shader kinds a program
// implements.
type ShaderType int

const (
	Surface ShaderType = iota
	Light
	Volume
	Imager
	Displacement
	Transformation
	Atmosphere
)

func (t ShaderType) String() string {
	switch t {
	case Surface:
		return "surface"
	case Light:
		return "light"
	case Volume:
		return "volume"
	case Imager:
		return "imager"
	case Displacement:
		return "displacement"
	case Transformation:
		return "transformation"
	case Atmosphere:
		return "atmosphere"
	default:
		return "unknown"
	}
}

// OperandKind identifies what an Operand's value means.
type OperandKind int

const (
	// OpConstFloat is an immediate float literal, held in Num as a
	// float64.
	OpConstFloat OperandKind = iota
	// OpConstString is an interned string literal.
	OpConstString
	// OpSystemVar names one of the shading environment's system
	// variables, by name in Str.
	OpSystemVar
	// OpLocalVar names one of the program's declared locals, by name
	// in Str.
	OpLocalVar
	// OpLabel is a resolved instruction index.
	OpLabel
)

// Operand is one resolved argument to an opcode cell.
type Operand struct {
	Kind  OperandKind
	Num   float64
	Str   string
	Index int
}

// Instr is one opcode cell: a mnemonic plus its resolved operands.
type Instr struct {
	Op   string
	Args []Operand
}

// LocalDecl describes one declared local variable.
type LocalDecl struct {
	Name     string
	Type     shade.Type
	Class    shade.Class
	ArrayLen int
}

// Program is the loader's output: two flat instruction arrays (init and
// main) plus the declared locals and interned label table.
type Program struct {
	Type   ShaderType
	Name   string
	Locals []LocalDecl

	Init []Instr
	Main []Instr

	initLabels map[string]int
	mainLabels map[string]int
}

// LocalIndex returns the index of a declared local by name, or -1.
func (p *Program) LocalIndex(name string) int {
	for i, l := range p.Locals {
		if l.Name == name {
			return i
		}
	}
	return -1
}
