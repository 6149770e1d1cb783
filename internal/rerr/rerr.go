// Package rerr classifies errors into the five kinds the renderer core
// distinguishes: recoverable shader-runtime faults, geometric warnings,
// fatal-per-surface, fatal-per-frame and fatal-per-process errors. Each
// kind has different propagation rules (see the doc on each Kind
// constant); callers branch on Kind rather than matching strings.
package rerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies the severity and propagation scope of an error.
type Kind int

const (
	// KindShaderRuntime marks a numeric domain fault, unresolved
	// variable, out-of-range array index or missing texture: logged
	// once, the offending lane set to a neutral value, shading
	// continues. Never propagates out of a grid.
	KindShaderRuntime Kind = iota
	// KindGeometricWarning marks a degenerate control hull, an
	// under-specified periodic curve or trim curve: logged, the
	// surface does its best with approximate bounds. Never propagates
	// out of a surface.
	KindGeometricWarning
	// KindFatalSurface marks split-recursion exhaustion or grid
	// allocation failure: the surface is discarded, the frame
	// continues.
	KindFatalSurface
	// KindFatalFrame marks an unknown opcode, stack underflow, or a
	// refused connection to a required display: the frame aborts.
	KindFatalFrame
	// KindFatalProcess marks out-of-memory or socket subsystem
	// initialization failure: the process logs and exits non-zero.
	KindFatalProcess
)

func (k Kind) String() string {
	switch k {
	case KindShaderRuntime:
		return "shader-runtime"
	case KindGeometricWarning:
		return "geometric-warning"
	case KindFatalSurface:
		return "fatal-surface"
	case KindFatalFrame:
		return "fatal-frame"
	case KindFatalProcess:
		return "fatal-process"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and, where available, the
// surface identity the fault was stamped with. No parameter-space
// coordinate is recorded.
type Error struct {
	kind    Kind
	surface string
	cause   error
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Surface returns the hierarchy path of the surface the error was
// stamped with, or "" if none was supplied.
func (e *Error) Surface() string { return e.surface }

// Cause returns the underlying error, for use with errors.Cause.
func (e *Error) Cause() error { return e.cause }

// Unwrap supports errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	if e.surface == "" {
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	}
	return fmt.Sprintf("%s[%s]: %v", e.kind, e.surface, e.cause)
}

func newf(kind Kind, surface, format string, args ...interface{}) *Error {
	return &Error{kind: kind, surface: surface, cause: pkgerrors.Errorf(format, args...)}
}

func wrap(kind Kind, surface string, cause error, msg string) *Error {
	return &Error{kind: kind, surface: surface, cause: pkgerrors.Wrap(cause, msg)}
}

// ShaderRuntime builds a recoverable shader-runtime error.
func ShaderRuntime(surface, format string, args ...interface{}) *Error {
	return newf(KindShaderRuntime, surface, format, args...)
}

// GeometricWarning builds a geometric warning.
func GeometricWarning(surface, format string, args ...interface{}) *Error {
	return newf(KindGeometricWarning, surface, format, args...)
}

// FatalSurface builds a fatal-per-surface error.
func FatalSurface(surface string, cause error, msg string) *Error {
	return wrap(KindFatalSurface, surface, cause, msg)
}

// FatalFrame builds a fatal-per-frame error.
func FatalFrame(format string, args ...interface{}) *Error {
	return newf(KindFatalFrame, "", format, args...)
}

// FatalProcess builds a fatal-per-process error.
func FatalProcess(cause error, msg string) *Error {
	return wrap(KindFatalProcess, "", cause, msg)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
