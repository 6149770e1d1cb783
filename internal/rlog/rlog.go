// Package rlog provides the renderer's context-carried logger. Every
// subsystem logs through a Context built on top of context.Context,
// mirroring the shape of the teacher's own log.Context (At/Info/Error/
// Fatal returning a Logger) but backed by a standard structured logger
// (zerolog) instead of the teacher's own styling/formatting stack.
package rlog

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type ctxKeyType struct{}

var ctxKey ctxKeyType

// Context is a fluent wrapper around context.Context that carries a
// zerolog.Logger and the renderer's surface/bucket identity tags.
type Context struct {
	context.Context
	logger zerolog.Logger
}

// New builds a root Context writing to w (os.Stderr if w is nil).
func New(w io.Writer) Context {
	if w == nil {
		w = os.Stderr
	}
	return Context{
		Context: context.Background(),
		logger:  zerolog.New(w).With().Timestamp().Logger(),
	}
}

// Wrap attaches a default logger to an existing context.Context.
func Wrap(ctx context.Context) Context {
	if c, ok := ctx.(Context); ok {
		return c
	}
	return Context{Context: ctx, logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

// Background returns a root Context logging to stderr.
func Background() Context { return New(nil) }

// Tag returns a derived Context with key=value attached to every
// subsequent log line, mirroring the teacher's Context.Tag/V helpers.
func (c Context) Tag(key, value string) Context {
	c.logger = c.logger.With().Str(key, value).Logger()
	return c
}

// Surface tags the context with the surface identity a fault should be
// stamped with.
func (c Context) Surface(path string) Context { return c.Tag("surface", path) }

// Debug returns a Logger at debug severity.
func (c Context) Debug() Logger { return Logger{c.logger.Debug()} }

// Info returns a Logger at info severity.
func (c Context) Info() Logger { return Logger{c.logger.Info()} }

// Warning returns a Logger at warning severity.
func (c Context) Warning() Logger { return Logger{c.logger.Warn()} }

// Error returns a Logger at error severity.
func (c Context) Error() Logger { return Logger{c.logger.Error()} }

// Fatal returns a Logger at fatal severity. Unlike zerolog's own Fatal
// (which calls os.Exit), this Logger merely logs; callers that mean to
// abort the process do so explicitly via os.Exit after logging.
func (c Context) Fatal() Logger { return Logger{c.logger.WithLevel(zerolog.FatalLevel)} }

// Logger wraps a single in-flight zerolog event.
type Logger struct{ event *zerolog.Event }

// Log writes msg as the event's message.
func (l Logger) Log(msg string) { l.event.Msg(msg) }

// Logf formats and writes the event's message.
func (l Logger) Logf(format string, args ...interface{}) { l.event.Msgf(format, args...) }

// Err attaches an error to the event before it is written by Log/Logf.
func (l Logger) Err(err error) Logger {
	l.event = l.event.Err(err)
	return l
}
