// Package ixerr defines the structured error taxonomy shared by the byte
// cache, the persistent map, the derivation engine, the pipeline runner and
// the metadata probe. Every boundary crossing in those packages returns one
// of the variants below, wrapped with github.com/pkg/errors so that a chain
// of decorators can be unwound and logged outermost-first.
package ixerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// maxContextBytes bounds how much of a command's input/stdout/stderr is
// retained by the With* decorators.
const maxContextBytes = 1000

// Kind classifies the root cause of an Error.
type Kind int

const (
	// KindIO is an underlying OS I/O failure.
	KindIO Kind = iota
	// KindCaller is a programmer-visible invariant violation (bad regex,
	// unknown conversion, malformed tool output).
	KindCaller
	// KindCommand is an external command that exited non-zero.
	KindCommand
	// KindOther is a catch-all for converted exceptions.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCaller:
		return "caller"
	case KindCommand:
		return "command"
	default:
		return "other"
	}
}

// Error is the root of the taxonomy. Cmd/Exit are only populated for
// KindCommand.
type Error struct {
	Kind    Kind
	Message string
	Cmd     string // cmd_repr, KindCommand only
	Exit    string // exit_repr, KindCommand only
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCommand:
		return fmt.Sprintf("command %s: %s", e.Cmd, e.Exit)
	default:
		return e.Message
	}
}

// IO builds an Io(message) error wrapping cause.
func IO(cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return errors.Wrap(&Error{Kind: KindIO, Message: msg}, cause.Error())
}

// Caller builds a Caller(message) error: a programmer-visible invariant
// violation. It is never retried and never wrapped around a lower-level
// cause.
func Caller(format string, args ...interface{}) error {
	return &Error{Kind: KindCaller, Message: fmt.Sprintf(format, args...)}
}

// Command builds a Command(cmd_repr, exit_repr) error for a non-zero exit.
func Command(cmdRepr, exitRepr string) error {
	return &Error{Kind: KindCommand, Cmd: cmdRepr, Exit: exitRepr, Message: fmt.Sprintf("command %s: %s", cmdRepr, exitRepr)}
}

// Other converts an arbitrary error into the taxonomy's catch-all variant,
// preserving its message.
func Other(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: KindOther, Message: err.Error()}
}

func capBytes(b []byte) string {
	if len(b) > maxContextBytes {
		b = b[:maxContextBytes]
	}
	return string(b)
}

// WithInput decorates inner with up to 1000 bytes of the input that was fed
// to the failing stage.
func WithInput(input []byte, inner error) error {
	return errors.Wrap(inner, "input: "+capBytes(input))
}

// WithStdout decorates inner with up to 1000 bytes of the stage's stdout.
func WithStdout(stdout []byte, inner error) error {
	return errors.Wrap(inner, "stdout: "+capBytes(stdout))
}

// WithStderr decorates inner with up to 1000 bytes of the stage's stderr.
func WithStderr(stderr []byte, inner error) error {
	return errors.Wrap(inner, "stderr: "+capBytes(stderr))
}

// InFunction decorates inner with the name of the function in which the
// error crossed a boundary.
func InFunction(name string, inner error) error {
	return errors.WithMessage(inner, "in "+name)
}

// Described decorates inner with free-form call-site context.
func Described(text string, inner error) error {
	return errors.WithMessage(inner, text)
}

// Chain renders err's full decorator chain, one layer per line, outermost
// first, suitable for a single log.Printf call.
func Chain(err error) string {
	if err == nil {
		return ""
	}
	var lines []string
	for err != nil {
		type causer interface {
			Cause() error
		}
		lines = append(lines, topMessage(err))
		c, ok := err.(causer)
		if !ok {
			break
		}
		next := c.Cause()
		if next == err || next == nil {
			break
		}
		err = next
	}
	return strings.Join(lines, "\n")
}

func topMessage(err error) string {
	type causer interface {
		Cause() error
	}
	if c, ok := err.(causer); ok {
		full := err.Error()
		inner := c.Cause()
		if inner != nil {
			full = strings.TrimSuffix(full, ": "+inner.Error())
		}
		return full
	}
	return err.Error()
}

// As reports whether err's chain contains an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		type causer interface {
			Cause() error
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		next := c.Cause()
		if next == err || next == nil {
			return nil, false
		}
		err = next
	}
	return nil, false
}

// Is reports whether err's chain bottoms out in an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
