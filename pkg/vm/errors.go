package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// Kind is one of the error taxonomy entries from spec §7.
type Kind string

const (
	TypeError          Kind = "TypeError"
	NameError          Kind = "NameError"
	AttributeError     Kind = "AttributeError"
	IndexError         Kind = "IndexError"
	ValueError         Kind = "ValueError"
	SerializationError Kind = "SerializationError"
	InternalError      Kind = "InternalError"
)

// StackFrame snapshots one call-stack entry for display, grounded on the
// teacher's RuntimeError stack trace format.
type StackFrame struct {
	Name string
	PC   int
}

// RuntimeError is the string-carrying exception-equivalent described in
// §7: a Kind, a message, and the frame chain active when it was raised.
type RuntimeError struct {
	Kind  Kind
	Msg   string
	Stack []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Msg)
	for i := len(e.Stack) - 1; i >= 0; i-- {
		f := e.Stack[i]
		fmt.Fprintf(&b, "\n  at %s [pc %d]", f.Name, f.PC)
	}
	return b.String()
}

func newError(kind Kind, frame *object.Frame, format string, args ...interface{}) error {
	return &RuntimeError{
		Kind:  kind,
		Msg:   fmt.Sprintf(format, args...),
		Stack: trace(frame),
	}
}

// isRuntimeError reports whether err already carries a Kind/Stack, whether
// directly or wrapped via github.com/pkg/errors, so callers don't
// double-wrap a value operation's error into another TypeError.
func isRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

func trace(frame *object.Frame) []StackFrame {
	var out []StackFrame
	for f := frame; f != nil; f = f.Caller {
		name := "<module>"
		if f.Code != nil && f.Code.Name != "" {
			name = f.Code.Name
		}
		out = append(out, StackFrame{Name: name, PC: f.PC})
	}
	return out
}
