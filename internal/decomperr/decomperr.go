// Package decomperr is the error taxonomy described in spec.md §7: each
// failure mode that can arise while reading a container or lifting an
// irep is tagged with a Kind so the CLI driver can tell fatal failures
// from the soft, inline diagnostics the lifter emits and keeps going past.
package decomperr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a decompile error (§7 taxonomy).
type Kind string

const (
	// MalformedContainer: invalid magic, length mismatch, truncated
	// section — fatal, abort decode of this file.
	MalformedContainer Kind = "malformed container"
	// UnknownOpcode: an opcode byte outside [0, opcode.Max] — fatal
	// unless the caller has explicitly opted into tolerating it.
	UnknownOpcode Kind = "unknown opcode"
	// UnexpectedJump: an out-of-range/unreachable jump — soft by
	// default; the lifter emits an inline diagnostic and continues.
	UnexpectedJump Kind = "unexpected jump"
	// MissingUpvalue: GETUPVAR/SETUPVAR found no enclosing scope
	// binding the register — fatal, indicates corrupt debug info or a
	// lifter bug.
	MissingUpvalue Kind = "missing upvalue"
	// RegisterOutOfRange: an instruction addressed a register slot
	// outside the irep's allocated R+1 registers — fatal, the container
	// is corrupt or was truncated.
	RegisterOutOfRange Kind = "register out of range"
	// IndexOutOfRange: an instruction indexed a symbol or literal pool
	// entry past its table's length — fatal, same cause as
	// RegisterOutOfRange. (A bad child-irep index is reported as
	// MalformedContainer.)
	IndexOutOfRange Kind = "index out of range"
)

// Offset locates a failure within a file: a byte offset into the
// container, or an instruction index within an irep, whichever applies.
// Binary containers carry no line/column, so this stands in for the
// teacher's SourceLocation.
type Offset struct {
	File        string
	ByteOffset  int
	IrepIndex   int
	Instruction int
}

func (o Offset) String() string {
	switch {
	case o.ByteOffset > 0:
		return fmt.Sprintf("%s (byte offset %d)", o.File, o.ByteOffset)
	case o.Instruction > 0 || o.IrepIndex > 0:
		return fmt.Sprintf("%s (irep %d, instruction %d)", o.File, o.IrepIndex, o.Instruction)
	default:
		return o.File
	}
}

// DecompileError is the single typed error the core surfaces for a failed
// file (§7 "the core itself surfaces failures as a single typed error with
// a human-readable message").
type DecompileError struct {
	Kind     Kind
	Message  string
	At       Offset
	Fatal    bool
	cause    error
}

func (e *DecompileError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.At.File != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.At.String())
	}
	return sb.String()
}

func (e *DecompileError) Unwrap() error { return e.cause }

// New builds a fatal DecompileError.
func New(kind Kind, at Offset, format string, args ...any) *DecompileError {
	return &DecompileError{Kind: kind, Message: fmt.Sprintf(format, args...), At: at, Fatal: true}
}

// Soft builds a non-fatal DecompileError — the UnexpectedJump family the
// lifter turns into an inline raise-stub rather than aborting the file.
func Soft(kind Kind, at Offset, format string, args ...any) *DecompileError {
	return &DecompileError{Kind: kind, Message: fmt.Sprintf(format, args...), At: at, Fatal: false}
}

// Wrap attaches a DecompileError's context to a lower-level cause (e.g. an
// io.Reader failure while pulling a section), preserving it via
// github.com/pkg/errors so %+v formatting still prints a stack trace from
// the original failure site.
func Wrap(cause error, kind Kind, at Offset, message string) *DecompileError {
	return &DecompileError{
		Kind:    kind,
		Message: message,
		At:      at,
		Fatal:   true,
		cause:   errors.WithStack(cause),
	}
}

// RaiseStub renders the pass-through diagnostic text (§7) that the lifter
// pushes into the expression stream in place of a raise() call when it hits
// a soft UnexpectedJump — "ERROR: unexpected JMP ..." — the line comments
// carrying the skipped opcodes are pushed separately by the caller.
func RaiseStub(reason string) string {
	return fmt.Sprintf("ERROR: %s", reason)
}
