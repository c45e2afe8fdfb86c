package cif

import (
	"fmt"
)

// ErrorKind categorizes an Error.
type ErrorKind string

const (
	ErrorKindLex        ErrorKind = "lex"        // unterminated string or text field, bad character
	ErrorKindStructural ErrorKind = "structural" // token out of place, malformed loop, duplicate name
	ErrorKindAccess     ErrorKind = "access"     // positional lookup out of range
)

// Sentinel errors for use with errors.Is.
var (
	ErrLex        = &Error{Kind: ErrorKindLex}
	ErrStructural = &Error{Kind: ErrorKindStructural}
	ErrAccess     = &Error{Kind: ErrorKindAccess}
)

// Position specifies the source location of a token.
// Line and Column are 1-based; Offset is the byte offset into the input.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

// String returns the position as "file:line:column", or "line:column" without a file.
func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position carries line information.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Error is returned by the lexer, the parser and the positional accessors
// of the document model.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     Position
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Is reports whether target is an *Error of the same kind. This lets callers
// match on the sentinels without caring about message or position.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func lexErrorf(pos Position, format string, args ...any) *Error {
	return &Error{Kind: ErrorKindLex, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func structuralErrorf(pos Position, format string, args ...any) *Error {
	return &Error{Kind: ErrorKindStructural, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func accessErrorf(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindAccess, Message: fmt.Sprintf(format, args...)}
}
