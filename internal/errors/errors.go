// Package errors defines the coded error type shared by the record store.
//
// Every failure the engine reports carries an ErrorCode so callers can
// branch on the kind of failure without matching message text. Filesystem
// errors are wrapped with CodeIO and stay reachable through errors.Is and
// errors.As on the standard library side.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// ErrorCode defines specific error kinds for the record store.
type ErrorCode string

const (
	// CodeNotFound is returned when a file, directory or entry is absent.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeAlreadyExists is returned when a non idempotent creation hits an existing entry.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// CodeTooManyValues is returned when a row has more values than the schema allows.
	CodeTooManyValues ErrorCode = "TOO_MANY_VALUES"
	// CodeRowNotFound is returned when a positional identifier does not exist.
	CodeRowNotFound ErrorCode = "ROW_NOT_FOUND"
	// CodeColumnNotFound is returned when a column is absent from the schema.
	CodeColumnNotFound ErrorCode = "COLUMN_NOT_FOUND"
	// CodeInvalidColumn is returned for the reserved identifier column or an empty name.
	CodeInvalidColumn ErrorCode = "INVALID_COLUMN"
	// CodeInvalidExpression is returned when a predicate expression does not parse.
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	// CodeInvalidName is returned when a file or directory name is not a plain name.
	CodeInvalidName ErrorCode = "INVALID_NAME"
	// CodeDirectoryNotEmpty is returned when removing a directory that has entries.
	CodeDirectoryNotEmpty ErrorCode = "DIRECTORY_NOT_EMPTY"
	// CodeMalformed is returned when a relation file cannot be decoded.
	CodeMalformed ErrorCode = "MALFORMED"
	// CodeIO is returned when the underlying filesystem fails.
	CodeIO ErrorCode = "IO_ERROR"
	// CodeEmptyResult is reported by front ends when a query matched nothing.
	CodeEmptyResult ErrorCode = "EMPTY_RESULT"
	// CodeInvalidConfig is returned when configuration values are invalid.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error is a concrete error type with a code, a message and optional details.
type Error struct {
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithDetails adds details to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, errors.New(CodeRowNotFound, "")) matches any row lookup failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

// ExitCode maps the error code to a process exit status.
func (e *Error) ExitCode() int {
	switch e.code {
	case CodeEmptyResult:
		return 3
	case CodeNotFound, CodeRowNotFound, CodeColumnNotFound:
		return 4
	case CodeInvalidColumn, CodeInvalidExpression, CodeInvalidName, CodeTooManyValues, CodeInvalidConfig:
		return 2
	default:
		return 1
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode returns the exit status for err; 0 for nil and 1 for uncoded errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.ExitCode()
	}
	return 1
}

// Predefined error constructors for common cases

// NotFound creates a NOT_FOUND error for the named resource.
func NotFound(resource string) *Error {
	return Newf(CodeNotFound, "%s not found", resource).WithDetail("resource", resource)
}

// AlreadyExists creates an ALREADY_EXISTS error for the named resource.
func AlreadyExists(resource string) *Error {
	return Newf(CodeAlreadyExists, "%s already exists", resource).WithDetail("resource", resource)
}

// TooManyValues reports a row insertion wider than the schema allows.
func TooManyValues(width, got int) *Error {
	return Newf(CodeTooManyValues, "too many values when adding a row: expected fewer than %d, got %d", width, got).
		WithDetail("expected", width).
		WithDetail("got", got)
}

// RowNotFound reports a positional identifier that does not exist.
func RowNotFound(pos int) *Error {
	return Newf(CodeRowNotFound, "row %d not found", pos).WithDetail("position", pos)
}

// ColumnNotFound reports a column that is absent from the schema.
func ColumnNotFound(name string) *Error {
	return Newf(CodeColumnNotFound, "column %q not found", name).WithDetail("column", name)
}

// InvalidColumn reports an operation on a column name that cannot be used.
func InvalidColumn(name, reason string) *Error {
	return Newf(CodeInvalidColumn, "invalid column %q: %s", name, reason).WithDetail("column", name)
}

// InvalidExpression wraps a predicate parse failure.
func InvalidExpression(expr string, err error) *Error {
	return Newf(CodeInvalidExpression, "invalid expression %q", expr).WithDetail("expression", expr).Wrap(err)
}

// InvalidName reports a file or directory name that is not a single path element.
func InvalidName(name string) *Error {
	return Newf(CodeInvalidName, "invalid name %q", name).WithDetail("name", name)
}

// Malformed reports a relation file that cannot be decoded.
func Malformed(path, reason string) *Error {
	return Newf(CodeMalformed, "malformed relation file %s: %s", path, reason).WithDetail("path", path)
}

// IO wraps a filesystem failure.
func IO(op string, err error) *Error {
	return New(CodeIO, op).Wrap(err)
}

// EmptyResult reports that a query, search, delete or update matched no rows.
func EmptyResult() *Error {
	return New(CodeEmptyResult, "no rows matched")
}
