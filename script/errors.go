package script

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for error classification.
var (
	// ErrNotFound indicates that a requested script file does not exist.
	ErrNotFound = errors.New("script not found")

	// ErrCompilation indicates that source text failed to parse or compile.
	ErrCompilation = errors.New("compilation error")

	// ErrRuntime indicates a failure while the unit was executing, including
	// failures raised by the script itself.
	ErrRuntime = errors.New("runtime error")

	// ErrNoSession indicates a continuation was requested with no prior
	// successful run.
	ErrNoSession = errors.New("no previous session")

	// ErrConfiguration indicates an invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrLimitExceeded indicates the execution deadline was reached.
	ErrLimitExceeded = errors.New("limit exceeded")
)

// CompileError reports that an Engine rejected source text before running it.
type CompileError struct {
	// Diagnostics holds one entry per problem reported by the engine.
	Diagnostics []string

	// Err is the underlying engine error, if any.
	Err error
}

// Error joins the diagnostics with newlines.
func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 && e.Err != nil {
		return e.Err.Error()
	}
	return strings.Join(e.Diagnostics, "\n")
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCompilation.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompilation
}

// RuntimeError reports a failure that happened while a unit was executing.
type RuntimeError struct {
	// Message describes the failure.
	Message string

	// Err is the underlying engine error, if any.
	Err error
}

// Error returns the failure description.
func (e *RuntimeError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRuntime.
func (e *RuntimeError) Is(target error) bool {
	return target == ErrRuntime
}

// NewCompileError builds a CompileError from diagnostics, dropping blanks.
func NewCompileError(err error, diagnostics ...string) *CompileError {
	out := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return &CompileError{Diagnostics: out, Err: err}
}

// NewRuntimeError builds a RuntimeError around err.
func NewRuntimeError(err error) *RuntimeError {
	if err == nil {
		return &RuntimeError{Message: "unknown failure"}
	}
	return &RuntimeError{Message: err.Error(), Err: err}
}

// describe renders the user-facing error text for a failed engine call.
func describe(err error) (error, string) {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return compileErr, fmt.Sprintf("Compilation error: %s", compileErr.Error())
	}
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr, fmt.Sprintf("Runtime error: %s", runtimeErr.Error())
	}
	wrapped := &RuntimeError{Message: err.Error(), Err: err}
	return wrapped, fmt.Sprintf("Runtime error: %s", wrapped.Error())
}
