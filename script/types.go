package script

import "github.com/jonwraymond/scriptexec/assets"

// DefaultScriptName labels units that were not loaded from a file.
const DefaultScriptName = "Script"

// Script is a unit of source text handed to an Engine.
type Script struct {
	// Name identifies the unit in diagnostics, typically a file path.
	Name string `json:"name,omitempty"`

	// Code is the source text to execute.
	Code string `json:"code"`
}

// Globals is the fixed set of bindings injected into every executed unit.
// It is built once per call and never persisted by the Manager.
type Globals struct {
	// Assets is the host's asset manager.
	Assets *assets.Manager

	// Logger is the host's logger.
	Logger Logger

	// Console forwards script output to Logger.
	Console *Console
}

// Result is the normalized outcome of a Manager operation.
//
// Success and Error are mutually exclusive: a successful result carries a
// Message and possibly a ReturnValue, a failed one carries only Error.
type Result struct {
	// Success reports whether the unit compiled and ran to completion.
	Success bool `json:"success"`

	// Message is a fixed confirmation text on success.
	Message string `json:"message,omitempty"`

	// Error describes the failure.
	Error string `json:"error,omitempty"`

	// ReturnValue is the unit's final value, if it produced one.
	ReturnValue any `json:"returnValue,omitempty"`

	// Err is the classified failure for errors.Is/errors.As checks.
	Err error `json:"-"`
}

// OK reports whether the result is successful.
func (r Result) OK() bool {
	return r.Success && r.Err == nil
}

func succeeded(message string, value any) Result {
	return Result{Success: true, Message: message, ReturnValue: value}
}

func failed(err error, text string) Result {
	return Result{Success: false, Error: text, Err: err}
}
