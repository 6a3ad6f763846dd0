package script

import "context"

// State is the opaque evaluation context an Engine accumulates across units:
// bound variables, declared types and functions. Only the Engine that
// produced a State may consume it.
type State any

// Engine compiles and executes source text. Implementations wrap a concrete
// interpreter and are responsible for exposing the standard-library
// namespaces of their language, the assets namespace, and the Globals.
//
// Contract:
// - Concurrency: a State must not be used by two calls at once; the Manager
// serializes its own calls.
// - Context: implementations should honor cancellation where the interpreter
// allows it and return an error wrapping ctx.Err().
// - Errors: compilation failures return *CompileError; everything else that
// happens while the unit runs returns *RuntimeError.
// - Ownership: on error the returned State is nil and the input State must
// still be usable for later continuations.
type Engine interface {
	// Language returns the canonical language name (e.g. "go", "lua").
	Language() string

	// Run executes s in a brand-new evaluation context seeded with globals.
	// It returns the resulting context and the unit's final value, if any.
	Run(ctx context.Context, s Script, globals Globals) (State, any, error)

	// Continue executes s against an existing context produced by Run or a
	// previous Continue.
	Continue(ctx context.Context, state State, s Script) (State, any, error)
}
