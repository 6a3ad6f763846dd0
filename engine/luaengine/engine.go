// Package luaengine provides a script.Engine for Lua 5.2 on Shopify/go-lua.
//
// A fresh run opens a new lua.State with the standard libraries and binds
// the globals Assets, Logger and Console as userdata with method tables, so
// scripts call them with colon syntax:
//
//	Console:WriteLine("loaded " .. Assets:Count() .. " files")
//
// print and io.write go to the Console instead of the process stdout.
//
// The value of a chunk is its first returned value. Continuations load
// further chunks into the same state, where earlier globals stay visible.
//
// go-lua cannot interrupt a running chunk. The context is checked before
// each chunk starts; a chunk that never returns blocks its caller.
package luaengine

import (
	"context"
	"errors"

	"github.com/Shopify/go-lua"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/script"
)

// Language is the canonical language name served by this engine.
const Language = "lua"

// ErrForeignState is returned when Continue receives a state this engine did
// not produce.
var ErrForeignState = errors.New("luaengine: state was not produced by this engine")

// Engine implements script.Engine on go-lua.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// Language implements script.Engine.
func (e *Engine) Language() string {
	return Language
}

type session struct {
	state *lua.State
}

// Run implements script.Engine.
func (e *Engine) Run(ctx context.Context, s script.Script, globals script.Globals) (script.State, any, error) {
	sess := &session{state: newState(globals)}
	value, err := sess.exec(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

// Continue implements script.Engine.
func (e *Engine) Continue(ctx context.Context, state script.State, s script.Script) (script.State, any, error) {
	sess, ok := state.(*session)
	if !ok || sess == nil || sess.state == nil {
		return nil, nil, ErrForeignState
	}
	value, err := sess.exec(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

func newState(g script.Globals) *lua.State {
	logger := g.Logger
	if logger == nil {
		logger = script.NopLogger()
	}
	console := g.Console
	if console == nil {
		console = script.NewConsole(logger)
	}
	am := g.Assets
	if am == nil {
		am = assets.NewManager()
	}

	state := lua.NewState()
	lua.OpenLibraries(state)
	redirectOutput(state, console)
	registerTypes(state)
	registerAssetsNamespace(state)

	pushAssets(state, am)
	state.PushValue(-1)
	state.SetGlobal("Assets")
	state.SetGlobal("AssetsManager")
	state.PushUserData(logger)
	lua.SetMetaTableNamed(state, loggerTypeName)
	state.SetGlobal("Logger")
	state.PushUserData(console)
	lua.SetMetaTableNamed(state, consoleTypeName)
	state.SetGlobal("Console")
	return state
}

// exec loads and calls one chunk, leaving the stack as it found it.
func (s *session) exec(ctx context.Context, unit script.Script) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &script.RuntimeError{Message: err.Error(), Err: err}
	}

	state := s.state
	base := state.Top()
	defer state.SetTop(base)

	if err := lua.LoadBuffer(state, unit.Code, "="+unit.Name, ""); err != nil {
		return nil, script.NewCompileError(err, errorText(state, err))
	}
	if err := state.ProtectedCall(0, lua.MultipleReturns, 0); err != nil {
		return nil, &script.RuntimeError{Message: errorText(state, err), Err: err}
	}
	if state.Top() == base {
		return nil, nil
	}
	return luaToGo(state, base+1), nil
}

// errorText prefers the error object left on the stack by a failed load or
// call.
func errorText(state *lua.State, err error) string {
	if state.Top() > 0 && state.TypeOf(-1) == lua.TypeString {
		if msg, ok := state.ToString(-1); ok && msg != "" {
			return msg
		}
	}
	return err.Error()
}
