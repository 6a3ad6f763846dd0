// Package gojaengine provides a script.Engine for JavaScript (ECMAScript 5.1
// with most of ES6) on dop251/goja.
//
// Every fresh run gets its own goja.Runtime with the globals Assets, Logger
// and Console bound as Go values, so scripts call their Go methods directly
// (Console.WriteLine("x")). AssetsManager is an alias of Assets. A console
// object with log/info/warn/error is also provided, and the assets namespace
// is reachable as assets.NewManager().
//
// The value of a unit is its completion value. Continuations run further
// programs in the same runtime; top-level var, let and function declarations
// from earlier units stay visible. Cancelling the context interrupts the VM.
package gojaengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/script"
)

// Language is the canonical language name served by this engine.
const Language = "javascript"

// ErrForeignState is returned when Continue receives a state this engine did
// not produce.
var ErrForeignState = errors.New("gojaengine: state was not produced by this engine")

// Engine implements script.Engine on goja.
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
	vm *goja.Runtime
}

// Run implements script.Engine.
func (e *Engine) Run(ctx context.Context, s script.Script, globals script.Globals) (script.State, any, error) {
	vm, err := newRuntime(globals)
	if err != nil {
		return nil, nil, err
	}
	sess := &session{vm: vm}
	value, err := sess.exec(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

// Continue implements script.Engine.
func (e *Engine) Continue(ctx context.Context, state script.State, s script.Script) (script.State, any, error) {
	sess, ok := state.(*session)
	if !ok || sess == nil || sess.vm == nil {
		return nil, nil, ErrForeignState
	}
	value, err := sess.exec(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

func newRuntime(g script.Globals) (*goja.Runtime, error) {
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

	vm := goja.New()
	bindings := []struct {
		name  string
		value any
	}{
		{"Assets", am},
		{"AssetsManager", am},
		{"Logger", logger},
		{"Console", console},
		{"assets", map[string]any{"NewManager": assets.NewManager}},
		{"console", consoleObject(vm, console, logger)},
	}
	for _, b := range bindings {
		if err := vm.Set(b.name, b.value); err != nil {
			return nil, fmt.Errorf("gojaengine: bind %s: %w", b.name, err)
		}
	}
	return vm, nil
}

// consoleObject builds the familiar console.log family on top of the sink.
func consoleObject(vm *goja.Runtime, console *script.Console, logger script.Logger) *goja.Object {
	join := func(call goja.FunctionCall) string {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, script.Render(exportValue(arg)))
		}
		return strings.Join(parts, " ")
	}

	obj := vm.NewObject()
	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		console.WriteLine(join(call))
		return goja.Undefined()
	})
	_ = obj.Set("info", func(call goja.FunctionCall) goja.Value {
		console.WriteLine(join(call))
		return goja.Undefined()
	})
	_ = obj.Set("warn", func(call goja.FunctionCall) goja.Value {
		logger.Warn(join(call))
		return goja.Undefined()
	})
	_ = obj.Set("error", func(call goja.FunctionCall) goja.Value {
		logger.Error(join(call))
		return goja.Undefined()
	})
	return obj
}

func (s *session) exec(ctx context.Context, unit script.Script) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &script.RuntimeError{Message: err.Error(), Err: err}
	}

	prog, err := goja.Compile(unit.Name, unit.Code, false)
	if err != nil {
		return nil, script.NewCompileError(err, err.Error())
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			s.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	value, err := s.vm.RunProgram(prog)
	close(done)
	<-stopped
	// The watcher has exited, so no interrupt can leak into the next unit.
	s.vm.ClearInterrupt()
	if err != nil {
		return nil, classify(err)
	}
	return exportValue(value), nil
}

// classify maps goja failures onto runtime errors. Early errors that goja
// reports while running (for example redeclared let bindings) are still
// runtime failures because the program was already accepted by Compile.
func classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return &script.RuntimeError{Message: cause.Error(), Err: cause}
		}
		return &script.RuntimeError{Message: interrupted.Error(), Err: err}
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &script.RuntimeError{Message: exception.Error(), Err: err}
	}
	return script.NewRuntimeError(err)
}

// exportValue converts a goja value to plain Go. undefined and null become
// nil and integers become int.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch n := v.Export().(type) {
	case int64:
		return int(n)
	default:
		return n
	}
}
