// Package yaegiengine provides a script.Engine that interprets Go source
// with traefik/yaegi.
//
// Every fresh run gets its own interpreter with a fixed set of
// standard-library packages and the assets package already imported, and
// with the globals bound as package-level variables Assets, Logger and
// Console. AssetsManager is an alias of Assets. Continuations evaluate
// further source in the same interpreter, so declarations from earlier units
// stay visible.
package yaegiengine

import (
	"context"
	"errors"
	"fmt"
	"go/scanner"
	"path"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"

	"github.com/jonwraymond/scriptexec/script"
)

// Language is the canonical language name served by this engine.
const Language = "go"

// ErrForeignState is returned when Continue receives a state this engine did
// not produce.
var ErrForeignState = errors.New("yaegiengine: state was not produced by this engine")

// Config configures an Engine.
type Config struct {
	// Packages overrides the standard-library packages pre-imported into
	// every interpreter, as yaegi symbol keys ("strings/strings").
	// If empty, a default set is used.
	Packages []string
}

// Engine implements script.Engine on yaegi.
type Engine struct {
	packages []string
}

// New creates an Engine.
func New(cfg Config) *Engine {
	pkgs := cfg.Packages
	if len(pkgs) == 0 {
		pkgs = stdlibPackages
	}
	return &Engine{packages: append([]string(nil), pkgs...)}
}

// session is the script.State produced by this engine.
type session struct {
	interp *interp.Interpreter
	stdout *lineWriter
	stderr *lineWriter
}

// Language implements script.Engine.
func (e *Engine) Language() string {
	return Language
}

// Run implements script.Engine.
func (e *Engine) Run(ctx context.Context, s script.Script, globals script.Globals) (script.State, any, error) {
	sess, err := e.newSession(ctx, &globals)
	if err != nil {
		return nil, nil, err
	}
	value, err := sess.eval(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

// Continue implements script.Engine.
func (e *Engine) Continue(ctx context.Context, state script.State, s script.Script) (script.State, any, error) {
	sess, ok := state.(*session)
	if !ok || sess == nil || sess.interp == nil {
		return nil, nil, ErrForeignState
	}
	value, err := sess.eval(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return sess, value, nil
}

func (e *Engine) newSession(ctx context.Context, g *script.Globals) (*session, error) {
	logger := g.Logger
	if logger == nil {
		logger = script.NopLogger()
	}
	console := g.Console
	if console == nil {
		console = script.NewConsole(logger)
	}

	sess := &session{
		stdout: newLineWriter(func(line string) { console.WriteLine(line) }),
		stderr: newLineWriter(func(line string) { logger.Warn(line) }),
	}
	sess.interp = interp.New(interp.Options{
		Stdout: sess.stdout,
		Stderr: sess.stderr,
	})

	exports := stdlibExports()
	for k, v := range assetsExports {
		exports[k] = v
	}
	for k, v := range scriptExports {
		exports[k] = v
	}
	for k, v := range hostExports(g) {
		exports[k] = v
	}
	if err := sess.interp.Use(exports); err != nil {
		return nil, fmt.Errorf("yaegiengine: register symbols: %w", err)
	}

	if _, err := sess.interp.EvalWithContext(ctx, e.prelude()); err != nil {
		return nil, script.NewRuntimeError(fmt.Errorf("yaegiengine: prelude: %w", err))
	}
	return sess, nil
}

// prelude imports the fixed packages and binds the globals.
func (e *Engine) prelude() string {
	var b strings.Builder
	b.WriteString("import (\n")
	for _, key := range e.packages {
		fmt.Fprintf(&b, "\t%q\n", path.Dir(key))
	}
	fmt.Fprintf(&b, "\t%q\n", AssetsImportPath)
	fmt.Fprintf(&b, "\t%q\n", "github.com/jonwraymond/scriptexec/script")
	fmt.Fprintf(&b, "\thost %q\n", hostImportPath)
	b.WriteString(")\n\n")
	b.WriteString("var (\n\tAssets = host.Assets\n\tAssetsManager = host.Assets\n\tLogger = host.Logger\n\tConsole = host.Console\n)\n")
	return b.String()
}

func (s *session) eval(ctx context.Context, unit script.Script) (any, error) {
	defer s.stdout.Flush()
	defer s.stderr.Flush()

	res, err := s.interp.EvalWithContext(ctx, unit.Code)
	if err != nil {
		return nil, classify(unit.Name, err)
	}
	return export(res), nil
}

// classify maps yaegi errors onto script errors: scanner lists are parse
// diagnostics, recovered panics and cancellations are runtime failures, and
// anything else was rejected by the type checker.
func classify(name string, err error) error {
	var list scanner.ErrorList
	if errors.As(err, &list) {
		diags := make([]string, 0, len(list))
		for _, e := range list {
			diags = append(diags, fmt.Sprintf("%s:%d:%d: %s", name, e.Pos.Line, e.Pos.Column, e.Msg))
		}
		return script.NewCompileError(err, diags...)
	}

	var p interp.Panic
	if errors.As(err, &p) {
		return &script.RuntimeError{Message: fmt.Sprint(p.Value), Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &script.RuntimeError{Message: err.Error(), Err: err}
	}
	return script.NewCompileError(err, fmt.Sprintf("%s:%s", name, err.Error()))
}

func export(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
