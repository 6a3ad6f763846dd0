package script

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// recordingLogger captures log entries for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) infos() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == "info" {
			out = append(out, e.msg)
		}
	}
	return out
}

// fakeState is an immutable binding map; every successful unit produces a
// new one so failed continuations leave the previous state intact.
type fakeState struct {
	vars    map[string]any
	globals Globals
}

// fakeEngine interprets a tiny line-oriented language:
//
//	set NAME VALUE   bind NAME (integers are parsed)
//	get NAME         final value is NAME's binding
//	print TEXT       Console.WriteLine(TEXT)
//	fail TEXT        runtime failure
//	block            waits for ctx cancellation
//	anything else    compile failure
type fakeEngine struct {
	runCalls      int
	continueCalls int
	panicOnRun    bool
}

func (e *fakeEngine) Language() string { return "fake" }

func (e *fakeEngine) Run(ctx context.Context, s Script, globals Globals) (State, any, error) {
	e.runCalls++
	if e.panicOnRun {
		panic("engine exploded")
	}
	return e.exec(ctx, &fakeState{vars: map[string]any{}, globals: globals}, s)
}

func (e *fakeEngine) Continue(ctx context.Context, state State, s Script) (State, any, error) {
	e.continueCalls++
	st, ok := state.(*fakeState)
	if !ok {
		return nil, nil, errors.New("foreign state")
	}
	return e.exec(ctx, st, s)
}

func (e *fakeEngine) exec(ctx context.Context, st *fakeState, s Script) (State, any, error) {
	next := &fakeState{vars: make(map[string]any, len(st.vars)), globals: st.globals}
	for k, v := range st.vars {
		next.vars[k] = v
	}

	var diags []string
	lines := strings.Split(strings.TrimSpace(s.Code), "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "set", "get", "print", "fail", "block":
		default:
			diags = append(diags, fmt.Sprintf("%s(%d): unknown statement %q", s.Name, i+1, fields[0]))
		}
	}
	if len(diags) > 0 {
		return nil, nil, NewCompileError(nil, diags...)
	}

	var value any
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		switch fields[0] {
		case "set":
			if len(fields) < 3 {
				return nil, nil, NewRuntimeError(errors.New("set needs a name and a value"))
			}
			var v any = fields[2]
			if n, err := strconv.Atoi(fields[2]); err == nil {
				v = n
			}
			next.vars[fields[1]] = v
			value = nil
		case "get":
			v, ok := next.vars[rest]
			if !ok {
				return nil, nil, NewRuntimeError(fmt.Errorf("undefined: %s", rest))
			}
			value = v
		case "print":
			next.globals.Console.WriteLine(rest)
		case "fail":
			return nil, nil, NewRuntimeError(errors.New(rest))
		case "block":
			<-ctx.Done()
			return nil, nil, ctx.Err()
		}
	}
	return next, value, nil
}

func newTestManager(engine Engine, logger Logger) *Manager {
	m, err := NewManager(Config{Engine: engine, Logger: logger})
	if err != nil {
		panic(err)
	}
	return m
}
