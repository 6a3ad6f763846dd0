package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Confirmation and failure texts reported in Result.
const (
	MessageExecuted  = "Script executed successfully"
	MessageContinued = "Script continued successfully"
	MessageNoSession = "No previous script state to continue from"
)

// Manager runs units of source text against a persistent evaluation context.
//
// Contract:
// - Concurrency: not safe for concurrent use; callers serialize all calls.
// - Context: deadlines and cancellation are forwarded to the Engine.
// - Errors: never returned; every failure is reported through Result.
// - Ownership: the Assets and Logger in Config are owned by the caller and
// never mutated by the Manager.
type Manager struct {
	cfg   Config
	state State
	has   bool
}

// NewManager creates a Manager with the given configuration.
// Returns ErrConfiguration if any required field is missing.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Manager{cfg: cfg}, nil
}

// Language returns the language of the underlying engine.
func (m *Manager) Language() string {
	return m.cfg.Engine.Language()
}

// HasSession reports whether a previous successful run left a context to
// continue from.
func (m *Manager) HasSession() bool {
	return m.has
}

// RunFresh executes code in a new evaluation context, ignoring any existing
// session. On success the new context becomes the session.
func (m *Manager) RunFresh(ctx context.Context, code string) Result {
	return m.runFresh(ctx, Script{Name: DefaultScriptName, Code: code})
}

// RunFromFile reads the file at path and executes it like RunFresh. A missing
// path is reported without invoking the engine.
func (m *Manager) RunFromFile(ctx context.Context, path string) Result {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return failed(fmt.Errorf("%w: %s", ErrNotFound, path),
			fmt.Sprintf("Script file not found: %s", path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failed(err, fmt.Sprintf("Error executing script: %v", err))
	}
	return m.runFresh(ctx, Script{Name: path, Code: string(data)})
}

// Continue executes code against the current session. Without a session it
// fails immediately; on failure the session is left as it was.
func (m *Manager) Continue(ctx context.Context, code string) Result {
	if !m.has {
		return failed(ErrNoSession, MessageNoSession)
	}

	s := Script{Name: DefaultScriptName, Code: code}
	state, value, err := m.call(ctx, "continue", s, func(ctx context.Context) (State, any, error) {
		return m.cfg.Engine.Continue(ctx, m.state, s)
	})
	if err != nil {
		classified, text := describe(err)
		return failed(classified, text)
	}

	m.state = state
	return succeeded(MessageContinued, value)
}

// Reset discards the session. It is safe to call with no session.
func (m *Manager) Reset() {
	m.state = nil
	m.has = false
}

func (m *Manager) runFresh(ctx context.Context, s Script) Result {
	globals := m.globals()
	state, value, err := m.call(ctx, "run", s, func(ctx context.Context) (State, any, error) {
		return m.cfg.Engine.Run(ctx, s, globals)
	})
	if err != nil {
		classified, text := describe(err)
		return failed(classified, text)
	}

	m.state = state
	m.has = true
	return succeeded(MessageExecuted, value)
}

// globals builds the bundle handed to a fresh evaluation context.
func (m *Manager) globals() Globals {
	return Globals{
		Assets:  m.cfg.Assets,
		Logger:  m.cfg.Logger,
		Console: NewConsole(m.cfg.Logger),
	}
}

// call applies the configured deadline, recovers engine panics and logs a
// summary of the engine invocation.
func (m *Manager) call(ctx context.Context, op string, s Script, fn func(context.Context) (State, any, error)) (state State, value any, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.cfg.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.DefaultTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			state, value = nil, nil
			err = &RuntimeError{Message: fmt.Sprintf("engine panic: %v", r)}
		}
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			msg := "deadline exceeded"
			if m.cfg.DefaultTimeout > 0 {
				msg = fmt.Sprintf("timeout after %v", m.cfg.DefaultTimeout)
			}
			err = &RuntimeError{
				Message: msg,
				Err:     fmt.Errorf("%w: %w", ErrLimitExceeded, err),
			}
		}
		m.cfg.Logger.Debug("script call finished",
			"op", op,
			"language", m.cfg.Engine.Language(),
			"name", s.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"ok", err == nil,
		)
	}()

	if err := ctx.Err(); err != nil {
		return nil, nil, &RuntimeError{Message: err.Error(), Err: err}
	}
	return fn(ctx)
}
