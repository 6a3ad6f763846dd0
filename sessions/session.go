package sessions

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/scriptexec/script"
)

const tracerName = "github.com/jonwraymond/scriptexec/sessions"

// Session is one script.Manager with its own lock.
type Session struct {
	id      string
	created time.Time

	mu     sync.Mutex
	mgr    *script.Manager
	tracer trace.Tracer

	closed atomic.Bool
	touch  func()
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Created returns when the session was created.
func (s *Session) Created() time.Time { return s.created }

// Language returns the language of the session's engine.
func (s *Session) Language() string { return s.mgr.Language() }

// Closed reports whether the session was evicted or deleted.
func (s *Session) Closed() bool { return s.closed.Load() }

// HasState reports whether a continuation would find a prior context.
func (s *Session) HasState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.HasSession()
}

// RunFresh runs code in a new evaluation context.
func (s *Session) RunFresh(ctx context.Context, code string) script.Result {
	return s.do(ctx, "run", func(ctx context.Context) script.Result {
		return s.mgr.RunFresh(ctx, code)
	})
}

// RunFromFile runs the script at path in a new evaluation context.
func (s *Session) RunFromFile(ctx context.Context, path string) script.Result {
	return s.do(ctx, "run_file", func(ctx context.Context) script.Result {
		return s.mgr.RunFromFile(ctx, path)
	}, attribute.String("script.path", path))
}

// Continue runs code against the current evaluation context.
func (s *Session) Continue(ctx context.Context, code string) script.Result {
	return s.do(ctx, "continue", func(ctx context.Context) script.Result {
		return s.mgr.Continue(ctx, code)
	})
}

// Reset discards the evaluation context.
func (s *Session) Reset(ctx context.Context) {
	s.do(ctx, "reset", func(context.Context) script.Result {
		s.mgr.Reset()
		return script.Result{Success: true}
	})
}

func (s *Session) do(ctx context.Context, op string, fn func(context.Context) script.Result, attrs ...attribute.KeyValue) script.Result {
	ctx, span := s.tracer.Start(ctx, "script."+op,
		trace.WithAttributes(append(attrs,
			attribute.String("session.id", s.id),
			attribute.String("script.language", s.mgr.Language()),
		)...),
	)
	defer span.End()

	if s.closed.Load() {
		res := script.Result{Error: "Session closed: " + s.id, Err: ErrSessionClosed}
		span.SetStatus(codes.Error, res.Error)
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touch != nil {
		s.touch()
	}

	res := fn(ctx)
	span.SetAttributes(attribute.Bool("script.success", res.Success))
	if !res.Success {
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}
