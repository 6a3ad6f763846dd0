// Package sessions keeps script sessions keyed by ID so that concurrent
// callers can share the process.
//
// A script.Manager must not be used concurrently. Each Session wraps one
// Manager behind its own mutex, so calls on the same session are serialized
// while different sessions run in parallel. Idle sessions expire after a TTL
// and the least recently used ones are evicted when the store is full.
package sessions

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/scriptexec/script"
)

// Defaults applied by NewStore.
const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 256
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is reported by a Session that was evicted or deleted.
	ErrSessionClosed = errors.New("session closed")
)

// ManagerFactory creates the Manager backing a new session.
type ManagerFactory func() (*script.Manager, error)

// Config configures a Store.
type Config struct {
	// NewManager is required.
	NewManager ManagerFactory

	// TTL is how long an idle session is kept. Defaults to DefaultTTL.
	TTL time.Duration

	// MaxSessions bounds the number of live sessions. Defaults to
	// DefaultMaxSessions.
	MaxSessions int

	// Logger receives lifecycle events. Defaults to a nop logger.
	Logger script.Logger

	// TracerProvider creates the tracer for session spans. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider
}

// Store maps session IDs to Sessions.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Eviction: expired sessions are dropped lazily on access.
type Store struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int
	newManager  ManagerFactory
	logger      script.Logger
	tracer      trace.Tracer

	lru *list.List               // front=MRU
	m   map[string]*list.Element // id -> element(Value=*item)

	now func() time.Time
}

type item struct {
	s        *Session
	lastUsed time.Time
}

// NewStore creates a Store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.NewManager == nil {
		return nil, fmt.Errorf("%w: manager factory is required", script.ErrConfiguration)
	}
	if cfg.TTL < 0 || cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("%w: ttl and max sessions must not be negative", script.ErrConfiguration)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	maxS := cfg.MaxSessions
	if maxS == 0 {
		maxS = DefaultMaxSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = script.NopLogger()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Store{
		ttl:         ttl,
		maxSessions: maxS,
		newManager:  cfg.NewManager,
		logger:      logger,
		tracer:      tp.Tracer(tracerName),
		lru:         list.New(),
		m:           map[string]*list.Element{},
		now:         time.Now,
	}, nil
}

// Create starts a new session with a fresh uuid v7 ID.
func (st *Store) Create() (*Session, error) {
	return st.create(uuid.Must(uuid.NewV7()).String())
}

// GetOrCreate returns the session for id, creating it under that ID when it
// does not exist. An empty id always creates a session with a new ID. The
// boolean reports whether a session was created.
func (st *Store) GetOrCreate(id string) (*Session, bool, error) {
	if id == "" {
		s, err := st.Create()
		return s, err == nil, err
	}
	if s, ok := st.Get(id); ok {
		return s, false, nil
	}
	s, err := st.create(id)
	return s, err == nil, err
}

// Get returns a live session and marks it most recently used.
func (st *Store) Get(id string) (*Session, bool) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e := st.m[id]
	if e == nil {
		return nil, false
	}
	it, _ := e.Value.(*item)
	if it == nil || it.s == nil || it.s.closed.Load() {
		st.deleteElemLocked(e)
		return nil, false
	}

	it.lastUsed = now
	st.lru.MoveToFront(e)
	return it.s, true
}

// Delete closes and removes a session. It reports whether the session
// existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	e := st.m[id]
	if e == nil {
		return false
	}
	st.deleteElemLocked(e)
	return true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictExpiredLocked(st.now())
	return st.lru.Len()
}

// IDs returns live session IDs, most recently used first.
func (st *Store) IDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictExpiredLocked(st.now())

	out := make([]string, 0, st.lru.Len())
	for e := st.lru.Front(); e != nil; e = e.Next() {
		if it, _ := e.Value.(*item); it != nil && it.s != nil {
			out = append(out, it.s.id)
		}
	}
	return out
}

func (st *Store) create(id string) (*Session, error) {
	mgr, err := st.newManager()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)
	if e := st.m[id]; e != nil {
		// Lost a race with another creator; keep the existing session.
		it, _ := e.Value.(*item)
		if it != nil && it.s != nil && !it.s.closed.Load() {
			it.lastUsed = now
			st.lru.MoveToFront(e)
			return it.s, nil
		}
		st.deleteElemLocked(e)
	}

	s := &Session{
		id:      id,
		mgr:     mgr,
		tracer:  st.tracer,
		created: now,
		touch:   func() { st.touch(id) },
	}
	st.m[id] = st.lru.PushFront(&item{s: s, lastUsed: now})
	st.evictOverLimitLocked()

	st.logger.Debug("session created", "session_id", id, "language", mgr.Language())
	return s, nil
}

func (st *Store) evictExpiredLocked(now time.Time) {
	for e := st.lru.Back(); e != nil; {
		prev := e.Prev()
		it, ok := e.Value.(*item)
		if ok && it != nil && it.s != nil && now.Sub(it.lastUsed) <= st.ttl {
			break
		}
		st.deleteElemLocked(e)
		e = prev
	}
}

func (st *Store) evictOverLimitLocked() {
	for st.lru.Len() > st.maxSessions {
		e := st.lru.Back()
		if e == nil {
			return
		}
		st.deleteElemLocked(e)
	}
}

func (st *Store) deleteElemLocked(e *list.Element) {
	it, _ := e.Value.(*item)
	if it != nil && it.s != nil {
		delete(st.m, it.s.id)
		it.s.closed.Store(true)
		st.logger.Debug("session closed", "session_id", it.s.id)
	}
	st.lru.Remove(e)
}

// touch updates lastUsed and MRU position for an existing session.
func (st *Store) touch(id string) {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	e := st.m[id]
	if e == nil {
		return
	}
	if it, _ := e.Value.(*item); it != nil {
		it.lastUsed = now
		st.lru.MoveToFront(e)
	}
}
