// Package engine keeps the script engines available to a process, keyed by
// language name.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/scriptexec/engine/gojaengine"
	"github.com/jonwraymond/scriptexec/engine/luaengine"
	"github.com/jonwraymond/scriptexec/engine/yaegiengine"
	"github.com/jonwraymond/scriptexec/script"
)

var (
	// ErrEngineExists is returned when registering a duplicate language.
	ErrEngineExists = errors.New("engine already registered")

	// ErrUnknownLanguage is returned when no engine serves a language.
	ErrUnknownLanguage = errors.New("unknown language")
)

// Factory creates a fresh Engine.
type Factory func() script.Engine

// Registry maps language names and aliases to engine factories.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Names: matched case-insensitively after trimming.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
	}
}

// Default returns a registry serving go, lua and javascript, with the
// aliases golang and js.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register(yaegiengine.Language, func() script.Engine { return yaegiengine.New(yaegiengine.Config{}) })
	_ = r.Register(luaengine.Language, func() script.Engine { return luaengine.New() })
	_ = r.Register(gojaengine.Language, func() script.Engine { return gojaengine.New() })
	_ = r.Alias("golang", yaegiengine.Language)
	_ = r.Alias("js", gojaengine.Language)
	return r
}

// Register adds a factory for language.
func (r *Registry) Register(language string, factory Factory) error {
	name := normalize(language)
	if name == "" {
		return fmt.Errorf("engine language is required")
	}
	if factory == nil {
		return fmt.Errorf("engine factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}
	if _, exists := r.aliases[name]; exists {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}
	r.factories[name] = factory
	return nil
}

// Alias makes alias resolve to an already registered language.
func (r *Registry) Alias(alias, language string) error {
	a, target := normalize(alias), normalize(language)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}
	if _, exists := r.factories[a]; exists || a == "" {
		return fmt.Errorf("%w: %s", ErrEngineExists, alias)
	}
	r.aliases[a] = target
	return nil
}

// Resolve returns the canonical language for a name or alias.
func (r *Registry) Resolve(language string) (string, bool) {
	name := normalize(language)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	_, ok := r.factories[name]
	return name, ok
}

// New creates an engine for language.
func (r *Registry) New(language string) (script.Engine, error) {
	name, ok := r.Resolve(language)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownLanguage, language, strings.Join(r.Languages(), ", "))
	}

	r.mu.RLock()
	factory := r.factories[name]
	r.mu.RUnlock()
	return factory(), nil
}

// Languages returns the canonical language names sorted for deterministic
// output.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
