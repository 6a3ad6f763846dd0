// Package tools describes the script session operations as tools and runs
// them against a sessions.Store.
//
// Every operation is a model.Tool in the "script" namespace, registered in a
// tooldiscovery index with tooldoc documentation so it can be searched and
// described. The same catalog backs the MCP server and the CLI.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/scriptexec/sessions"
)

// Namespace is the tool namespace of every catalog entry.
const Namespace = "script"

// Tool names.
const (
	ToolRun        = "run"
	ToolRunFile    = "run_file"
	ToolContinue   = "continue"
	ToolReset      = "reset"
	ToolNewSession = "new_session"
)

var (
	// ErrToolNotFound is returned for names outside the catalog.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidArgs is returned when tool arguments are missing or mistyped.
	ErrInvalidArgs = errors.New("invalid tool arguments")
)

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolDef defines a catalog tool with its handler.
type ToolDef struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
	Annotations *mcp.ToolAnnotations
	Tags        []string
	Doc         tooldoc.DocEntry
	Handler     HandlerFunc
}

// ID returns the canonical "namespace:name" tool ID.
func (d ToolDef) ID() string {
	return Namespace + ":" + d.Name
}

// Tool returns the model form of the definition.
func (d ToolDef) Tool() model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			InputSchema: d.InputSchema,
			Annotations: d.Annotations,
		},
		Namespace: Namespace,
		Tags:      model.NormalizeTags(d.Tags),
	}
}

// Options configures a Catalog.
type Options struct {
	// Store holds the sessions the tools operate on. Required.
	Store *sessions.Store

	// Language is the engine language, used in titles and descriptions.
	Language string

	// Index receives the tool registrations. Defaults to an in-memory BM25
	// index.
	Index index.Index
}

// Catalog is the registered set of session tools.
//
// Contract:
// - Concurrency: safe for concurrent use; per-session ordering is enforced
// by the sessions store.
type Catalog struct {
	store *sessions.Store
	idx   index.Index
	docs  *tooldoc.InMemoryStore

	mu   sync.RWMutex
	defs map[string]ToolDef
}

// New builds the catalog and registers every tool in the index and doc store.
func New(opts Options) (*Catalog, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tools: sessions store is required")
	}
	idx := opts.Index
	if idx == nil {
		idx = index.NewInMemoryIndex(index.IndexOptions{
			Searcher: search.NewBM25Searcher(search.BM25Config{}),
		})
	}
	c := &Catalog{
		store: opts.Store,
		idx:   idx,
		docs:  tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx}),
		defs:  make(map[string]ToolDef),
	}
	for _, def := range c.definitions(opts.Language) {
		if err := c.register(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) register(def ToolDef) error {
	if err := c.idx.RegisterTool(def.Tool(), model.NewLocalBackend(def.ID())); err != nil {
		return fmt.Errorf("tools: register %s: %w", def.ID(), err)
	}
	if err := c.docs.RegisterDoc(def.ID(), def.Doc); err != nil {
		return fmt.Errorf("tools: document %s: %w", def.ID(), err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.Name] = def
	return nil
}

// Defs returns the tool definitions sorted by name.
func (c *Catalog) Defs() []ToolDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolDef, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tools returns the catalog as model tools sorted by name.
func (c *Catalog) Tools() []model.Tool {
	defs := c.Defs()
	out := make([]model.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.Tool())
	}
	return out
}

// Search finds tools matching query.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	return c.idx.Search(query, limit)
}

// Namespaces lists the namespaces known to the index.
func (c *Catalog) Namespaces() ([]string, error) {
	return c.idx.ListNamespaces()
}

// Describe returns documentation for a tool ID or bare name.
func (c *Catalog) Describe(id string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	return c.docs.DescribeTool(qualify(id), level)
}

// Examples returns up to limit usage examples for a tool ID or bare name.
func (c *Catalog) Examples(id string, limit int) ([]tooldoc.ToolExample, error) {
	return c.docs.ListExamples(qualify(id), limit)
}

// Execute invokes a tool by ID or bare name.
func (c *Catalog) Execute(ctx context.Context, tool string, args map[string]any) (any, error) {
	name := strings.TrimPrefix(tool, Namespace+":")

	c.mu.RLock()
	def, ok := c.defs[name]
	c.mu.RUnlock()
	if !ok || def.Handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, tool)
	}
	return def.Handler(ctx, args)
}

func qualify(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return Namespace + ":" + id
}
