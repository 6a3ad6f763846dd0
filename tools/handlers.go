package tools

import (
	"context"
	"fmt"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonwraymond/scriptexec/script"
	"github.com/jonwraymond/scriptexec/sessions"
)

// RunInput is the input of the run tool.
type RunInput struct {
	Session string `json:"session,omitempty" jsonschema:"session ID; empty creates a new session"`
	Code    string `json:"code" jsonschema:"source text to execute"`
}

// ContinueInput is the input of the continue tool. The session is required.
type ContinueInput struct {
	Session string `json:"session" jsonschema:"session ID"`
	Code    string `json:"code" jsonschema:"source text to execute"`
}

// RunFileInput is the input of the run_file tool.
type RunFileInput struct {
	Session string `json:"session,omitempty" jsonschema:"session ID; empty creates a new session"`
	Path    string `json:"path" jsonschema:"path of the script file"`
}

// SessionInput is the input of the reset tool.
type SessionInput struct {
	Session string `json:"session" jsonschema:"session ID"`
}

// NewSessionInput is the input of the new_session tool.
type NewSessionInput struct{}

// Output reports the outcome of a tool call together with the session it ran
// in.
type Output struct {
	Session     string `json:"session" jsonschema:"session ID"`
	Success     bool   `json:"success" jsonschema:"whether the operation succeeded"`
	Message     string `json:"message,omitempty" jsonschema:"confirmation text on success"`
	Error       string `json:"error,omitempty" jsonschema:"failure description"`
	ReturnValue any    `json:"returnValue,omitempty" jsonschema:"final value produced by the script"`
}

func newOutput(id string, res script.Result) Output {
	return Output{
		Session:     id,
		Success:     res.Success,
		Message:     res.Message,
		Error:       res.Error,
		ReturnValue: res.ReturnValue,
	}
}

// Run executes code in a fresh evaluation context of the given session,
// creating the session when needed.
func (c *Catalog) Run(ctx context.Context, in RunInput) (Output, error) {
	s, _, err := c.store.GetOrCreate(in.Session)
	if err != nil {
		return Output{}, err
	}
	return newOutput(s.ID(), s.RunFresh(ctx, in.Code)), nil
}

// RunFile executes a script file in a fresh evaluation context.
func (c *Catalog) RunFile(ctx context.Context, in RunFileInput) (Output, error) {
	if in.Path == "" {
		return Output{}, fmt.Errorf("%w: path is required", ErrInvalidArgs)
	}
	s, _, err := c.store.GetOrCreate(in.Session)
	if err != nil {
		return Output{}, err
	}
	return newOutput(s.ID(), s.RunFromFile(ctx, in.Path)), nil
}

// Continue executes code against an existing session. An unknown session is
// reported like a session without state.
func (c *Catalog) Continue(ctx context.Context, in ContinueInput) (Output, error) {
	s, ok := c.store.Get(in.Session)
	if !ok {
		return Output{
			Session: in.Session,
			Error:   script.MessageNoSession,
		}, nil
	}
	return newOutput(s.ID(), s.Continue(ctx, in.Code)), nil
}

// Reset discards the evaluation context of a session.
func (c *Catalog) Reset(ctx context.Context, in SessionInput) (Output, error) {
	s, ok := c.store.Get(in.Session)
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", sessions.ErrSessionNotFound, in.Session)
	}
	s.Reset(ctx)
	return Output{Session: s.ID(), Success: true, Message: "Session reset"}, nil
}

// NewSession creates an empty session.
func (c *Catalog) NewSession(context.Context, NewSessionInput) (Output, error) {
	s, err := c.store.Create()
	if err != nil {
		return Output{}, err
	}
	return Output{Session: s.ID(), Success: true, Message: "Session created"}, nil
}

func (c *Catalog) definitions(lang string) []ToolDef {
	name := "script"
	tags := func(extra ...string) []string {
		if lang != "" {
			extra = append(extra, lang)
		}
		return extra
	}
	if lang != "" {
		name = cases.Title(language.English).String(lang) + " script"
	}
	sessionProp := map[string]any{"type": "string", "description": "Session ID; empty creates a new session"}

	return []ToolDef{
		{
			Name:        ToolRun,
			Title:       "Run " + name,
			Description: fmt.Sprintf("Runs %s source in a fresh evaluation context and keeps that context for continuations", name),
			InputSchema: objectSchema(map[string]any{
				"session": sessionProp,
				"code":    map[string]any{"type": "string", "description": "Source text"},
			}, "code"),
			Tags: tags("script", "run", "execute"),
			Doc:  tooldoc.DocEntry{
				Summary: "Run source text in a new evaluation context",
				Notes:   "Any previous context of the session is discarded only when the run succeeds.",
				Examples: []tooldoc.ToolExample{
					{Title: "Start a session", Args: map[string]any{"code": exampleCode(lang)}},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				in := RunInput{Session: stringArg(args, "session"), Code: stringArg(args, "code")}
				return c.Run(ctx, in)
			},
		},
		{
			Name:        ToolRunFile,
			Title:       "Run " + name + " file",
			Description: fmt.Sprintf("Reads a %s file and runs it in a fresh evaluation context", name),
			InputSchema: objectSchema(map[string]any{
				"session": sessionProp,
				"path":    map[string]any{"type": "string", "description": "Script file path"},
			}, "path"),
			Tags: tags("script", "run", "file"),
			Doc:  tooldoc.DocEntry{
				Summary: "Run a script file in a new evaluation context",
				Notes:   "A missing file is reported without running anything.",
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				in := RunFileInput{Session: stringArg(args, "session"), Path: stringArg(args, "path")}
				return c.RunFile(ctx, in)
			},
		},
		{
			Name:        ToolContinue,
			Title:       "Continue " + name,
			Description: "Runs source text against the evaluation context left by earlier runs of the session",
			InputSchema: objectSchema(map[string]any{
				"session": map[string]any{"type": "string", "description": "Session ID"},
				"code":    map[string]any{"type": "string", "description": "Source text"},
			}, "session", "code"),
			Tags: tags("script", "continue", "repl"),
			Doc:  tooldoc.DocEntry{
				Summary: "Continue a session with more source text",
				Notes:   "Fails without touching the engine when the session has no context. A failed continuation leaves the context as it was.",
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				in := ContinueInput{Session: stringArg(args, "session"), Code: stringArg(args, "code")}
				return c.Continue(ctx, in)
			},
		},
		{
			Name:        ToolReset,
			Title:       "Reset session",
			Description: "Discards the evaluation context of a session",
			InputSchema: objectSchema(map[string]any{
				"session": map[string]any{"type": "string", "description": "Session ID"},
			}, "session"),
			Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
			Tags:        []string{"script", "reset", "session"},
			Doc:         tooldoc.DocEntry{Summary: "Discard the session's evaluation context"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return c.Reset(ctx, SessionInput{Session: stringArg(args, "session")})
			},
		},
		{
			Name:        ToolNewSession,
			Title:       "New session",
			Description: "Creates an empty script session and returns its ID",
			InputSchema: objectSchema(map[string]any{}),
			Tags:        []string{"script", "session"},
			Doc:         tooldoc.DocEntry{Summary: "Create an empty session"},
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return c.NewSession(ctx, NewSessionInput{})
			},
		},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, 0, len(required))
		for _, r := range required {
			req = append(req, r)
		}
		schema["required"] = req
	}
	return schema
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func exampleCode(lang string) string {
	if lang == "lua" {
		return `Console:WriteLine("hello"); return 1 + 2`
	}
	return `Console.WriteLine("hello"); 1 + 2`
}
