package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/engine"
	"github.com/jonwraymond/scriptexec/internal/config"
	"github.com/jonwraymond/scriptexec/internal/otel"
	"github.com/jonwraymond/scriptexec/mcpserver"
	"github.com/jonwraymond/scriptexec/script"
	"github.com/jonwraymond/scriptexec/sessions"
	"github.com/jonwraymond/scriptexec/tools"
)

// serviceName labels traces and the MCP implementation.
const serviceName = "scriptexec"

// ExitError is an error that carries a process exit code. An empty Message
// means the failure was already reported on the output streams.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

const usage = `scriptexec - run scripts against a persistent session.

Usage:
  scriptexec <command> [options] [arguments]

Commands:
  run <file>      Run a script file in a fresh session
  eval <code>     Run source text in a fresh session
  repl            Read lines from stdin; the first runs fresh, the rest continue
  serve           Serve the session tools over MCP on stdio
  tools [query]   List or search the session tools

Run "scriptexec <command> -h" for the options of a command.
`

// Run dispatches args to a command. version is reported by the MCP server.
func Run(ctx context.Context, args []string, streams Streams, version string) error {
	if len(args) == 0 {
		fmt.Fprint(streams.Err, usage)
		return &ExitError{Code: 2}
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return runFile(ctx, rest, streams)
	case "eval":
		return runEval(ctx, rest, streams)
	case "repl":
		return runREPL(ctx, rest, streams)
	case "serve":
		return runServe(ctx, rest, streams, version)
	case "tools":
		return runTools(rest, streams)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(streams.Out, usage)
		return nil
	default:
		fmt.Fprint(streams.Err, usage)
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// env is the resolved configuration of one command invocation.
type env struct {
	cfg    config.Config
	fs     *flag.FlagSet
	logger *slog.Logger
}

// parse loads the configuration for a command. A nil env with a nil error
// means help was requested.
func parse(name string, args []string, streams Streams, extra func(*flag.FlagSet)) (*env, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(streams.Err)
	if extra != nil {
		extra(fs)
	}
	cfg, err := config.ParseConfig(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return &env{
		cfg:    cfg,
		fs:     fs,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, streams.Err),
	}, nil
}

// loadAssets builds the asset manager shared by every script of the process.
func loadAssets(cfg config.Config, logger *slog.Logger) (*assets.Manager, error) {
	am := assets.NewManager()
	if cfg.AssetsDir == "" {
		return am, nil
	}
	n, err := am.LoadFolder(cfg.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	logger.Debug("assets loaded", "dir", cfg.AssetsDir, "count", n)
	return am, nil
}

// managerFactory returns a constructor for Managers configured from cfg.
func managerFactory(cfg config.Config, logger *slog.Logger) (sessions.ManagerFactory, error) {
	am, err := loadAssets(cfg, logger)
	if err != nil {
		return nil, err
	}
	reg := engine.Default()
	if _, err := reg.New(cfg.Language); err != nil {
		return nil, err
	}
	return func() (*script.Manager, error) {
		eng, err := reg.New(cfg.Language)
		if err != nil {
			return nil, err
		}
		return script.NewManager(script.Config{
			Engine:         eng,
			Assets:         am,
			Logger:         logger,
			DefaultTimeout: cfg.ScriptTimeout(),
		})
	}, nil
}

func (e *env) newManager() (*script.Manager, error) {
	factory, err := managerFactory(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	return factory()
}

// report prints res and turns a failed result into exit status 1.
func report(w io.Writer, format string, res script.Result) error {
	if err := printResult(w, format, res); err != nil {
		return err
	}
	if !res.OK() {
		return &ExitError{Code: 1}
	}
	return nil
}

func runFile(ctx context.Context, args []string, streams Streams) error {
	e, err := parse("run", args, streams, nil)
	if e == nil {
		return err
	}
	if e.fs.NArg() != 1 {
		return &ExitError{Code: 2, Message: "usage: scriptexec run [options] <file>"}
	}
	m, err := e.newManager()
	if err != nil {
		return err
	}
	return report(streams.Out, e.cfg.Format, m.RunFromFile(ctx, e.fs.Arg(0)))
}

func runEval(ctx context.Context, args []string, streams Streams) error {
	e, err := parse("eval", args, streams, nil)
	if e == nil {
		return err
	}
	if e.fs.NArg() == 0 {
		return &ExitError{Code: 2, Message: "usage: scriptexec eval [options] <code>"}
	}
	m, err := e.newManager()
	if err != nil {
		return err
	}
	code := strings.Join(e.fs.Args(), " ")
	return report(streams.Out, e.cfg.Format, m.RunFresh(ctx, code))
}

// runREPL reads one unit per line. Lines starting with a colon are
// commands: :reset, :load <file> and :quit.
func runREPL(ctx context.Context, args []string, streams Streams) error {
	e, err := parse("repl", args, streams, nil)
	if e == nil {
		return err
	}
	m, err := e.newManager()
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(streams.In)
	prompt := func() { fmt.Fprintf(streams.Err, "%s> ", m.Language()) }
	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == ":quit" || line == ":exit":
			return nil
		case line == ":reset":
			m.Reset()
			fmt.Fprintln(streams.Out, "Session reset")
		case strings.HasPrefix(line, ":load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, ":load "))
			if err := printResult(streams.Out, e.cfg.Format, m.RunFromFile(ctx, path)); err != nil {
				return err
			}
		default:
			var res script.Result
			if m.HasSession() {
				res = m.Continue(ctx, line)
			} else {
				res = m.RunFresh(ctx, line)
			}
			if err := printResult(streams.Out, e.cfg.Format, res); err != nil {
				return err
			}
		}
		prompt()
	}
	return scanner.Err()
}

// newCatalog builds the session store and tool catalog for cfg.
func newCatalog(cfg config.Config, logger *slog.Logger) (*tools.Catalog, error) {
	factory, err := managerFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := sessions.NewStore(sessions.Config{
		NewManager:  factory,
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	lang, _ := engine.Default().Resolve(cfg.Language)
	return tools.New(tools.Options{Store: store, Language: lang})
}

func runServe(ctx context.Context, args []string, streams Streams, version string) error {
	e, err := parse("serve", args, streams, nil)
	if e == nil {
		return err
	}

	shutdown, err := otel.Setup(ctx, serviceName, e.cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			e.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	catalog, err := newCatalog(e.cfg, e.logger)
	if err != nil {
		return err
	}
	srv, err := mcpserver.New(catalog, version)
	if err != nil {
		return err
	}
	e.logger.Info("serving MCP on stdio",
		"language", e.cfg.Language,
		"session_ttl", e.cfg.SessionTTL,
		"max_sessions", e.cfg.MaxSessions,
		"tracing", e.cfg.OTelEndpoint != "",
	)
	return srv.Serve(ctx)
}
