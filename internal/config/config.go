// Package config loads scriptexec configuration.
//
// Sources are applied in order, each overriding the previous one: an
// optional HCL file, SCRIPTEXEC_* environment variables, then command-line
// flags. Whatever is still unset falls back to the defaults below.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Defaults.
const (
	DefaultLanguage    = "go"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultFormat      = "text"
	DefaultTimeout     = 30 * time.Second
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 256
)

// EnvConfigFile names the environment variable holding the HCL file path.
const EnvConfigFile = "SCRIPTEXEC_CONFIG"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the process configuration.
type Config struct {
	// Language selects the script engine.
	Language string `env:"SCRIPTEXEC_LANGUAGE"`

	// AssetsDir is loaded into the asset manager at startup when set.
	AssetsDir string `env:"SCRIPTEXEC_ASSETS_DIR"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"SCRIPTEXEC_LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `env:"SCRIPTEXEC_LOG_FORMAT"`

	// Format is the CLI output format: text, json or yaml.
	Format string `env:"SCRIPTEXEC_FORMAT"`

	// Timeout bounds each script call. Zero selects DefaultTimeout; use
	// NoTimeout to disable it.
	Timeout time.Duration `env:"SCRIPTEXEC_TIMEOUT"`

	// NoTimeout disables the per-call timeout.
	NoTimeout bool `env:"SCRIPTEXEC_NO_TIMEOUT"`

	// SessionTTL is how long idle MCP sessions are kept.
	SessionTTL time.Duration `env:"SCRIPTEXEC_SESSION_TTL"`

	// MaxSessions bounds live MCP sessions.
	MaxSessions int `env:"SCRIPTEXEC_MAX_SESSIONS"`

	// OTelEndpoint enables OTLP/HTTP tracing when set.
	OTelEndpoint string `env:"SCRIPTEXEC_OTEL_ENDPOINT"`
}

// fileConfig is the HCL file layout. Durations are written as Go duration
// strings ("30s").
type fileConfig struct {
	Language     string `hcl:"language,optional"`
	AssetsDir    string `hcl:"assets_dir,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	LogFormat    string `hcl:"log_format,optional"`
	Format       string `hcl:"format,optional"`
	Timeout      string `hcl:"timeout,optional"`
	NoTimeout    bool   `hcl:"no_timeout,optional"`
	SessionTTL   string `hcl:"session_ttl,optional"`
	MaxSessions  int    `hcl:"max_sessions,optional"`
	OTelEndpoint string `hcl:"otel_endpoint,optional"`
}

// DecodeFile parses an HCL configuration file.
func DecodeFile(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL file %s: %s", path, diags.Error())
	}

	cfg := Config{
		Language:     fc.Language,
		AssetsDir:    fc.AssetsDir,
		LogLevel:     fc.LogLevel,
		LogFormat:    fc.LogFormat,
		Format:       fc.Format,
		NoTimeout:    fc.NoTimeout,
		MaxSessions:  fc.MaxSessions,
		OTelEndpoint: fc.OTelEndpoint,
	}
	var err error
	if cfg.Timeout, err = parseDuration(fc.Timeout); err != nil {
		return Config{}, fmt.Errorf("%s: timeout: %w", path, err)
	}
	if cfg.SessionTTL, err = parseDuration(fc.SessionTTL); err != nil {
		return Config{}, fmt.Errorf("%s: session_ttl: %w", path, err)
	}
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// ParseEnv overlays environment variables onto target. Unset variables leave
// fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Flags binds the configuration flags to a FlagSet.
type Flags struct {
	fs   *flag.FlagSet
	path string
	cfg  Config
}

// Bind registers the configuration flags on fs.
func Bind(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.path, "config", "", "HCL configuration file (env "+EnvConfigFile+")")
	fs.StringVar(&f.cfg.Language, "lang", "", "script language: go, lua or javascript")
	fs.StringVar(&f.cfg.AssetsDir, "assets", "", "asset folder loaded before running")
	fs.StringVar(&f.cfg.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.cfg.LogFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&f.cfg.Format, "format", "", "output format: text, json or yaml")
	fs.DurationVar(&f.cfg.Timeout, "timeout", 0, "per-call timeout")
	fs.BoolVar(&f.cfg.NoTimeout, "no-timeout", false, "disable the per-call timeout")
	fs.DurationVar(&f.cfg.SessionTTL, "session-ttl", 0, "idle session lifetime")
	fs.IntVar(&f.cfg.MaxSessions, "max-sessions", 0, "maximum live sessions")
	fs.StringVar(&f.cfg.OTelEndpoint, "otel-endpoint", "", "OTLP/HTTP trace endpoint")
	return f
}

// Load resolves the configuration once the FlagSet has been parsed.
func (f *Flags) Load() (Config, error) {
	path := f.path
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	var cfg Config
	if path != "" {
		var err error
		if cfg, err = DecodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "lang":
			cfg.Language = f.cfg.Language
		case "assets":
			cfg.AssetsDir = f.cfg.AssetsDir
		case "log-level":
			cfg.LogLevel = f.cfg.LogLevel
		case "log-format":
			cfg.LogFormat = f.cfg.LogFormat
		case "format":
			cfg.Format = f.cfg.Format
		case "timeout":
			cfg.Timeout = f.cfg.Timeout
		case "no-timeout":
			cfg.NoTimeout = f.cfg.NoTimeout
		case "session-ttl":
			cfg.SessionTTL = f.cfg.SessionTTL
		case "max-sessions":
			cfg.MaxSessions = f.cfg.MaxSessions
		case "otel-endpoint":
			cfg.OTelEndpoint = f.cfg.OTelEndpoint
		}
	})

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig binds the flags, parses args and loads the configuration.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	f := Bind(fs)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return f.Load()
}

// ScriptTimeout returns the per-call timeout, zero when disabled.
func (c Config) ScriptTimeout() time.Duration {
	if c.NoTimeout {
		return 0
	}
	return c.Timeout
}

func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = DefaultMaxSessions
	}
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat)
	}
	if !slices.Contains([]string{"text", "json", "yaml"}, c.Format) {
		return fmt.Errorf("%w: output format %q", ErrInvalid, c.Format)
	}
	if c.Timeout < 0 || c.SessionTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max sessions must not be negative", ErrInvalid)
	}
	return nil
}
