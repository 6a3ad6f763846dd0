package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scriptexec.hcl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Language != DefaultLanguage || cfg.LogLevel != DefaultLogLevel || cfg.Format != DefaultFormat {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ScriptTimeout() != DefaultTimeout {
		t.Errorf("ScriptTimeout() = %v, want %v", cfg.ScriptTimeout(), DefaultTimeout)
	}
	if cfg.MaxSessions != DefaultMaxSessions || cfg.SessionTTL != DefaultSessionTTL {
		t.Errorf("unexpected session defaults: %+v", cfg)
	}
}

func TestParseConfig_Precedence(t *testing.T) {
	path := writeFile(t, `
language    = "lua"
log_level   = "debug"
format      = "json"
timeout     = "5s"
session_ttl = "1m"
max_sessions = 3
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv("SCRIPTEXEC_LOG_LEVEL", "warn")
	t.Setenv("SCRIPTEXEC_FORMAT", "yaml")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-format", "text", "rest"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.Language != "lua" {
		t.Errorf("Language = %q, want lua from file", cfg.Language)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from env", cfg.LogLevel)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want text from flag", cfg.Format)
	}
	if cfg.Timeout != 5*time.Second || cfg.SessionTTL != time.Minute || cfg.MaxSessions != 3 {
		t.Errorf("file durations not applied: %+v", cfg)
	}
	if got := fs.Args(); len(got) != 1 || got[0] != "rest" {
		t.Errorf("Args() = %v, want [rest]", got)
	}
}

func TestParseConfig_ConfigFlagOverridesEnvPath(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.hcl"))
	path := writeFile(t, `language = "javascript"`)

	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-config", path})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Language != "javascript" {
		t.Errorf("Language = %q", cfg.Language)
	}
}

func TestParseConfig_NoTimeout(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("SCRIPTEXEC_NO_TIMEOUT", "true")

	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.ScriptTimeout() != 0 {
		t.Errorf("ScriptTimeout() = %v, want 0", cfg.ScriptTimeout())
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{"bad env duration", map[string]string{"SCRIPTEXEC_TIMEOUT": "soon"}, nil, "parse env:"},
		{"bad format", nil, []string{"-format", "xml"}, "output format"},
		{"bad log level", map[string]string{"SCRIPTEXEC_LOG_LEVEL": "loud"}, nil, "log level"},
		{"negative timeout", nil, []string{"-timeout", "-1s"}, "durations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigFile, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseConfig_ValidationSentinel(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	_, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-log-format", "xml"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
}

func TestDecodeFile_Errors(t *testing.T) {
	if _, err := DecodeFile(writeFile(t, `language = `)); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("syntax error = %v", err)
	}
	if _, err := DecodeFile(writeFile(t, `unknown = 1`)); err == nil || !strings.Contains(err.Error(), "failed to decode") {
		t.Errorf("unknown attribute error = %v", err)
	}
	if _, err := DecodeFile(writeFile(t, `timeout = "later"`)); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("bad duration error = %v", err)
	}
}

func TestParseConfig_NilFlagSet(t *testing.T) {
	if _, err := ParseConfig(nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
