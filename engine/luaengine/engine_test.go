package luaengine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/script"
)

type captureLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}
func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func newManager(t *testing.T, logger script.Logger, am *assets.Manager) *script.Manager {
	t.Helper()
	m, err := script.NewManager(script.Config{Engine: New(), Logger: logger, Assets: am})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestRunFresh_ReturnValues(t *testing.T) {
	m := newManager(t, nil, nil)

	tests := []struct {
		name string
		code string
		want any
	}{
		{"integer", "return 1 + 2", 3},
		{"float", "return 7 / 2", 3.5},
		{"string", `return string.upper("abc")`, "ABC"},
		{"boolean", "return 1 < 2", true},
		{"no return", "local x = 1", nil},
		{"nil", "return nil", nil},
		{"first of many", "return 1, 2, 3", 1},
		{"sequence", "return {10, 20, 30}", []any{10, 20, 30}},
		{"record", `return {name = "a", size = 2}`, map[string]any{"name": "a", "size": 2}},
		{"empty table", "return {}", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.RunFresh(context.Background(), tt.code)
			if !res.Success {
				t.Fatalf("RunFresh() failed: %s", res.Error)
			}
			if !reflect.DeepEqual(res.ReturnValue, tt.want) {
				t.Errorf("ReturnValue = %#v, want %#v", res.ReturnValue, tt.want)
			}
		})
	}
}

func TestRunFresh_SyntaxError(t *testing.T) {
	m := newManager(t, nil, nil)

	res := m.RunFresh(context.Background(), "return (")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, script.ErrCompilation) {
		t.Errorf("Err = %v, want ErrCompilation", res.Err)
	}
	if !strings.HasPrefix(res.Error, "Compilation error: Script:1:") {
		t.Errorf("Error = %q, want diagnostics naming the chunk", res.Error)
	}
	if m.HasSession() {
		t.Error("failed run must not create a session")
	}
}

func TestRunFresh_RuntimeError(t *testing.T) {
	m := newManager(t, nil, nil)

	res := m.RunFresh(context.Background(), `error("boom")`)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, script.ErrRuntime) {
		t.Errorf("Err = %v, want ErrRuntime", res.Err)
	}
	if !strings.HasPrefix(res.Error, "Runtime error: ") || !strings.Contains(res.Error, "boom") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestContinue_KeepsGlobals(t *testing.T) {
	m := newManager(t, nil, nil)
	ctx := context.Background()

	if res := m.RunFresh(ctx, "x = 40\nfunction double(n) return n * 2 end"); !res.Success {
		t.Fatalf("RunFresh() failed: %s", res.Error)
	}
	res := m.Continue(ctx, "return x + 2")
	if !res.Success || res.ReturnValue != 42 {
		t.Fatalf("Continue() = %+v, want 42", res)
	}
	if res.Message != script.MessageContinued {
		t.Errorf("Message = %q", res.Message)
	}
	res = m.Continue(ctx, "return double(x)")
	if res.ReturnValue != 80 {
		t.Errorf("ReturnValue = %#v, want 80", res.ReturnValue)
	}
}

func TestContinue_FailureKeepsSession(t *testing.T) {
	m := newManager(t, nil, nil)
	ctx := context.Background()

	m.RunFresh(ctx, "x = 5")
	if res := m.Continue(ctx, "return x +"); res.Success {
		t.Fatal("expected compile failure")
	}
	if res := m.Continue(ctx, `error("no")`); res.Success {
		t.Fatal("expected runtime failure")
	}
	res := m.Continue(ctx, "return x")
	if !res.Success || res.ReturnValue != 5 {
		t.Errorf("Continue() = %+v, want 5", res)
	}
}

func TestRunFresh_DiscardsPreviousState(t *testing.T) {
	m := newManager(t, nil, nil)
	ctx := context.Background()

	m.RunFresh(ctx, "x = 5")
	m.RunFresh(ctx, "y = 1")
	res := m.Continue(ctx, "return x")
	if !res.Success || res.ReturnValue != nil {
		t.Errorf("Continue() = %+v, want nil x in fresh state", res)
	}
}

func TestGlobals_ConsoleAndLogger(t *testing.T) {
	logger := &captureLogger{}
	m := newManager(t, logger, nil)

	code := `Console:WriteLine("hello")
Console:Write(nil)
Console:WriteLine(42)
Logger:Warn("careful")
Logger:Error("bad")`
	res := m.RunFresh(context.Background(), code)
	if !res.Success {
		t.Fatalf("RunFresh() failed: %s", res.Error)
	}

	if want := []string{"hello", "null", "42"}; !reflect.DeepEqual(logger.infos, want) {
		t.Errorf("infos = %v, want %v", logger.infos, want)
	}
	if len(logger.warns) != 1 || logger.warns[0] != "careful" {
		t.Errorf("warns = %v", logger.warns)
	}
	if len(logger.errors) != 1 || logger.errors[0] != "bad" {
		t.Errorf("errors = %v", logger.errors)
	}
}

func TestGlobals_Assets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bundle", "b.bundle"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	am := assets.NewManager()
	m := newManager(t, nil, am)
	ctx := context.Background()

	res := m.RunFresh(ctx, `local n = Assets:LoadFolder("`+filepath.ToSlash(dir)+`")
return n, Assets:Count()`)
	if !res.Success || res.ReturnValue != 2 {
		t.Fatalf("RunFresh() = %+v, want 2", res)
	}
	if am.Count() != 2 {
		t.Errorf("host count = %d, want 2", am.Count())
	}

	res = m.Continue(ctx, `local ok, err = Assets:LoadFile("/definitely/missing")
return err`)
	if !res.Success {
		t.Fatalf("Continue() failed: %s", res.Error)
	}
	if s, _ := res.ReturnValue.(string); s == "" {
		t.Errorf("ReturnValue = %#v, want error text", res.ReturnValue)
	}

	res = m.Continue(ctx, "return #Assets:Files()")
	if res.ReturnValue != 2 {
		t.Errorf("Files length = %#v, want 2", res.ReturnValue)
	}

	res = m.Continue(ctx, "return assets.new():Count()")
	if !res.Success || res.ReturnValue != 0 {
		t.Errorf("assets.new():Count() = %+v, want 0", res)
	}

	if res := m.Continue(ctx, "Assets:Clear()"); !res.Success {
		t.Fatalf("Clear failed: %s", res.Error)
	}
	if am.Count() != 0 {
		t.Errorf("host count after Clear = %d", am.Count())
	}
}

func TestGlobals_WrongReceiver(t *testing.T) {
	m := newManager(t, nil, nil)

	res := m.RunFresh(context.Background(), "return Assets.Count(Console)")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, script.ErrRuntime) {
		t.Errorf("Err = %v, want ErrRuntime", res.Err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New().Run(ctx, script.Script{Name: "x", Code: "return 1"}, script.Globals{})
	if !errors.Is(err, script.ErrRuntime) || !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want canceled runtime error", err)
	}
}

func TestEngine_ForeignState(t *testing.T) {
	_, _, err := New().Continue(context.Background(), "nope", script.Script{Code: "return 1"})
	if !errors.Is(err, ErrForeignState) {
		t.Errorf("Continue() error = %v, want ErrForeignState", err)
	}
}

func TestRunFresh_NestedTables(t *testing.T) {
	m := newManager(t, nil, nil)

	deep := any(1)
	for i := 0; i < 200; i++ {
		deep = map[string]any{"a": deep}
	}

	tests := []struct {
		name string
		code string
		want any
	}{
		{"nested sequence", "return {{1, 2}, {3}}", []any{[]any{1, 2}, []any{3}}},
		{"mixed keys", `return {1, 2, name = "x"}`, map[string]any{"1": 1, "2": 2, "name": "x"}},
		{"record of sequences", `return {list = {"a", "b"}}`, map[string]any{"list": []any{"a", "b"}}},
		{"deep", "local t = 1\nfor i = 1, 200 do t = {a = t} end\nreturn t", deep},
		{"self reference", "local t = {name = \"a\"}\nt.self = t\nreturn t", map[string]any{"name": "a", "self": nil}},
		{"self in sequence", "local t = {}\nt[1] = t\nreturn t", []any{nil}},
		{"shared table", "local s = {1}\nreturn {x = s, y = s}", map[string]any{"x": []any{1}, "y": []any{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.RunFresh(context.Background(), tt.code)
			if !res.Success {
				t.Fatalf("RunFresh() failed: %s", res.Error)
			}
			if !reflect.DeepEqual(res.ReturnValue, tt.want) {
				t.Errorf("ReturnValue = %#v, want %#v", res.ReturnValue, tt.want)
			}
		})
	}
}

func TestGlobals_ConsoleCyclicTable(t *testing.T) {
	logger := &captureLogger{}
	m := newManager(t, logger, nil)

	code := "local t = {}\nfor i = 1, 50 do t = {t} end\nt.me = t\nConsole:WriteLine(t)\nLogger:Info(t)"
	res := m.RunFresh(context.Background(), code)
	if !res.Success {
		t.Fatalf("RunFresh() failed: %s", res.Error)
	}
	if len(logger.infos) != 2 {
		t.Errorf("infos = %d entries, want 2", len(logger.infos))
	}
}

func TestGlobals_PrintGoesToConsole(t *testing.T) {
	logger := &captureLogger{}
	m := newManager(t, logger, nil)

	res := m.RunFresh(context.Background(), `print("x")
print("a", 1, nil)
io.write("y", 2)
return io.stdout == nil and io.output == nil`)
	if !res.Success {
		t.Fatalf("RunFresh() failed: %s", res.Error)
	}
	if res.ReturnValue != true {
		t.Errorf("io.stdout and io.output must be removed, got %#v", res.ReturnValue)
	}
	if want := []string{"x", "a\t1\tnull", "y2"}; !reflect.DeepEqual(logger.infos, want) {
		t.Errorf("infos = %q, want %q", logger.infos, want)
	}
}

func TestGlobals_AssetsManagerAlias(t *testing.T) {
	am := assets.NewManager()
	m := newManager(t, nil, am)

	res := m.RunFresh(context.Background(), "return rawequal(Assets, AssetsManager) and AssetsManager:Count() == 0")
	if !res.Success || res.ReturnValue != true {
		t.Errorf("RunFresh() = %+v, want true", res)
	}
}
