package script

import "fmt"

// NullPlaceholder is written in place of a nil value.
const NullPlaceholder = "null"

// Console is the console-like sink exposed to scripts. Every write produces
// exactly one info entry on the underlying Logger; there is no buffering, so
// Write and WriteLine differ only in name.
type Console struct {
	logger Logger
}

// NewConsole returns a Console forwarding to logger. A nil logger discards.
func NewConsole(logger Logger) *Console {
	if logger == nil {
		logger = NopLogger()
	}
	return &Console{logger: logger}
}

// WriteLine logs the textual form of v.
func (c *Console) WriteLine(v any) {
	c.logger.Info(Render(v))
}

// Write logs the textual form of v without a trailing line break.
func (c *Console) Write(v any) {
	c.logger.Info(Render(v))
}

// Render returns the textual form of v, or NullPlaceholder when v is nil.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return NullPlaceholder
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	default:
		return fmt.Sprint(val)
	}
}
