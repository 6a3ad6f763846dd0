package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/scriptexec/script"
)

// resultView is the printed shape of a script.Result.
type resultView struct {
	Success     bool   `json:"success" yaml:"success"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	ReturnValue any    `json:"returnValue,omitempty" yaml:"returnValue,omitempty"`
}

// printResult writes res to w in the given format.
func printResult(w io.Writer, format string, res script.Result) error {
	view := resultView{
		Success:     res.Success,
		Message:     res.Message,
		Error:       res.Error,
		ReturnValue: res.ReturnValue,
	}
	switch format {
	case "json", "yaml":
		return encode(w, format, view)
	}

	if !res.Success {
		_, err := fmt.Fprintln(w, res.Error)
		return err
	}
	if res.ReturnValue == nil {
		_, err := fmt.Fprintln(w, res.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n=> %s\n", res.Message, script.Render(res.ReturnValue))
	return err
}

// encode writes v as indented JSON or as YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
