package script

import (
	"errors"
	"testing"
)

func TestResult_OK(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"succeeded", succeeded(MessageExecuted, 1), true},
		{"failed", failed(ErrRuntime, "Runtime error: x"), false},
		{"success with error", Result{Success: true, Err: errors.New("x")}, false},
		{"zero", Result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}
