package ui

import (
	"testing"
)

func TestStatusFunctions(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		fn    func(string) string
		input string
		want  string
	}{
		"success empty":      {fn: StatusSuccess, input: "", want: SymbolSuccess},
		"success with msg":   {fn: StatusSuccess, input: "done", want: SymbolSuccess + " done"},
		"error with msg":     {fn: StatusError, input: "failed", want: SymbolError + " failed"},
		"warning with msg":   {fn: StatusWarning, input: "caution", want: SymbolWarning + " caution"},
		"skipped empty":      {fn: StatusSkipped, input: "", want: SymbolSkipped},
		"cancelled with msg": {fn: StatusCancelled, input: "kept", want: SymbolCancelled + " kept"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		failed, cancelled bool
		want              string
	}{
		"success":      {want: SymbolSuccess + " msg"},
		"failure":      {failed: true, want: SymbolError + " msg"},
		"cancelled":    {cancelled: true, want: SymbolCancelled + " msg"},
		"failure wins": {failed: true, cancelled: true, want: SymbolError + " msg"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Outcome(tt.failed, tt.cancelled, "msg"); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChangeLine(t *testing.T) {
	DisableColors()
	defer EnableColors()

	if got := ChangeLine(MarkAdd, "Tech: http://a/feed"); got != "+ Tech: http://a/feed" {
		t.Errorf("ChangeLine() = %q", got)
	}
	if got := ChangeLine("?", "x"); got != "? x" {
		t.Errorf("ChangeLine() = %q", got)
	}
}

func TestColorToggle(t *testing.T) {
	initial := IsColorEnabled()

	DisableColors()
	if IsColorEnabled() {
		t.Error("expected colors to be disabled")
	}

	EnableColors()
	if !IsColorEnabled() {
		t.Error("expected colors to be enabled")
	}

	if !initial {
		DisableColors()
	}
}
