package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/klauern/feedsync/internal/ui"
)

func TestBarDisabledForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Max: 3, Description: "Syncing", Writer: &buf})

	if b.Enabled() {
		t.Fatal("bar should be disabled for a buffer")
	}
	if err := b.Add(1); err != nil {
		t.Errorf("Add() error = %v", err)
	}
	b.Describe("step")
	if err := b.Finish(); err != nil {
		t.Errorf("Finish() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled bar wrote output: %q", buf.String())
	}
}

func TestListenerPrintsSummary(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(&buf)

	l.Started("Synchronizing", 2)
	l.Step("Fetching")
	l.StepCompleted()
	l.Step("Applying")
	l.StepCompleted()
	l.Finished("Sync In completed")

	if got := buf.String(); got != "Sync In completed\n" {
		t.Errorf("output = %q", got)
	}
}

func TestListenerForcedBarRenders(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	var buf bytes.Buffer
	l := &Listener{w: &buf, force: true}
	l.Started("Synchronizing", -1)
	l.Step("Fetching")
	l.StepCompleted()
	l.Finished("")

	if !strings.Contains(buf.String(), "Synchronizing") {
		t.Errorf("forced bar did not render: %q", buf.String())
	}
}

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	l := NewLogListener(logger)

	l.Started("Synchronizing to the service", 2)
	l.Step("Saving guides and feeds")
	l.StepCompleted()
	l.Finished("Sync Out completed")
	l.Finished("")

	out := buf.String()
	for _, want := range []string{"Synchronizing to the service", "Saving guides and feeds", "step=1", "Sync Out completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("log lines = %d, want 3", n)
	}
}
