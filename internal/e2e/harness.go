// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It includes a harness for running CLI commands against isolated homes,
// an in-process reference service, and fixture helpers.
package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauern/feedsync/internal/cli"
	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/service/server"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Stderr contains the captured standard error (currently unused, but reserved).
	Stderr string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Service is a reference sync service running for the duration of a test.
type Service struct {
	*server.Server
	URL string
}

// StartService starts an in-process reference service. It is shut down when
// the test completes.
func StartService(t *testing.T) *Service {
	t.Helper()
	s := server.New(server.WithLogger(logging.Discard()))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &Service{Server: s, URL: srv.URL}
}

// Harness provides a test harness for running E2E CLI tests.
// Each harness stands for one device: it owns a home directory and the
// environment its commands run with.
type Harness struct {
	t       *testing.T
	homeDir string
	env     map[string]string
}

// NewHarness creates a new E2E test harness with an isolated FEEDSYNC_HOME.
// Background feed refresh is off so tests never touch the network.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	homeDir := t.TempDir()

	h := &Harness{
		t:       t,
		homeDir: homeDir,
		env:     make(map[string]string),
	}

	h.SetEnv("FEEDSYNC_HOME", homeDir)
	h.SetEnv("FEEDSYNC_REFRESH_ENABLED", "false")
	h.SetEnv("FEEDSYNC_SERVICE_URL", "")
	h.SetEnv("FEEDSYNC_SERVICE_EMAIL", "")
	h.SetEnv("FEEDSYNC_SERVICE_PASSWORD", "")

	return h
}

// Connect points this device at svc with the given account.
func (h *Harness) Connect(svc *Service, email, password string) {
	h.t.Helper()
	h.SetEnv("FEEDSYNC_SERVICE_URL", svc.URL)
	h.SetEnv("FEEDSYNC_SERVICE_EMAIL", email)
	h.SetEnv("FEEDSYNC_SERVICE_PASSWORD", password)
}

// SetEnv sets an environment variable for CLI commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.env[key] = value
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated home directory for this test harness.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// Run executes a CLI command with the given arguments and captures the output.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run(nil, args)
}

// RunWithStdin executes a CLI command with stdin input and captures output.
// This is useful for testing commands that require user input.
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()
	return h.run(&stdin, args)
}

func (h *Harness) run(stdin *string, args []string) *Result {
	h.t.Helper()

	// Several harnesses share the process environment, so this device's
	// variables are applied again before every command.
	for k, v := range h.env {
		h.t.Setenv(k, v)
	}

	if len(args) == 0 || args[0] != "feedsync" {
		args = append([]string{"feedsync", "--no-color"}, args...)
	}

	oldStdin := os.Stdin
	if stdin != nil {
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			h.t.Fatalf("failed to create stdin pipe: %v", err)
		}
		go func(data string) {
			defer func() {
				_ = stdinW.Close()
			}()
			_, _ = stdinW.WriteString(data)
		}(*stdin)
		os.Stdin = stdinR
		defer func() {
			os.Stdin = oldStdin
			_ = stdinR.Close()
		}()
	}

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read stdout concurrently: output larger than the pipe buffer would
	// otherwise block the command.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
