// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// Execer runs container-runtime CLI invocations. The command constructor
	// is injectable so tests can intercept every subprocess.
	Execer struct {
		execCommand ExecCommandFunc
	}

	// ExecerOption configures an Execer.
	ExecerOption func(*Execer)

	// ExecError reports a runtime CLI invocation that exited non-zero.
	ExecError struct {
		Argv     []string
		ExitCode int
		Stderr   string
		Err      error
	}
)

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// WithExecCommand overrides the subprocess constructor.
func WithExecCommand(fn ExecCommandFunc) ExecerOption {
	return func(e *Execer) { e.execCommand = fn }
}

// NewExecer creates an Execer.
func NewExecer(opts ...ExecerOption) *Execer {
	e := &Execer{execCommand: exec.CommandContext}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes argv with the given streams attached. nil streams inherit the
// venvoy process's own. Stderr is additionally captured so ExecError can
// carry the runtime's diagnostic output.
func (e *Execer) Run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(argv) == 0 {
		return errors.New("exec: empty argument vector")
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	var errBuf bytes.Buffer
	cmd := e.execCommand(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &errBuf)

	if err := cmd.Run(); err != nil {
		return &ExecError{
			Argv:     argv,
			ExitCode: exitCode(err),
			Stderr:   errBuf.String(),
			Err:      err,
		}
	}
	return nil
}

// Capture executes argv and returns its trimmed stdout.
func (e *Execer) Capture(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("exec: empty argument vector")
	}

	var outBuf, errBuf bytes.Buffer
	cmd := e.execCommand(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return "", &ExecError{
			Argv:     argv,
			ExitCode: exitCode(err),
			Stderr:   errBuf.String(),
			Err:      err,
		}
	}
	return strings.TrimSpace(outBuf.String()), nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
