// Package system abstracts command execution so provisioning steps can be
// tested without touching the host.
package system

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Runner executes external commands. Provisioning code never calls
// os/exec directly; it goes through a Runner so tests can substitute a
// Recorder and assert on the exact commands issued.
type Runner interface {
	// Execute runs a command and returns its combined output.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)

	// ExecuteWithStdin runs a command with stdin fed from r and returns
	// its combined output.
	ExecuteWithStdin(ctx context.Context, r io.Reader, name string, args ...string) ([]byte, error)

	// ExecuteInteractive runs a command with stdin/stdout/stderr attached
	// to the terminal, for long operations the operator watches.
	ExecuteInteractive(ctx context.Context, name string, args ...string) error
}

// Exec is the Runner backed by real OS processes.
type Exec struct{}

// NewExec returns a Runner that executes real commands.
func NewExec() *Exec {
	return &Exec{}
}

func (e *Exec) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (e *Exec) ExecuteWithStdin(ctx context.Context, r io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r
	return cmd.CombinedOutput()
}

func (e *Exec) ExecuteInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
