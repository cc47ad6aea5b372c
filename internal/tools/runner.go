package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// Exit status reported when the command binary could not be started.
const ExitNotFound int32 = 127

// WaitDelay bounds how long Run waits for output pipes to close after the
// context kills a command whose descendants still hold them.
const WaitDelay = 2 * time.Second

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the process environment when non-nil.
	Env []string
	// Stdout and Stderr receive tool output as it is produced.
	Stdout io.Writer
	Stderr io.Writer
}

// Argv returns the command name followed by its arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	return append(argv, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// CommandRunner abstracts tool execution for the provisioner.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes cmd, teeing output to the command writers while capturing it.
func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = WaitDelay
	killProcessGroupOnCancel(cmd)
	if c.Env != nil {
		cmd.Env = c.Env
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, c.Stdout)
	cmd.Stderr = tee(&stderr, c.Stderr)

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}
	return stdout.Bytes(), stderr.Bytes(), ExitCode(err), err
}

// ExitCode maps a command error to the exit status reported to callers.
func ExitCode(err error) int32 {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return int32(code)
		}
		return 1
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
		return ExitNotFound
	}
	return 1
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
