package venv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/venvctl/internal/tools"
)

var (
	ErrInvalidConfig       = errors.New("venv: invalid config")
	ErrSandboxViolation    = errors.New("venv: sandbox violation")
	ErrReset               = errors.New("venv: reset failed")
	ErrCreate              = errors.New("venv: create failed")
	ErrActivate            = errors.New("venv: activate failed")
	ErrInstall             = errors.New("venv: install failed")
	ErrVerify              = errors.New("venv: verify failed")
	ErrManifestUnsatisfied = errors.New("venv: manifest unsatisfied")
	ErrInvalidTransition   = errors.New("venv: invalid stage transition")
)

const stderrTailBytes = 512

// StepError records the provisioning stage that failed and the tool result
// behind it, if a tool ran.
type StepError struct {
	Stage    Stage
	Kind     error
	Command  []string
	ExitCode int32
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	fmt.Fprintf(&b, " stage=%s", e.Stage)
	if len(e.Command) > 0 {
		fmt.Fprintf(&b, " cmd=%q exit=%d", strings.Join(e.Command, " "), e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " stderr=%q", e.Stderr)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ExitStatus maps a provisioning error to a process exit status. Tool
// failures keep the tool's own status; everything else exits 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
		return int(stepErr.ExitCode)
	}
	return 1
}

func commandError(stage Stage, kind error, cmd tools.Command, stderr []byte, exitCode int32, err error) *StepError {
	return &StepError{
		Stage:    stage,
		Kind:     kind,
		Command:  cmd.Argv(),
		ExitCode: exitCode,
		Stderr:   tail(strings.TrimSpace(string(stderr)), stderrTailBytes),
		Err:      err,
	}
}

// withContextCause keeps a timeout or cancellation in the chain when it is why
// the tool died.
func withContextCause(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%w: %w", ctxErr, err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
