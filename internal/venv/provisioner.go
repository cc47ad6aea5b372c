package venv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/venvctl/internal/manifest"
	"github.com/danmuck/venvctl/internal/tools"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEnvDir      = "venv"
	DefaultManifest    = "requirements.txt"
	DefaultInterpreter = "python3"
)

// Config is the provisioner input. Relative paths resolve against
// ProjectRoot, which defaults to the working directory.
type Config struct {
	ProjectRoot string
	EnvDir      string
	Manifest    string
	Interpreter string
	// Timeout bounds the whole sequence; zero disables it.
	Timeout time.Duration
	Verify  bool
	Runner  tools.CommandRunner
	Stdout  io.Writer
	Stderr  io.Writer
}

// DefaultConfig returns the conventional project layout.
func DefaultConfig() Config {
	return Config{
		EnvDir:      DefaultEnvDir,
		Manifest:    DefaultManifest,
		Interpreter: DefaultInterpreter,
	}
}

// Result describes one provisioning run.
type Result struct {
	Stages     []Stage
	Activation Activation
	Installed  []Package
	Elapsed    time.Duration
}

// Final returns the last stage reached.
func (r Result) Final() Stage {
	if len(r.Stages) == 0 {
		return StageStart
	}
	return r.Stages[len(r.Stages)-1]
}

// Provisioner recreates one environment directory from a manifest.
//
// Provision runs, in order:
//  1. reset: remove the environment directory, absent is fine
//  2. create: <interpreter> -m venv <env>
//  3. activate: resolve <env>/bin/python into an Activation
//  4. install: <env>/bin/python -m pip install -r <manifest>
//  5. verify (optional): every manifest name appears in pip list
//
// The first failure stops the sequence. Nothing is rolled back.
type Provisioner struct {
	projectRoot string
	envDir      string
	manifest    string
	interpreter string
	timeout     time.Duration
	verify      bool
	runner      tools.CommandRunner
	stdout      io.Writer
	stderr      io.Writer
}

type step struct {
	stage       Stage
	description string
	run         func(ctx context.Context, res *Result) error
}

// NewProvisioner validates cfg and resolves its paths.
func NewProvisioner(cfg Config) (*Provisioner, error) {
	root := strings.TrimSpace(cfg.ProjectRoot)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	envDir := strings.TrimSpace(cfg.EnvDir)
	if envDir == "" {
		return nil, fmt.Errorf("%w: env_dir is required", ErrInvalidConfig)
	}
	envAbs := resolve(rootAbs, envDir)
	if envAbs == rootAbs || !isWithin(envAbs, rootAbs) {
		return nil, fmt.Errorf("%w: env_dir=%q must be a subdirectory of %q", ErrSandboxViolation, envDir, rootAbs)
	}

	manifestPath := strings.TrimSpace(cfg.Manifest)
	if manifestPath == "" {
		return nil, fmt.Errorf("%w: manifest is required", ErrInvalidConfig)
	}
	interpreter := strings.TrimSpace(cfg.Interpreter)
	if interpreter == "" {
		return nil, fmt.Errorf("%w: interpreter is required", ErrInvalidConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout=%s must not be negative", ErrInvalidConfig, cfg.Timeout)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Provisioner{
		projectRoot: rootAbs,
		envDir:      envAbs,
		manifest:    resolve(rootAbs, manifestPath),
		interpreter: interpreter,
		timeout:     cfg.Timeout,
		verify:      cfg.Verify,
		runner:      runner,
		stdout:      stdout,
		stderr:      stderr,
	}, nil
}

func (p *Provisioner) EnvDir() string       { return p.envDir }
func (p *Provisioner) ManifestPath() string { return p.manifest }
func (p *Provisioner) ProjectRoot() string  { return p.projectRoot }

// Provision runs the full sequence against the environment directory.
func (p *Provisioner) Provision(ctx context.Context) (Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	trail := newStageTrail()
	var res Result
	finish := func(err error) (Result, error) {
		if err != nil {
			trail.fail()
		}
		res.Stages = trail.stages()
		res.Elapsed = time.Since(started)
		return res, err
	}

	log.Info().
		Str("env", p.envDir).
		Str("manifest", p.manifest).
		Str("interpreter", p.interpreter).
		Msg("venv.provision start")

	for _, s := range p.steps() {
		if err := trail.advance(s.stage); err != nil {
			return finish(err)
		}
		if err := ctx.Err(); err != nil {
			return finish(&StepError{Stage: s.stage, Kind: stageKind(s.stage), Err: err})
		}
		log.Info().Str("stage", string(s.stage)).Msg("venv.provision " + s.description)
		if err := s.run(ctx, &res); err != nil {
			log.Error().Err(err).Str("stage", string(s.stage)).Msg("venv.provision failed")
			return finish(err)
		}
	}
	if err := trail.advance(StageDone); err != nil {
		return finish(err)
	}

	out, err := finish(nil)
	log.Info().
		Str("env", p.envDir).
		Dur("elapsed", out.Elapsed).
		Msg("venv.provision done")
	return out, err
}

func (p *Provisioner) steps() []step {
	steps := []step{
		{stage: StageReset, description: "remove environment directory", run: p.reset},
		{stage: StageCreate, description: "create environment", run: p.create},
		{stage: StageActivate, description: "activate environment", run: p.activate},
		{stage: StageInstall, description: "install manifest", run: p.install},
	}
	if p.verify {
		steps = append(steps, step{stage: StageVerify, description: "verify installed packages", run: p.verifyInstalled})
	}
	return steps
}

func (p *Provisioner) reset(_ context.Context, _ *Result) error {
	_, statErr := os.Lstat(p.envDir)
	if err := os.RemoveAll(p.envDir); err != nil {
		return &StepError{Stage: StageReset, Kind: ErrReset, Err: err}
	}
	log.Debug().
		Str("env", p.envDir).
		Bool("existed", statErr == nil).
		Msg("venv.provision reset")
	return nil
}

func (p *Provisioner) create(ctx context.Context, _ *Result) error {
	cmd := tools.Command{
		Name:   p.interpreter,
		Args:   []string{"-m", "venv", p.envDir},
		Dir:    p.projectRoot,
		Stdout: p.stdout,
		Stderr: p.stderr,
	}
	return p.runCommand(ctx, StageCreate, ErrCreate, cmd)
}

func (p *Provisioner) activate(_ context.Context, res *Result) error {
	act, err := Activate(p.envDir)
	if err != nil {
		return &StepError{Stage: StageActivate, Kind: ErrActivate, Err: err}
	}
	res.Activation = act
	log.Debug().
		Str("python", act.Python).
		Str("bin", act.BinDir).
		Msg("venv.provision activated")
	return nil
}

func (p *Provisioner) install(ctx context.Context, res *Result) error {
	act := res.Activation
	cmd := tools.Command{
		Name:   act.Python,
		Args:   []string{"-m", "pip", "install", "-r", p.manifest},
		Dir:    p.projectRoot,
		Env:    act.Environ(os.Environ()),
		Stdout: p.stdout,
		Stderr: p.stderr,
	}
	return p.runCommand(ctx, StageInstall, ErrInstall, cmd)
}

func (p *Provisioner) verifyInstalled(ctx context.Context, res *Result) error {
	reqs, err := manifest.Read(p.manifest)
	if err != nil {
		return &StepError{Stage: StageVerify, Kind: ErrVerify, Err: err}
	}
	pkgs, err := InstalledPackages(ctx, p.runner, res.Activation)
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return stepErr
		}
		return &StepError{Stage: StageVerify, Kind: ErrVerify, Err: err}
	}
	res.Installed = pkgs

	if missing := MissingRequirements(reqs, pkgs); len(missing) > 0 {
		return &StepError{
			Stage: StageVerify,
			Kind:  ErrVerify,
			Err:   fmt.Errorf("%w: missing=%s", ErrManifestUnsatisfied, strings.Join(missing, ",")),
		}
	}
	log.Debug().
		Strs("requirements", manifest.Names(reqs)).
		Int("installed", len(pkgs)).
		Msg("venv.provision verified")
	return nil
}

func (p *Provisioner) runCommand(ctx context.Context, stage Stage, kind error, cmd tools.Command) error {
	log.Info().
		Str("stage", string(stage)).
		Str("cmd", cmd.Name).
		Strs("args", cmd.Args).
		Msg("venv.provision exec")
	_, stderr, exitCode, err := p.runner.Run(ctx, cmd)
	if err == nil {
		return nil
	}
	return commandError(stage, kind, cmd, stderr, exitCode, withContextCause(ctx, err))
}

func stageKind(stage Stage) error {
	switch stage {
	case StageReset:
		return ErrReset
	case StageCreate:
		return ErrCreate
	case StageActivate:
		return ErrActivate
	case StageInstall:
		return ErrInstall
	default:
		return ErrVerify
	}
}

func resolve(root string, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, path))
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
