// Command venvctl recreates the project's Python virtual environment from its
// dependency manifest.
//
// Usage:
//
//	venvctl [--config venvctl.toml] [--env-dir venv] [--manifest requirements.txt]
//	        [--interpreter python3] [--timeout 10m] [--verify]
//
// With no arguments it removes ./venv, runs python3 -m venv venv, and installs
// ./requirements.txt into it. The exit status is the failing tool's status.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/venvctl/internal/logging"
	"github.com/danmuck/venvctl/internal/venv"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	logging.ConfigureRuntime()

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "venvctl: %v\n", err)
		os.Exit(configExitStatus(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

// configExitStatus is 2 for command-line misuse and 1 for config file errors.
func configExitStatus(err error) int {
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

func run(ctx context.Context, cfg venv.Config) int {
	p, err := venv.NewProvisioner(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "venvctl: %v\n", err)
		return 1
	}

	res, err := p.Provision(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "venvctl: %v\n", err)
		return venv.ExitStatus(err)
	}
	log.Info().
		Str("env", res.Activation.Dir).
		Msgf("environment ready; run `source %s/bin/activate` to use it in a shell", res.Activation.Dir)
	return 0
}
