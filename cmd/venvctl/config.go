package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/venvctl/internal/venv"
	flag "github.com/spf13/pflag"
)

const defaultConfigPath = "venvctl.toml"

type fileConfig struct {
	ProjectRoot string `toml:"project_root"`
	EnvDir      string `toml:"env_dir"`
	Manifest    string `toml:"manifest"`
	Interpreter string `toml:"interpreter"`
	Timeout     string `toml:"timeout"`
	Verify      bool   `toml:"verify"`
}

// usageError marks command-line misuse, reported with exit status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type options struct {
	configPath  string
	projectRoot string
	envDir      string
	manifest    string
	interpreter string
	timeout     time.Duration
	verify      bool
}

func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("venvctl", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "TOML config file (default ./"+defaultConfigPath+" when present)")
	fs.StringVar(&opts.projectRoot, "root", "", "project root that relative paths resolve against")
	fs.StringVar(&opts.envDir, "env-dir", venv.DefaultEnvDir, "environment directory, recreated on every run")
	fs.StringVar(&opts.manifest, "manifest", venv.DefaultManifest, "dependency manifest passed to pip install -r")
	fs.StringVar(&opts.interpreter, "interpreter", venv.DefaultInterpreter, "host interpreter used to create the environment")
	fs.DurationVar(&opts.timeout, "timeout", 0, "overall timeout for the sequence (0 = none)")
	fs.BoolVar(&opts.verify, "verify", false, "check every manifest package is installed afterwards")
	return fs
}

// parseConfig resolves defaults, then the config file, then explicit flags.
func parseConfig(args []string) (venv.Config, error) {
	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(args); err != nil {
		return venv.Config{}, usageError{err: err}
	}
	if fs.NArg() > 0 {
		return venv.Config{}, usageError{err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	cfg := venv.DefaultConfig()
	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return venv.Config{}, err
		}
	}
	if path != "" {
		loaded, err := loadProvisionConfig(path, cfg)
		if err != nil {
			return venv.Config{}, err
		}
		cfg = loaded
	}

	if fs.Changed("root") {
		cfg.ProjectRoot = strings.TrimSpace(opts.projectRoot)
	}
	if fs.Changed("env-dir") {
		cfg.EnvDir = strings.TrimSpace(opts.envDir)
	}
	if fs.Changed("manifest") {
		cfg.Manifest = strings.TrimSpace(opts.manifest)
	}
	if fs.Changed("interpreter") {
		cfg.Interpreter = strings.TrimSpace(opts.interpreter)
	}
	if fs.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if fs.Changed("verify") {
		cfg.Verify = opts.verify
	}
	return cfg, nil
}

// loadProvisionConfig applies keys defined in the TOML file at path onto cfg.
// A relative project_root resolves against the config file's directory.
func loadProvisionConfig(path string, cfg venv.Config) (venv.Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return venv.Config{}, fmt.Errorf("load venvctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return venv.Config{}, fmt.Errorf("load venvctl config: unknown keys %q", undecoded)
	}

	if meta.IsDefined("project_root") {
		root := strings.TrimSpace(raw.ProjectRoot)
		if root != "" && !filepath.IsAbs(root) {
			root = filepath.Join(filepath.Dir(path), root)
		}
		cfg.ProjectRoot = root
	}

	if meta.IsDefined("env_dir") {
		cfg.EnvDir = strings.TrimSpace(raw.EnvDir)
	}

	if meta.IsDefined("manifest") {
		cfg.Manifest = strings.TrimSpace(raw.Manifest)
	}

	if meta.IsDefined("interpreter") {
		cfg.Interpreter = strings.TrimSpace(raw.Interpreter)
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return venv.Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("verify") {
		cfg.Verify = raw.Verify
	}

	return cfg, nil
}
