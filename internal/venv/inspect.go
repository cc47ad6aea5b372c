package venv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/danmuck/venvctl/internal/manifest"
	"github.com/danmuck/venvctl/internal/tools"
)

// Package is one entry of an environment's installed-package set.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InstalledPackages queries pip inside the activated environment.
func InstalledPackages(ctx context.Context, runner tools.CommandRunner, act Activation) ([]Package, error) {
	cmd := tools.Command{
		Name: act.Python,
		Args: []string{"-m", "pip", "list", "--format=json", "--disable-pip-version-check"},
		Env:  act.Environ(os.Environ()),
	}
	stdout, stderr, exitCode, err := runner.Run(ctx, cmd)
	if err != nil {
		return nil, commandError(StageVerify, ErrVerify, cmd, stderr, exitCode, withContextCause(ctx, err))
	}
	return parsePackageList(stdout)
}

func parsePackageList(data []byte) ([]Package, error) {
	var pkgs []Package
	if err := json.Unmarshal(data, &pkgs); err != nil {
		return nil, fmt.Errorf("parse pip list output: %w", err)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		return manifest.Normalize(pkgs[i].Name) < manifest.Normalize(pkgs[j].Name)
	})
	return pkgs, nil
}

// Lookup returns the installed package with the given name, compared in
// normalized form.
func Lookup(pkgs []Package, name string) (Package, bool) {
	want := manifest.Normalize(name)
	for _, pkg := range pkgs {
		if manifest.Normalize(pkg.Name) == want {
			return pkg, true
		}
	}
	return Package{}, false
}

// MissingRequirements lists manifest names absent from pkgs, in manifest order.
func MissingRequirements(reqs []manifest.Requirement, pkgs []Package) []string {
	installed := make(map[string]struct{}, len(pkgs))
	for _, pkg := range pkgs {
		installed[manifest.Normalize(pkg.Name)] = struct{}{}
	}
	var missing []string
	seen := make(map[string]struct{})
	for _, req := range reqs {
		if _, ok := installed[req.Name]; ok {
			continue
		}
		if _, dup := seen[req.Name]; dup {
			continue
		}
		seen[req.Name] = struct{}{}
		missing = append(missing, req.Name)
	}
	return missing
}
