package venv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestActivateResolvesInterpreter(t *testing.T) {
	env := filepath.Join(t.TempDir(), "venv")
	if err := materializeEnv(env); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	act, err := Activate(env)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if act.Dir != env || act.BinDir != filepath.Join(env, "bin") {
		t.Fatalf("unexpected activation dirs: %+v", act)
	}
	if act.Python != filepath.Join(env, "bin", "python") {
		t.Fatalf("unexpected activation tools: %+v", act)
	}
}

func TestActivateMissingInterpreter(t *testing.T) {
	env := filepath.Join(t.TempDir(), "venv")
	if err := os.MkdirAll(env, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := Activate(env); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestActivateRejectsDirectoryInterpreter(t *testing.T) {
	env := filepath.Join(t.TempDir(), "venv")
	if err := os.MkdirAll(filepath.Join(env, "bin", "python"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := Activate(env); err == nil {
		t.Fatalf("expected error for directory interpreter")
	}
}

func TestEnvironPrependsBinAndSetsVirtualEnv(t *testing.T) {
	act := Activation{Dir: "/work/venv", BinDir: "/work/venv/bin"}
	base := []string{
		"HOME=/home/dev",
		"PATH=/usr/local/bin:/usr/bin",
		"VIRTUAL_ENV=/old/venv",
		"PYTHONHOME=/opt/python",
	}

	env := act.Environ(base)
	joined := strings.Join(env, "\n")
	if !strings.Contains(joined, "HOME=/home/dev") {
		t.Fatalf("expected unrelated vars kept: %q", joined)
	}
	if !strings.Contains(joined, "PATH=/work/venv/bin:/usr/local/bin:/usr/bin") {
		t.Fatalf("unexpected PATH: %q", joined)
	}
	if !strings.Contains(joined, "VIRTUAL_ENV=/work/venv") || strings.Contains(joined, "/old/venv") {
		t.Fatalf("unexpected VIRTUAL_ENV: %q", joined)
	}
	if strings.Contains(joined, "PYTHONHOME") {
		t.Fatalf("expected PYTHONHOME cleared: %q", joined)
	}
	if base[1] != "PATH=/usr/local/bin:/usr/bin" {
		t.Fatalf("base environment must not be mutated")
	}
}

func TestEnvironWithoutPath(t *testing.T) {
	act := Activation{Dir: "/work/venv", BinDir: "/work/venv/bin"}
	env := act.Environ(nil)
	if strings.Join(env, " ") != "VIRTUAL_ENV=/work/venv PATH=/work/venv/bin" {
		t.Fatalf("unexpected env: %q", env)
	}
}
