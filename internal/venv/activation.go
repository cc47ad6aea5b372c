package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Activation is a resolved environment. It replaces shell activation: later
// steps receive it explicitly instead of reading ambient session state.
type Activation struct {
	Dir    string
	BinDir string
	Python string
}

// Activate resolves the interpreter inside envDir and checks that it exists.
func Activate(envDir string) (Activation, error) {
	dir, err := filepath.Abs(envDir)
	if err != nil {
		return Activation{}, err
	}
	bin := filepath.Join(dir, "bin")
	act := Activation{
		Dir:    dir,
		BinDir: bin,
		Python: filepath.Join(bin, "python"),
	}

	info, err := os.Stat(act.Python)
	if err != nil {
		return Activation{}, err
	}
	if info.IsDir() {
		return Activation{}, fmt.Errorf("interpreter path is a directory: %s", act.Python)
	}
	return act, nil
}

// Environ derives a child process environment from base with the environment
// active: VIRTUAL_ENV set, BinDir first on PATH, PYTHONHOME cleared.
func (a Activation) Environ(base []string) []string {
	path := ""
	out := make([]string, 0, len(base)+2)
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case "PATH":
			path = value
		case "VIRTUAL_ENV", "PYTHONHOME":
		default:
			out = append(out, kv)
		}
	}
	if path == "" {
		path = a.BinDir
	} else {
		path = a.BinDir + string(os.PathListSeparator) + path
	}
	return append(out, "VIRTUAL_ENV="+a.Dir, "PATH="+path)
}
