//go:build !unix

package tools

import "os/exec"

func killProcessGroupOnCancel(cmd *exec.Cmd) {}
