// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

//go:build !linux

package proc

import (
	"errors"
	"os"
	"os/exec"
)

// Prepare makes context cancellation kill the process. Child processes are
// not tracked on this platform.
func Prepare(cmd *exec.Cmd) func() {
	cmd.Cancel = func() error {
		return kill(cmd.Process)
	}
	return func() {
		_ = kill(cmd.Process)
	}
}

func kill(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
