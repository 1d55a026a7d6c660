// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

//go:build linux

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// Prepare puts cmd in its own process group and makes context cancellation
// kill the whole group. The returned func kills the group as well.
func Prepare(cmd *exec.Cmd) func() {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process)
	}
	return func() {
		_ = killGroup(cmd.Process)
	}
}

func killGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
