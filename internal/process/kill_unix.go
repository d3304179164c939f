//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Detach places the command in its own process group so the interpreter
// server and the kernels it forks can be torn down together.
func Detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup sends SIGKILL to the process group led by pid.
func KillProcessGroup(pid int) {
	// Best effort; the caller still kills the leader through exec.Cmd.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
