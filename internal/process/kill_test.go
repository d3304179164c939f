package process

// Notes:
// - KillProcessGroup is only exercised with a PID that cannot exist. PID 0
//   would target the test's own process group, so real teardown is covered
//   by the kernel launcher integration tests.

import (
	"os/exec"
	"testing"
)

// ---------------------------------------------------------------------------
// TestKillProcessGroup - Invalid PID Handling
// ---------------------------------------------------------------------------

func TestKillProcessGroup_InvalidPID(t *testing.T) {
	t.Parallel()

	KillProcessGroup(999999999)
}

// ---------------------------------------------------------------------------
// TestDetach - Process group attributes
// ---------------------------------------------------------------------------

func TestDetach(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("jupyter", "server")
	Detach(cmd)
	if cmd.SysProcAttr == nil {
		t.Fatal("SysProcAttr not set")
	}

	// A second call keeps existing attributes.
	attr := cmd.SysProcAttr
	Detach(cmd)
	if cmd.SysProcAttr != attr {
		t.Error("Detach replaced existing SysProcAttr")
	}
}
