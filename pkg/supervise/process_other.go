//go:build !unix

package supervise

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on platforms without process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// signalProcessGroup signals the child directly on non-Unix platforms.
func signalProcessGroup(cmd *exec.Cmd, sig os.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(sig)
}

// killProcessGroup kills the child directly on non-Unix platforms.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// interruptSignals returns the signals forwarded to the child.
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
