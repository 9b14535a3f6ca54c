//go:build unix

package sandbox

import (
	"os/exec"
	"syscall"
)

// processExitCode reports a process killed by a signal as the negated signal number.
func processExitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return err.ExitCode()
}
