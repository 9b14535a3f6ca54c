//go:build !unix

package sandbox

import "os/exec"

func processExitCode(err *exec.ExitError) int {
	return err.ExitCode()
}
