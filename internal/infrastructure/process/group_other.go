//go:build !unix

package process

import "os/exec"

func configureProcessGroup(c *exec.Cmd) {}

func exitCode(exitErr *exec.ExitError) int {
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
