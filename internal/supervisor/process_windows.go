//go:build windows

package supervisor

import (
	"os/exec"
	"time"
)

// configureProcAttr is a no-op on Windows; there is no process-group
// equivalent wired here.
func configureProcAttr(_ *exec.Cmd) {}

// gracefulKill on Windows has no graceful signal to send, so it kills
// immediately.
func gracefulKill(cmd *exec.Cmd, _ time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
