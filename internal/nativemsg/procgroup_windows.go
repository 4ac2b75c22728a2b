//go:build windows

package nativemsg

import (
	"os/exec"
)

func hostArgs(origin string) []string {
	return []string{origin, "--parent-window=0"}
}

func setProcessGroup(cmd *exec.Cmd) {
	// Windows doesn't support Unix-style process groups via SysProcAttr.Setpgid.
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Kill()
	return nil
}
