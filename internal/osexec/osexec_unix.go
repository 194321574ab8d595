//go:build !windows

package osexec

import (
	"os/exec"
	"syscall"
)

func disableInterruptSignal(c *exec.Cmd) {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}

	c.SysProcAttr.Setpgid = true
}
