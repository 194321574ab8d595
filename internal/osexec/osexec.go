// Package osexec provides small platform-specific helpers around os/exec
// that the rest of this module uses when spawning the syncer subprocess.
package osexec

import "os/exec"

// DisableInterruptSignal configures c so that a SIGINT delivered to this
// process's process group is not also delivered to c's child: the syncer
// must be allowed to finish writing its working directory even if the
// parent is interrupted mid-run.
func DisableInterruptSignal(c *exec.Cmd) {
	disableInterruptSignal(c)
}
