//go:build !windows

package app

import (
	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"
)

// suspendScreen releases the terminal and stops the process until it is
// continued by the shell.
func suspendScreen(screen tcell.Screen) {
	if screen.Suspend() != nil {
		return
	}
	defer screen.Resume()

	_ = unix.Kill(unix.Getpid(), unix.SIGSTOP)
}
