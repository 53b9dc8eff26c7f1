//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminalWidth reports the REPL's stdout column width via the same
// TIOCGWINSZ ioctl a terminal-aware CLI normally uses, falling back to
// 80 columns when stdout isn't a terminal (piped output, a test harness).
func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}
