//go:build windows

package main

// terminalWidth has no ioctl-based answer on windows here; 80 columns
// matches the fallback the unix build uses when stdout isn't a terminal.
func terminalWidth() int {
	return 80
}
