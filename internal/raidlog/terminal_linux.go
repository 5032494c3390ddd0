//go:build linux

package raidlog

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether out is a TTY, the same ioctl probe the
// teacher's internal/logger/terminal_linux.go performs before deciding to
// colorize output.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
