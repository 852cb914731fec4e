//go:build linux

package link

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// ioctl request numbers, carried over from the teacher's ioctl_linux.go:
// the fixed legacy termios requests are plain Linux magic numbers, and the
// termios2 requests are built with goioctl's IOR/IOW helpers the way the
// teacher builds them.
var (
	tcgets2 = ioctl.IOR('T', 0x2A, unsafe.Sizeof(Termios2{}))
	tcsets2 = ioctl.IOW('T', 0x2B, unsafe.Sizeof(Termios2{}))

	tcflsh = uintptr(0x540B)

	tiocmBis = uintptr(0x5416)
	tiocmBic = uintptr(0x5417)
)

const (
	// tcIFlush discards data received but not read — used by FlushInput
	// after the RESET pulse to drop boot noise.
	tcIFlush = 0
)
