// Package link implements the Byte Link component: opening and closing a
// serial connection to a target, reading an exact byte count under a
// deadline, writing raw bytes, and driving the two modem-control lines used
// to hold the target in RESET and request BOOT0. Everything above this
// package (frame, proto, xfer) talks to a ByteLink interface, never to a
// concrete transport, so the protocol engine is polymorphic over any
// implementer — including the in-memory fake used by this module's own
// tests.
package link

import (
	"time"

	"github.com/flashtool/stm32loader/config"
)

// ByteLink is the transport the Protocol Engine drives. Polarity (§3 of the
// spec) is resolved inside the implementation: SetReset/SetBoot0 always use
// logical active/true meaning "asserted", regardless of which physical
// signal level or which modem-control line carries it.
type ByteLink interface {
	// Open acquires the underlying transport. Must be called before any
	// other method.
	Open() error

	// Close releases the underlying transport. Idempotent.
	Close() error

	// ReadExact blocks until exactly n bytes have been read or timeout
	// elapses. On timeout it returns a *stmerr.TimeoutError and discards
	// any bytes already collected — there is no short-read result.
	ReadExact(n int, timeout time.Duration) ([]byte, error)

	// Write sends p in full or returns a *stmerr.LinkError.
	Write(p []byte) error

	// FlushInput discards any bytes currently buffered for read, without
	// blocking. Used after a RESET pulse to discard boot noise.
	FlushInput() error

	// SetReset asserts (true) or deasserts (false) the logical RESET
	// line.
	SetReset(active bool) error

	// SetBoot0 asserts (true) or deasserts (false) the logical BOOT0
	// line.
	SetBoot0(active bool) error
}

// Factory constructs a ByteLink for the named serial port and configuration.
// Implementations register themselves by platform build tag; see
// DefaultFactory (serial_linux.go) for the Linux termios/ioctl transport.
type Factory func(cfg config.Connection) ByteLink
