// Package stmerr holds the error taxonomy shared by every other package in
// this module: link, frame, proto and xfer return errors from here instead
// of ad-hoc fmt.Errorf strings (xfer also passes through the context's error
// on cancellation), so callers can dispatch on type or with
// errors.Is/errors.As.
package stmerr

import (
	"errors"
	"fmt"
)

// ErrNack is returned (wrapped in a *Nack or directly) whenever the
// bootloader answers a command with 0x1F instead of 0x79.
var ErrNack = errors.New("bootloader nack")

// LinkError wraps an OS-level I/O failure from the byte link: a failed
// open, a write that didn't go through, a closed/broken file descriptor.
type LinkError struct {
	Op  string
	Err error
}

func (e *LinkError) Error() string {
	if e.Err == nil {
		return "link: " + e.Op
	}
	return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// TimeoutError is returned when a read fails to collect the requested
// number of bytes before its deadline. Any bytes collected so far are
// discarded by the caller; there is no partial-read API.
type TimeoutError struct {
	Wanted, Got int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("link: read timeout: wanted %d bytes, got %d", e.Wanted, e.Got)
}

// Nack reports that the bootloader answered a command with 0x1F.
type Nack struct {
	Context string
}

func (e *Nack) Error() string {
	if e.Context == "" {
		return "bootloader nack"
	}
	return "bootloader nack: " + e.Context
}

func (e *Nack) Unwrap() error { return ErrNack }

// ProtocolError reports a byte on the wire that was neither the expected
// value nor a NACK — a framing desync, noise, or a device that doesn't
// speak the protocol dialect assumed.
type ProtocolError struct {
	Expected, Got byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: expected 0x%02X, got 0x%02X", e.Expected, e.Got)
}

// BootloaderActivationError reports that the target never answered the
// autobaud byte after the retry. Cause, if non-nil, is the last underlying
// link/protocol error seen.
type BootloaderActivationError struct {
	Cause error
}

func (e *BootloaderActivationError) Error() string {
	msg := "bootloader activation failed: target did not respond to autobaud; " +
		"check BOOT0/RESET wiring and that system memory boot is selected"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BootloaderActivationError) Unwrap() error { return e.Cause }

// UnsupportedOperation reports that the requested operation cannot be
// performed by this device/dialect/catalog entry — e.g. a legacy-dialect
// erase asked to address more than 255 pages.
type UnsupportedOperation struct {
	Op string
}

func (e *UnsupportedOperation) Error() string {
	return "unsupported operation: " + e.Op
}

// UnknownFamily reports that the catalog has no family entry for a given
// product id, so family-gated introspection (flash size, UID) cannot be
// answered without guessing.
type UnknownFamily struct {
	ProductID uint16
}

func (e *UnknownFamily) Error() string {
	return fmt.Sprintf("unknown device family for product id 0x%03X", e.ProductID)
}

// InvalidArgument reports a caller mistake: an empty erase page list, an
// out-of-range read/write length, a zero-length image.
type InvalidArgument struct {
	Msg string
}

func (e *InvalidArgument) Error() string {
	return "invalid argument: " + e.Msg
}

// MismatchError reports the first point of divergence found by Verify.
type MismatchError struct {
	Offset           int
	Expected, Actual byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verify mismatch at offset %d: expected 0x%02X, got 0x%02X",
		e.Offset, e.Expected, e.Actual)
}
