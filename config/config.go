// Package config describes the connection configuration boundary between
// this module's core and whatever front end constructs one (a CLI flag
// parser, a test harness, a GUI). Nothing in this package reads flags,
// environment variables, or files: it is a plain data struct plus its
// documented defaults.
package config

import "time"

// Parity selects the UART parity bit the bootloader expects. STM32 parts
// speak AN3155 (even parity); BlueNRG parts speak AN4872 (no parity).
type Parity int

const (
	ParityEven Parity = iota
	ParityNone
)

func (p Parity) String() string {
	if p == ParityNone {
		return "none"
	}
	return "even"
}

// ResetPolarity describes whether RESET is asserted by driving the
// underlying modem-control signal high or low. Its zero value,
// ResetActiveLow, is the documented default, so a zero-valued Connection
// already asserts RESET the conventional way.
type ResetPolarity bool

const (
	ResetActiveLow  ResetPolarity = false
	ResetActiveHigh ResetPolarity = true
)

// Boot0Polarity describes whether BOOT0 is asserted by driving the
// underlying modem-control signal high or low. Its zero value,
// Boot0ActiveHigh, is the documented default — the boolean encoding is
// deliberately the mirror of ResetPolarity's (false means "active high"
// here, not "active low") so that, like ResetPolarity, a zero-valued
// Connection already asserts BOOT0 the conventional way instead of
// needing WithDefaults to special-case it.
type Boot0Polarity bool

const (
	Boot0ActiveHigh Boot0Polarity = false
	Boot0ActiveLow  Boot0Polarity = true
)

const (
	// DefaultBaud is the rate AN3155 specifies for autobaud negotiation
	// once the host has picked a rate; 115200 is the common default used
	// by every stm32loader-style tool in practice.
	DefaultBaud = 115200

	// DefaultReadTimeout bounds a single ReadExact call.
	DefaultReadTimeout = 5 * time.Second

	// DefaultResetPulse is how long RESET is held asserted during
	// activation; AN3155 only requires "a few ms", 10ms is the
	// conventional safety margin.
	DefaultResetPulse = 10 * time.Millisecond

	// DefaultResetSettle is the minimum wait after a bootloader-resetting
	// command (Write Protect, Write Unprotect, Readout Protect/Unprotect)
	// before re-running autobaud.
	DefaultResetSettle = 25 * time.Millisecond
)

// Connection is the immutable-after-open configuration for a single
// bootloader session. It is the struct form of the CLI flag set described
// in spec section 6 (--port, --baud, --parity, --swap-rts-dtr,
// --reset-active-high, --boot0-active-low); this module does not parse
// those flags itself.
type Connection struct {
	// Port is the OS device path, e.g. "/dev/ttyUSB0".
	Port string

	// Baud is the UART rate. Zero means DefaultBaud.
	Baud int

	// Parity selects STM32 (even) or BlueNRG (none) framing.
	Parity Parity

	// ResetPolarity is the logical level that asserts RESET.
	ResetPolarity ResetPolarity

	// Boot0Polarity is the logical level that asserts BOOT0.
	Boot0Polarity Boot0Polarity

	// SwapRTSDTR exchanges which physical modem-control line (DTR/RTS)
	// drives RESET vs BOOT0. Does not alter logical active/inactive
	// semantics seen by callers.
	SwapRTSDTR bool

	// ReadTimeout bounds every ReadExact call. Zero means
	// DefaultReadTimeout.
	ReadTimeout time.Duration
}

// WithDefaults returns a copy of c with zero-valued fields replaced by
// documented defaults. Parity and both Polarity fields are not defaulted
// here because their zero values (ParityEven, ResetActiveLow,
// Boot0ActiveHigh) already are the documented defaults.
func (c Connection) WithDefaults() Connection {
	out := c
	if out.Baud == 0 {
		out.Baud = DefaultBaud
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	return out
}

// Defaults returns the zero-port Connection carrying every documented
// default, suitable as a starting point for a front end to override.
func Defaults() Connection {
	return Connection{
		Baud:          DefaultBaud,
		Parity:        ParityEven,
		ResetPolarity: ResetActiveLow,
		Boot0Polarity: Boot0ActiveHigh,
		ReadTimeout:   DefaultReadTimeout,
	}
}
