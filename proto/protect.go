package proto

import (
	"github.com/flashtool/stm32loader/frame"
	"github.com/flashtool/stm32loader/stmerr"
)

// WriteProtect enables write protection on the given sector list (encoded
// the same way legacy Erase encodes a page list: N-1, indices, checksum).
// sectors must be non-empty and no longer than maxLegacyPages — the same
// one-byte-index-count ceiling eraseLegacy enforces, since the wire
// encoding is identical. Per spec this causes the bootloader to reset; the
// engine marks itself dirty so the next command re-runs autobaud first.
func (e *Engine) WriteProtect(sectors []uint32) error {
	if len(sectors) == 0 {
		return &stmerr.InvalidArgument{Msg: "write protect sector list must not be empty"}
	}
	if len(sectors) > maxLegacyPages {
		return &stmerr.UnsupportedOperation{Op: "write protect with more than 255 sectors"}
	}
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpWriteProtect); err != nil {
		return err
	}
	group := make([]byte, 0, len(sectors)+1)
	group = append(group, byte(len(sectors)-1))
	for _, s := range sectors {
		if s > 0xFF {
			return &stmerr.UnsupportedOperation{Op: "write protect sector index above 255"}
		}
		group = append(group, byte(s))
	}
	if err := e.sendGroup(group); err != nil {
		return err
	}
	e.markDirtyIfResetting(OpWriteProtect)
	return nil
}

// WriteUnprotect disables write protection. Takes no parameters; the
// bootloader answers with two ACKs (one for the opcode, one terminating)
// and then resets.
func (e *Engine) WriteUnprotect() error {
	return e.twoAckResettingCommand(OpWriteUnprotect)
}

// ReadoutProtect enables readout protection (RDP). Takes no parameters; two
// ACKs, then reset.
func (e *Engine) ReadoutProtect() error {
	return e.twoAckResettingCommand(OpReadoutProtect)
}

// ReadoutUnprotect disables readout protection. Takes no parameters; two
// ACKs, then reset. Per spec this also mass-erases flash as a side effect
// of lifting RDP — the engine does not perform a separate erase, that
// effect happens on the device itself.
func (e *Engine) ReadoutUnprotect() error {
	return e.twoAckResettingCommand(OpReadoutUnprotect)
}

func (e *Engine) twoAckResettingCommand(opcode byte) error {
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(opcode); err != nil {
		return err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), opcodeName(opcode)+" terminating"); err != nil {
		return err
	}
	e.markDirtyIfResetting(opcode)
	return nil
}
