package proto

import (
	"encoding/binary"

	"github.com/flashtool/stm32loader/catalog"
	"github.com/flashtool/stm32loader/frame"
	"github.com/flashtool/stm32loader/stmerr"
)

// maxLegacyPages is the largest page count the one-byte-indexed erase
// command can address: the index-count byte on the wire is N-1, so N tops
// out at 256, but the spec additionally caps callers at 255 to keep the
// count byte itself (0xFF) distinguishable from the mass-erase sentinel.
const maxLegacyPages = 255

// maxExtendedPages is the largest page count the two-byte-indexed extended
// erase command can address.
const maxExtendedPages = 65535

// Erase issues the erase command matching dialect. pages == nil requests a
// mass erase via the dialect's sentinel form; a non-nil empty slice is the
// caller's mistake (stmerr.InvalidArgument) — mass erase must be requested
// with nil, not ambiguously with an empty list.
func (e *Engine) Erase(dialect catalog.EraseDialect, pages []uint32) error {
	if pages != nil && len(pages) == 0 {
		return &stmerr.InvalidArgument{Msg: "erase page list must be nil (mass erase) or non-empty"}
	}
	if dialect == catalog.DialectLegacy {
		return e.eraseLegacy(pages)
	}
	return e.eraseExtended(pages)
}

func (e *Engine) eraseLegacy(pages []uint32) error {
	if len(pages) > maxLegacyPages {
		return &stmerr.UnsupportedOperation{Op: "legacy erase with more than 255 pages"}
	}
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpErase); err != nil {
		return err
	}
	if pages == nil {
		// Mass erase sentinel: 0xFF followed by its single-byte checksum
		// 0x00 (0xFF XOR 0xFF).
		return e.sendRaw([]byte{0xFF, 0x00})
	}
	group := make([]byte, 0, len(pages)+1)
	group = append(group, byte(len(pages)-1))
	for _, p := range pages {
		if p > 0xFF {
			return &stmerr.UnsupportedOperation{Op: "legacy erase page index above 255"}
		}
		group = append(group, byte(p))
	}
	return e.sendGroup(group)
}

func (e *Engine) eraseExtended(pages []uint32) error {
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpExtendedErase); err != nil {
		return err
	}
	if pages == nil {
		// Mass erase sentinel: 0xFF,0xFF followed by its checksum. XOR of
		// 0xFF,0xFF is 0x00; this is not computed through sendGroup
		// because the sentinel form isn't length-prefixed like the
		// page-list form.
		return e.sendRaw([]byte{0xFF, 0xFF, 0x00})
	}
	if len(pages) > maxExtendedPages {
		return &stmerr.UnsupportedOperation{Op: "extended erase with more than 65535 pages"}
	}
	group := make([]byte, 2, len(pages)*2+2)
	binary.BigEndian.PutUint16(group, uint16(len(pages)-1))
	for _, p := range pages {
		if p > 0xFFFF {
			return &stmerr.UnsupportedOperation{Op: "extended erase page index above 65535"}
		}
		idx := make([]byte, 2)
		binary.BigEndian.PutUint16(idx, uint16(p))
		group = append(group, idx...)
	}
	return e.sendGroup(group)
}

// sendRaw writes a fully-formed group (payload plus its already-computed
// trailing checksum byte) and waits for the terminating ACK — used for the
// mass-erase sentinel forms, which are written out literally rather than
// built as a length-prefixed page list.
func (e *Engine) sendRaw(group []byte) error {
	if err := e.link.Write(group); err != nil {
		return err
	}
	return frame.ExpectAck(e.link, e.timeout(), "mass erase")
}
