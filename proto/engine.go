// Package proto implements the Protocol Engine: bootloader activation and
// the full AN3155/AN4872 command set, built on top of the frame codec and
// the byte link. It owns the single firm invariant the spec calls out
// explicitly — that any command which resets the bootloader must be
// followed by a fresh autobaud handshake before the next command is
// issued — so callers never have to remember it themselves.
package proto

import (
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/flashtool/stm32loader/config"
	"github.com/flashtool/stm32loader/frame"
	"github.com/flashtool/stm32loader/link"
	"github.com/flashtool/stm32loader/stmerr"
)

// Engine drives a single ByteLink through the bootloader protocol. It is
// not safe for concurrent use: the spec requires the byte link be
// exclusively owned by the engine for the duration of any operation.
type Engine struct {
	link   link.ByteLink
	cfg    config.Connection
	log    *slog.Logger
	desc   Descriptor
	active bool // whether activation has ever succeeded
	dirty  bool // whether a reset-causing command was issued since last autobaud
}

// NewEngine constructs an Engine over an already-openable link. Open/Close
// of the link remains the caller's responsibility (see xfer.Orchestrator
// for the typical owning wrapper); logger may be nil, in which case
// slog.Default() is used.
func NewEngine(l link.ByteLink, cfg config.Connection, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{link: l, cfg: cfg.WithDefaults(), log: logger}
}

// Descriptor returns the device descriptor populated by the most recent
// successful activation/Get/GetID sequence. Its zero value before any
// activation has an empty Family and a false SupportedCommands bitset.
func (e *Engine) Descriptor() Descriptor { return e.desc }

func (e *Engine) timeout() time.Duration { return e.cfg.ReadTimeout }

// ResetFromSystemMemory asserts BOOT0, pulses RESET for at least 10ms,
// flushes the boot noise the reset produces, then runs autobaud. On NACK or
// timeout it retries the autobaud byte exactly once; if that also fails, it
// reports *stmerr.BootloaderActivationError.
func (e *Engine) ResetFromSystemMemory() error {
	if err := e.link.SetBoot0(true); err != nil {
		return err
	}
	if err := e.pulseReset(); err != nil {
		return err
	}
	if err := e.link.FlushInput(); err != nil {
		return err
	}
	if err := e.autobaud(); err != nil {
		e.log.Info("autobaud failed, retrying once", "err", err)
		if err2 := e.autobaud(); err2 != nil {
			return &stmerr.BootloaderActivationError{Cause: err2}
		}
	}
	e.active = true
	e.dirty = false
	e.log.Info("bootloader activated")
	return nil
}

// ResetFromFlash deasserts BOOT0 and pulses RESET so the target performs a
// normal boot from user flash. No ACK is expected — the bootloader is gone
// by the time this returns.
func (e *Engine) ResetFromFlash() error {
	if err := e.link.SetBoot0(false); err != nil {
		return err
	}
	return e.pulseReset()
}

func (e *Engine) pulseReset() error {
	if err := e.link.SetReset(true); err != nil {
		return err
	}
	time.Sleep(config.DefaultResetPulse)
	return e.link.SetReset(false)
}

// autobaud sends the single 0x7F byte and waits for ACK.
func (e *Engine) autobaud() error {
	if err := e.link.Write([]byte{autobaudByte}); err != nil {
		return err
	}
	return frame.ExpectAck(e.link, e.timeout(), "autobaud")
}

// reactivateIfNeeded re-runs autobaud if the previous command was one of
// the four that reset the bootloader. This is the firm invariant from §4.3:
// enforced here, centrally, not left to callers.
func (e *Engine) reactivateIfNeeded() error {
	if !e.dirty {
		return nil
	}
	e.log.Info("previous command reset the bootloader, reactivating")
	time.Sleep(config.DefaultResetSettle)
	if err := e.autobaud(); err != nil {
		return &stmerr.BootloaderActivationError{Cause: err}
	}
	e.dirty = false
	return nil
}

func (e *Engine) sendCommand(opcode byte) error {
	e.log.Debug("tx command", "opcode", opcodeName(opcode))
	if err := e.link.Write(frame.EncodeCommand(opcode)); err != nil {
		return err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), opcodeName(opcode)); err != nil {
		return err
	}
	e.log.Debug("rx ack", "opcode", opcodeName(opcode))
	return nil
}

func (e *Engine) sendGroup(payload []byte) error {
	e.log.Debug("tx group", "len", len(payload))
	if err := e.link.Write(frame.EncodePayload(payload)); err != nil {
		return err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), "parameter group"); err != nil {
		return err
	}
	e.log.Debug("rx ack", "context", "parameter group")
	return nil
}

// markDirtyIfResetting flags the engine as needing reactivation when
// opcode is one of the four bootloader-resetting commands.
func (e *Engine) markDirtyIfResetting(opcode byte) {
	if resetsBootloader[opcode] {
		e.log.Info("protection state command reset the bootloader", "opcode", opcodeName(opcode))
		e.dirty = true
	}
}

// Get issues opcode 0x00 and populates the descriptor's version and
// supported-command bitset. GetID should be called afterward to complete
// family inference.
func (e *Engine) Get() error {
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpGet); err != nil {
		return err
	}
	nb, err := e.link.ReadExact(1, e.timeout())
	if err != nil {
		return err
	}
	n := int(nb[0])
	rest, err := e.link.ReadExact(n+1, e.timeout())
	if err != nil {
		return err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), "Get"); err != nil {
		return err
	}
	e.desc.BootloaderVersion = rest[0]
	var cs CommandSet
	for _, op := range rest[1:] {
		cs.Set(op)
	}
	e.desc.SupportedCommands = cs
	e.desc.resolveFamily()
	return nil
}

// GetVersionAndReadProtectionStatus issues opcode 0x01 and returns the
// bootloader version plus the two option bytes (the second of which
// carries read-protection status).
func (e *Engine) GetVersionAndReadProtectionStatus() (version, option1, option2 byte, err error) {
	if err := e.reactivateIfNeeded(); err != nil {
		return 0, 0, 0, err
	}
	if err := e.sendCommand(OpGetVersion); err != nil {
		return 0, 0, 0, err
	}
	b, err := e.link.ReadExact(3, e.timeout())
	if err != nil {
		return 0, 0, 0, err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), "GetVersion"); err != nil {
		return 0, 0, 0, err
	}
	e.desc.BootloaderVersion = b[0]
	e.desc.ReadProtection = b[2]
	return b[0], b[1], b[2], nil
}

// GetID issues opcode 0x02, populates the descriptor's product id and
// resolves the device family, and returns the 12-bit product identifier.
func (e *Engine) GetID() (uint16, error) {
	if err := e.reactivateIfNeeded(); err != nil {
		return 0, err
	}
	if err := e.sendCommand(OpGetID); err != nil {
		return 0, err
	}
	nb, err := e.link.ReadExact(1, e.timeout())
	if err != nil {
		return 0, err
	}
	n := int(nb[0])
	idBytes, err := e.link.ReadExact(n+1, e.timeout())
	if err != nil {
		return 0, err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), "GetID"); err != nil {
		return 0, err
	}
	if len(idBytes) != 2 {
		return 0, &stmerr.ProtocolError{Expected: 2, Got: byte(len(idBytes))}
	}
	id := binary.BigEndian.Uint16(idBytes) & 0x0FFF
	e.desc.ProductID = id
	e.desc.resolveFamily()
	return id, nil
}

// ReadMemory reads length bytes (1..256) starting at address in a single
// protocol frame. Callers needing more than 256 bytes must chunk — see
// xfer.Orchestrator.ReadMemoryData.
func (e *Engine) ReadMemory(address uint32, length int) ([]byte, error) {
	if length < 1 || length > 256 {
		return nil, &stmerr.InvalidArgument{Msg: "read length must be in [1, 256]"}
	}
	if err := e.reactivateIfNeeded(); err != nil {
		return nil, err
	}
	if err := e.sendCommand(OpReadMemory); err != nil {
		return nil, err
	}
	addr := make([]byte, 4)
	binary.BigEndian.PutUint32(addr, address)
	if err := e.sendGroup(addr); err != nil {
		return nil, err
	}
	if err := e.sendGroup([]byte{byte(length - 1)}); err != nil {
		return nil, err
	}
	data, err := e.link.ReadExact(length, e.timeout())
	if err != nil {
		return nil, err
	}
	if err := frame.ExpectAck(e.link, e.timeout(), "ReadMemory data"); err != nil {
		return nil, err
	}
	e.log.Debug("rx data", "address", address, "length", length)
	return data, nil
}

// WriteMemory writes 1..256 bytes starting at address in a single protocol
// frame. Alignment/padding to ST's 4-byte convention is xfer's job, not the
// engine's — the engine sends exactly what it's given.
func (e *Engine) WriteMemory(address uint32, data []byte) error {
	if len(data) < 1 || len(data) > 256 {
		return &stmerr.InvalidArgument{Msg: "write length must be in [1, 256]"}
	}
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpWriteMemory); err != nil {
		return err
	}
	addr := make([]byte, 4)
	binary.BigEndian.PutUint32(addr, address)
	if err := e.sendGroup(addr); err != nil {
		return err
	}
	group := make([]byte, 0, len(data)+1)
	group = append(group, byte(len(data)-1))
	group = append(group, data...)
	e.log.Debug("tx data", "address", address, "length", len(data))
	return e.sendGroup(group)
}

// Go jumps to user code at address. The bootloader does not send anything
// further after the final ACK; the engine does not attempt to read more.
func (e *Engine) Go(address uint32) error {
	if err := e.reactivateIfNeeded(); err != nil {
		return err
	}
	if err := e.sendCommand(OpGo); err != nil {
		return err
	}
	addr := make([]byte, 4)
	binary.BigEndian.PutUint32(addr, address)
	return e.sendGroup(addr)
}

func opcodeName(opcode byte) string {
	switch opcode {
	case OpGet:
		return "Get"
	case OpGetVersion:
		return "GetVersion"
	case OpGetID:
		return "GetID"
	case OpReadMemory:
		return "ReadMemory"
	case OpGo:
		return "Go"
	case OpWriteMemory:
		return "WriteMemory"
	case OpErase:
		return "Erase"
	case OpExtendedErase:
		return "ExtendedErase"
	case OpWriteProtect:
		return "WriteProtect"
	case OpWriteUnprotect:
		return "WriteUnprotect"
	case OpReadoutProtect:
		return "ReadoutProtect"
	case OpReadoutUnprotect:
		return "ReadoutUnprotect"
	default:
		return "unknown"
	}
}
