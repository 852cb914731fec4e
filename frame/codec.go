// Package frame implements the Frame Codec: the low-level building blocks
// that encode a command or payload with its XOR checksum and that wait for
// a single-byte ACK/NACK. It never interprets payload semantics — proto
// composes these primitives into the actual command set.
package frame

import (
	"time"

	"github.com/flashtool/stm32loader/link"
	"github.com/flashtool/stm32loader/stmerr"
)

// Ack and Nack are the two bytes the bootloader ever sends before data:
// 0x79 acknowledges, 0x1F rejects.
const (
	Ack  byte = 0x79
	Nack byte = 0x1F
)

// Checksum XOR-folds p. A single-byte payload's checksum is, by
// definition, that byte XOR 0xFF (equivalent to folding {b, 0xFF}); for any
// longer payload it is the XOR of every byte.
func Checksum(p []byte) byte {
	if len(p) == 1 {
		return p[0] ^ 0xFF
	}
	var sum byte
	for _, b := range p {
		sum ^= b
	}
	return sum
}

// EncodeCommand returns the two-byte command frame: opcode followed by its
// checksum (opcode XOR 0xFF, per the single-byte special case).
func EncodeCommand(opcode byte) []byte {
	return []byte{opcode, opcode ^ 0xFF}
}

// EncodePayload returns p with its XOR-fold checksum appended.
func EncodePayload(p []byte) []byte {
	out := make([]byte, len(p)+1)
	copy(out, p)
	out[len(p)] = Checksum(p)
	return out
}

// ExpectAck reads one byte and classifies it: nil on Ack, a *stmerr.Nack on
// Nack, a *stmerr.ProtocolError on anything else (including the timeout
// case, which is reported as a ProtocolError rather than surfacing the raw
// TimeoutError, since from the protocol's point of view "target went
// silent mid-handshake" and "target answered garbage" are both just "this
// wasn't an ACK").
func ExpectAck(l link.ByteLink, timeout time.Duration, context string) error {
	b, err := l.ReadExact(1, timeout)
	if err != nil {
		return &stmerr.ProtocolError{Expected: Ack, Got: 0x00}
	}
	switch b[0] {
	case Ack:
		return nil
	case Nack:
		return &stmerr.Nack{Context: context}
	default:
		return &stmerr.ProtocolError{Expected: Ack, Got: b[0]}
	}
}
