// Package xfer implements the Transfer Orchestrator: chunking arbitrary
// length reads and writes into protocol-sized (≤256 byte) frames, honoring
// ST's 4-byte write alignment convention, driving a verification read-back,
// and reporting progress — all without ever embedding UI concerns, per §9.
package xfer

import (
	"context"
	"log/slog"

	"github.com/flashtool/stm32loader/proto"
	"github.com/flashtool/stm32loader/stmerr"
)

// maxFrameLen is the largest payload a single Read/Write-Memory command
// can carry, per §3's invariant that lengths are transmitted as length−1
// in one byte.
const maxFrameLen = 256

// Progress is invoked once per protocol frame (≤256 bytes transferred)
// with cumulative bytes done and the operation's total. Implementations
// must not mutate engine state; a nil Progress is a valid no-op observer.
type Progress func(done, total int)

// Orchestrator wraps a *proto.Engine with the chunked, multi-frame
// operations §4.5 specifies.
type Orchestrator struct {
	engine *proto.Engine
	log    *slog.Logger
}

// NewOrchestrator constructs an Orchestrator over an already-activated
// engine. logger may be nil.
func NewOrchestrator(e *proto.Engine, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{engine: e, log: logger}
}

func report(p Progress, done, total int) {
	if p != nil {
		p(done, total)
	}
}

// ReadMemoryData reads length bytes starting at address, issuing as many
// ≤256-byte Read Memory frames as needed and concatenating the results. It
// fails fast: on any sub-chunk error, bytes already read are discarded and
// the error is returned. ctx is checked between chunks, not mid-frame, per
// the spec's "cooperative at frame boundaries" cancellation model.
func (o *Orchestrator) ReadMemoryData(ctx context.Context, address uint32, length int, progress Progress) ([]byte, error) {
	if length < 0 {
		return nil, &stmerr.InvalidArgument{Msg: "read length must not be negative"}
	}
	if length == 0 {
		return []byte{}, nil
	}
	out := make([]byte, 0, length)
	done := 0
	for done < length {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunkLen := length - done
		if chunkLen > maxFrameLen {
			chunkLen = maxFrameLen
		}
		data, err := o.engine.ReadMemory(address+uint32(done), chunkLen)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		done += chunkLen
		o.log.Debug("read chunk done", "address", address, "done", done, "total", length)
		report(progress, done, length)
	}
	return out, nil
}

// WriteMemoryData writes data starting at address, issuing as many
// ≤256-byte Write Memory frames as needed. Every frame's length is a
// multiple of 4 except possibly the very last, which is right-padded with
// 0xFF (the erased-flash value) up to the next multiple of 4 — safe
// because those pad bytes were never part of the caller's data and the
// region was presumed erased before writing. ctx is checked between
// chunks.
func (o *Orchestrator) WriteMemoryData(ctx context.Context, address uint32, data []byte, progress Progress) error {
	if len(data) == 0 {
		return &stmerr.InvalidArgument{Msg: "write data must not be empty"}
	}
	total := len(data)
	done := 0
	for done < total {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunkLen := total - done
		if chunkLen > maxFrameLen {
			chunkLen = maxFrameLen
		}
		chunk := data[done : done+chunkLen]
		if rem := len(chunk) % 4; rem != 0 {
			padded := make([]byte, len(chunk)+(4-rem))
			copy(padded, chunk)
			for i := len(chunk); i < len(padded); i++ {
				padded[i] = 0xFF
			}
			chunk = padded
		}
		if err := o.engine.WriteMemory(address+uint32(done), chunk); err != nil {
			return err
		}
		done += chunkLen
		o.log.Debug("write chunk done", "address", address, "done", done, "total", total)
		report(progress, done, total)
	}
	return nil
}

// EraseMemory routes through the dialect the engine's descriptor resolved
// (preferring extended when the device advertised opcode 0x44). pages ==
// nil requests a mass erase; an empty, non-nil slice is the caller's
// mistake.
func (o *Orchestrator) EraseMemory(pages []uint32) error {
	if pages == nil {
		o.log.Debug("mass erase")
	} else {
		o.log.Debug("page erase", "pages", len(pages))
	}
	return o.engine.Erase(o.engine.Descriptor().EraseDialect, pages)
}

// Verify reads back len(expected) bytes starting at address and compares
// byte-for-byte, returning the first point of divergence as a
// *stmerr.MismatchError, or nil if the ranges match exactly.
func (o *Orchestrator) Verify(ctx context.Context, address uint32, expected []byte) error {
	actual, err := o.ReadMemoryData(ctx, address, len(expected), nil)
	if err != nil {
		return err
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return &stmerr.MismatchError{Offset: i, Expected: expected[i], Actual: actual[i]}
		}
	}
	return nil
}
