package proto

import (
	"testing"
	"time"

	"github.com/flashtool/stm32loader/catalog"
	"github.com/flashtool/stm32loader/config"
	"github.com/flashtool/stm32loader/link"
)

func newTestEngine(t *testing.T) (*Engine, *link.MockLink) {
	t.Helper()
	l := link.NewMockLink()
	if err := l.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	cfg := config.Defaults()
	cfg.ReadTimeout = time.Second
	return NewEngine(l, cfg, nil), l
}

func TestAutobaudThenGetID(t *testing.T) {
	e, l := newTestEngine(t)

	// ResetFromSystemMemory calls FlushInput (to discard boot noise)
	// before the autobaud write, and MockLink.FlushInput drops anything
	// already queued on FromTarget — so responses have to be scripted in
	// reaction to each write rather than pre-fed.
	writes := 0
	l.OnWrite = func(m *link.MockLink) {
		writes++
		switch writes {
		case 1: // autobaud byte 0x7F
			m.FromTarget = append(m.FromTarget, 0x79)
		case 2: // GetID opcode + checksum
			m.FromTarget = append(m.FromTarget, 0x79)             // opcode ack
			m.FromTarget = append(m.FromTarget, 0x01, 0x04, 0x40) // count + id bytes
			m.FromTarget = append(m.FromTarget, 0x79)             // terminating ack
		}
	}

	if err := e.ResetFromSystemMemory(); err != nil {
		t.Fatalf("ResetFromSystemMemory: %v", err)
	}
	id, err := e.GetID()
	if err != nil {
		t.Fatalf("GetID: %v", err)
	}
	if id != 0x440 {
		t.Fatalf("GetID = 0x%03X, want 0x440", id)
	}
	wantWire := []byte{0x7F, 0x02, 0xFD}
	if string(l.ToTarget) != string(wantWire) {
		t.Fatalf("wire bytes = % X, want % X", l.ToTarget, wantWire)
	}
}

func TestWriteMemoryWireFormat(t *testing.T) {
	e, l := newTestEngine(t)
	l.Feed([]byte{0x79}) // opcode ack
	l.Feed([]byte{0x79}) // address group ack
	l.Feed([]byte{0x79}) // data group ack

	if err := e.WriteMemory(0x08000000, []byte{0xAA, 0xBB, 0xCC, 0xFF}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}
	want := []byte{
		0x31, 0xCE, // opcode + checksum
		0x08, 0x00, 0x00, 0x00, 0x08, // address + checksum
		0x03, 0xAA, 0xBB, 0xCC, 0xFF, 0x03 ^ 0xAA ^ 0xBB ^ 0xCC ^ 0xFF, // length-1, data, checksum
	}
	if string(l.ToTarget) != string(want) {
		t.Fatalf("wire bytes = % X, want % X", l.ToTarget, want)
	}
}

func TestLegacyPageErase(t *testing.T) {
	e, l := newTestEngine(t)
	l.Feed([]byte{0x79}) // opcode ack
	l.Feed([]byte{0x79}) // group ack

	if err := e.Erase(catalog.DialectLegacy, []uint32{0, 2, 5}); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	want := []byte{0x43, 0xBC, 0x02, 0x00, 0x02, 0x05, 0x05}
	if string(l.ToTarget) != string(want) {
		t.Fatalf("wire bytes = % X, want % X", l.ToTarget, want)
	}
}

func TestExtendedMassErase(t *testing.T) {
	e, l := newTestEngine(t)
	l.Feed([]byte{0x79}) // opcode ack
	l.Feed([]byte{0x79}) // sentinel ack

	if err := e.Erase(catalog.DialectExtended, nil); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	want := []byte{0x44, 0xBB, 0xFF, 0xFF, 0x00}
	if string(l.ToTarget) != string(want) {
		t.Fatalf("wire bytes = % X, want % X", l.ToTarget, want)
	}
}

func TestLegacyEraseRejectsTooManyPages(t *testing.T) {
	e, _ := newTestEngine(t)
	pages := make([]uint32, maxLegacyPages+1)
	if err := e.Erase(catalog.DialectLegacy, pages); err == nil {
		t.Fatal("expected UnsupportedOperation, got nil")
	}
}

func TestEraseEmptyPageListIsInvalidArgument(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Erase(catalog.DialectLegacy, []uint32{}); err == nil {
		t.Fatal("expected InvalidArgument for empty (non-nil) page list, got nil")
	}
}

func TestReadoutUnprotectRequiresReactivation(t *testing.T) {
	e, l := newTestEngine(t)
	l.Feed([]byte{0x79}) // opcode ack
	l.Feed([]byte{0x79}) // terminating ack

	if err := e.ReadoutUnprotect(); err != nil {
		t.Fatalf("ReadoutUnprotect: %v", err)
	}
	wantSoFar := []byte{0x92, 0x6D}
	if string(l.ToTarget) != string(wantSoFar) {
		t.Fatalf("wire bytes after ReadoutUnprotect = % X, want % X", l.ToTarget, wantSoFar)
	}

	// Next command must reactivate with autobaud before anything else.
	l.Feed([]byte{0x79}) // autobaud ack
	l.Feed([]byte{0x79}) // GetVersion opcode ack
	l.Feed([]byte{0x10, 0x00, 0x00})
	l.Feed([]byte{0x79})

	if _, _, _, err := e.GetVersionAndReadProtectionStatus(); err != nil {
		t.Fatalf("GetVersionAndReadProtectionStatus: %v", err)
	}
	afterReactivation := l.ToTarget[len(wantSoFar):]
	if len(afterReactivation) == 0 || afterReactivation[0] != 0x7F {
		t.Fatalf("expected autobaud byte before next command, got % X", afterReactivation)
	}
}

func TestReadoutUnprotectReactivationFailsWithoutAutobaudResponse(t *testing.T) {
	e, l := newTestEngine(t)
	l.Feed([]byte{0x79})
	l.Feed([]byte{0x79})
	if err := e.ReadoutUnprotect(); err != nil {
		t.Fatalf("ReadoutUnprotect: %v", err)
	}

	// Target sends something other than an ACK in reply to the forced
	// autobaud byte: the reactivation must fail rather than silently
	// proceeding to GetID.
	l.Feed([]byte{0x00})
	if _, err := e.GetID(); err == nil {
		t.Fatal("expected reactivation failure, got nil")
	}
}

func TestReadMemoryLengthValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.ReadMemory(0x08000000, 0); err == nil {
		t.Fatal("expected InvalidArgument for length 0")
	}
	if _, err := e.ReadMemory(0x08000000, 257); err == nil {
		t.Fatal("expected InvalidArgument for length 257")
	}
}
