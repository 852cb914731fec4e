package frame

import (
	"testing"
	"time"

	"github.com/flashtool/stm32loader/link"
	"github.com/flashtool/stm32loader/stmerr"
)

func TestEncodeCommandChecksum(t *testing.T) {
	cases := []struct {
		opcode byte
		want   byte
	}{
		{0x00, 0xFF},
		{0x7F, 0x80},
		{0x44, 0xBB},
		{0x92, 0x6D},
	}
	for _, c := range cases {
		got := EncodeCommand(c.opcode)
		if len(got) != 2 || got[0] != c.opcode || got[1] != c.want {
			t.Errorf("EncodeCommand(0x%02X) = % X, want [%02X %02X]", c.opcode, got, c.opcode, c.want)
		}
	}
}

func TestEncodePayloadRoundTrips(t *testing.T) {
	payloads := [][]byte{
		{0x08, 0x00, 0x00, 0x00},
		{0x00, 0x02, 0x05},
		{0xAA, 0xBB, 0xCC, 0xFF},
	}
	for _, p := range payloads {
		encoded := EncodePayload(p)
		if len(encoded) != len(p)+1 {
			t.Fatalf("EncodePayload(% X) length = %d, want %d", p, len(encoded), len(p)+1)
		}
		if string(encoded[:len(p)]) != string(p) {
			t.Errorf("EncodePayload(% X) payload = % X, want % X", p, encoded[:len(p)], p)
		}
		var want byte
		for _, b := range p {
			want ^= b
		}
		if encoded[len(p)] != want {
			t.Errorf("EncodePayload(% X) checksum = %02X, want %02X", p, encoded[len(p)], want)
		}
	}
}

func TestEncodePayloadSingleByteSpecialCase(t *testing.T) {
	for b := 0; b < 256; b++ {
		encoded := EncodePayload([]byte{byte(b)})
		want := byte(b) ^ 0xFF
		if encoded[1] != want {
			t.Fatalf("EncodePayload([%02X]) checksum = %02X, want %02X", b, encoded[1], want)
		}
	}
}

func TestExpectAck(t *testing.T) {
	l := link.NewMockLink()
	l.Open()
	l.Feed([]byte{Ack})
	if err := ExpectAck(l, time.Second, "test"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestExpectNack(t *testing.T) {
	l := link.NewMockLink()
	l.Open()
	l.Feed([]byte{Nack})
	err := ExpectAck(l, time.Second, "test")
	var nack *stmerr.Nack
	if err == nil {
		t.Fatal("expected Nack error, got nil")
	}
	if !asNack(err, &nack) {
		t.Fatalf("expected *stmerr.Nack, got %T: %v", err, err)
	}
}

func TestExpectAckGarbage(t *testing.T) {
	l := link.NewMockLink()
	l.Open()
	l.Feed([]byte{0x42})
	err := ExpectAck(l, time.Second, "test")
	pe, ok := err.(*stmerr.ProtocolError)
	if !ok {
		t.Fatalf("expected *stmerr.ProtocolError, got %T: %v", err, err)
	}
	if pe.Got != 0x42 || pe.Expected != Ack {
		t.Fatalf("unexpected ProtocolError fields: %+v", pe)
	}
}

func asNack(err error, target **stmerr.Nack) bool {
	if n, ok := err.(*stmerr.Nack); ok {
		*target = n
		return true
	}
	return false
}
