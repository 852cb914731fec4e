package link

import (
	"sync"
	"time"

	"github.com/flashtool/stm32loader/stmerr"
)

// MockLink is a hardware-free ByteLink: a pair of byte queues standing in
// for the serial wire, plus recorded RESET/BOOT0 line history. It exists so
// proto/xfer can be exercised deterministically against pre-fed responses
// (Feed) or an OnWrite responder without a real STM32,
// the same role the teacher's PTY helper served for its own package.
type MockLink struct {
	mu sync.Mutex

	// ToTarget receives bytes the engine under test writes.
	ToTarget []byte
	// FromTarget is consumed by ReadExact in write order.
	FromTarget []byte

	// ResetHistory/Boot0History record every SetReset/SetBoot0 call in
	// order, for asserting on the activation sequence.
	ResetHistory []bool
	Boot0History []bool

	opened bool
	closed bool

	// OnWrite, if set, is invoked synchronously after bytes are appended
	// to ToTarget — this is how a test drives FromTarget in response to
	// what the engine just sent.
	OnWrite func(l *MockLink)
}

func NewMockLink() *MockLink {
	return &MockLink{}
}

func (m *MockLink) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	m.closed = false
	return nil
}

func (m *MockLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockLink) Write(p []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return &stmerr.LinkError{Op: "write on closed link"}
	}
	m.ToTarget = append(m.ToTarget, p...)
	hook := m.OnWrite
	m.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return nil
}

func (m *MockLink) FlushInput() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FromTarget = nil
	return nil
}

func (m *MockLink) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.FromTarget) < n {
		got := len(m.FromTarget)
		m.FromTarget = nil
		return nil, &stmerr.TimeoutError{Wanted: n, Got: got}
	}
	out := m.FromTarget[:n]
	m.FromTarget = m.FromTarget[n:]
	return out, nil
}

func (m *MockLink) SetReset(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetHistory = append(m.ResetHistory, active)
	return nil
}

func (m *MockLink) SetBoot0(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Boot0History = append(m.Boot0History, active)
	return nil
}

// Feed appends bytes to FromTarget for a subsequent ReadExact to consume —
// used by tests that script a fixed response sequence rather than an
// OnWrite responder.
func (m *MockLink) Feed(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FromTarget = append(m.FromTarget, p...)
}
