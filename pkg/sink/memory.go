package sink

import (
	"bytes"
	"sync"
)

// Memory collects delivered payloads in memory.
type Memory struct {
	mu       sync.Mutex
	payloads [][]byte
	size     int
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Deliver appends payload.
func (m *Memory) Deliver(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	m.size += len(payload)
}

// Len returns the number of payloads delivered.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

// Size returns the total number of payload bytes delivered.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Payloads returns the delivered payloads in order.
func (m *Memory) Payloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.payloads...)
}

// Bytes returns the concatenation of all payloads.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Join(m.payloads, nil)
}
