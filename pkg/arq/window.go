package arq

// sendEntry is one outstanding DATA frame.
type sendEntry struct {
	index    uint64
	seq      uint32
	raw      []byte
	acked    bool
	attempts int
}

// sendWindow tracks outstanding frames by logical index. Indices in
// [base, next) are outstanding; next-base never exceeds size. Wire
// sequence numbers are index mod modulus.
type sendWindow struct {
	size    uint64
	modulus uint64
	base    uint64
	next    uint64
	entries map[uint64]*sendEntry
}

func newSendWindow(size int, modulus uint64) *sendWindow {
	return &sendWindow{
		size:    uint64(size),
		modulus: modulus,
		entries: make(map[uint64]*sendEntry, size),
	}
}

func (w *sendWindow) seqOf(index uint64) uint32 {
	return uint32(index % w.modulus)
}

func (w *sendWindow) full() bool { return w.next-w.base >= w.size }

func (w *sendWindow) outstanding() int { return int(w.next - w.base) }

func (w *sendWindow) push(e *sendEntry) {
	w.entries[e.index] = e
	w.next = e.index + 1
}

// resolve maps a wire sequence number to the outstanding index it names.
func (w *sendWindow) resolve(seq uint32) (uint64, bool) {
	off := (uint64(seq)%w.modulus + w.modulus - w.base%w.modulus) % w.modulus
	if off >= w.next-w.base {
		return 0, false
	}
	return w.base + off, true
}

func (w *sendWindow) entry(index uint64) *sendEntry {
	return w.entries[index]
}

// retireThrough acknowledges every outstanding index <= index and returns
// how many entries left the window.
func (w *sendWindow) retireThrough(index uint64) int {
	n := 0
	for w.base <= index && w.base < w.next {
		delete(w.entries, w.base)
		w.base++
		n++
	}
	return n
}

// slide advances base past contiguously acknowledged entries.
func (w *sendWindow) slide() int {
	n := 0
	for w.base < w.next {
		e := w.entries[w.base]
		if e == nil || !e.acked {
			break
		}
		delete(w.entries, w.base)
		w.base++
		n++
	}
	return n
}

func (w *sendWindow) release() {
	w.entries = make(map[uint64]*sendEntry)
	w.base = w.next
}
