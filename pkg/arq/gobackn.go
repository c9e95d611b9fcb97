package arq

import "github.com/bft-labs/linkarq/pkg/frame"

// windowTimer is the key of the single Go-Back-N timer. Logical indices
// never reach it.
const windowTimer = ^uint64(0)

// goBackN implements Go-Back-N and Stop-and-Wait. The sender keeps one
// timer for the oldest outstanding frame and acknowledgments are
// cumulative. The receiver accepts only the next expected frame.
type goBackN struct {
	e       *Engine
	modulus uint64
	window  uint64

	expected uint64
	nakFor   uint64
	nakSent  bool
}

func newGoBackN(e *Engine) *goBackN {
	return &goBackN{
		e:       e,
		modulus: e.cfg.SequenceModulus,
		window:  uint64(e.cfg.WindowSize),
	}
}

func (p *goBackN) afterTransmit(*sendEntry) {
	if !p.e.timers.pending(windowTimer) {
		p.restartTimer()
	}
}

// ACK(n) acknowledges n and everything before it.
func (p *goBackN) onAck(seq uint32) {
	w := p.e.window
	idx, ok := w.resolve(seq)
	if !ok {
		p.e.stats.DuplicateAcks++
		return
	}
	n := w.retireThrough(idx)
	p.restartTimer()
	p.e.advanced(n)
}

// NAK(n) acknowledges everything before n, then goes back to n.
func (p *goBackN) onNak(seq uint32) {
	w := p.e.window
	prev := uint32((uint64(seq)%p.modulus + p.modulus - 1) % p.modulus)
	if idx, ok := w.resolve(prev); ok {
		n := w.retireThrough(idx)
		p.restartTimer()
		p.e.advanced(n)
	}
	if idx, ok := w.resolve(seq); ok && idx == w.base {
		p.goBack()
	}
}

func (p *goBackN) onTimeout(uint64) {
	if p.e.window.outstanding() == 0 {
		return
	}
	p.goBack()
}

// goBack retransmits every outstanding frame in order.
func (p *goBackN) goBack() {
	w := p.e.window
	base := w.entry(w.base)
	if base == nil {
		return
	}
	if !p.e.retry(base) {
		return
	}
	for i := w.base + 1; i < w.next; i++ {
		if ent := w.entry(i); ent != nil {
			p.e.transmit(ent, true)
		}
	}
	p.e.timers.schedule(windowTimer, p.e.timeout(base))
}

func (p *goBackN) restartTimer() {
	w := p.e.window
	if w.outstanding() == 0 {
		p.e.timers.cancel(windowTimer)
		return
	}
	p.e.timers.schedule(windowTimer, p.e.timeout(w.entry(w.base)))
}

func (p *goBackN) onData(f frame.Frame) [][]byte {
	e := p.e
	if uint64(f.Seq) == p.expected%p.modulus {
		p.expected++
		e.stats.Delivered++
		e.sendControl(frame.KindAck, f.Seq)
		return [][]byte{f.Payload}
	}

	e.stats.Discarded++
	off := (uint64(f.Seq)%p.modulus + p.modulus - p.expected%p.modulus) % p.modulus
	if off >= p.window {
		e.stats.Duplicates++
	} else {
		e.stats.OutOfOrder++
		p.nak()
	}
	if p.expected > 0 {
		e.sendControl(frame.KindAck, uint32((p.expected-1)%p.modulus))
	}
	return nil
}

// onCorrupt NAKs only once DATA has arrived. The kind byte of a frame
// that failed its CRC cannot be trusted, so a corrupted frame on an
// endpoint that has never received DATA is taken to be an ACK for its
// sender half. A corrupted ACK on a two-way link still costs the peer a
// retransmission.
func (p *goBackN) onCorrupt() {
	if p.e.stats.DataReceived == 0 {
		return
	}
	p.nak()
}

// nak reports the expected frame missing, once per expected frame.
func (p *goBackN) nak() {
	if !p.e.cfg.NAK || (p.nakSent && p.nakFor == p.expected) {
		return
	}
	p.nakSent, p.nakFor = true, p.expected
	p.e.sendControl(frame.KindNak, uint32(p.expected%p.modulus))
}

func (p *goBackN) release() {}
