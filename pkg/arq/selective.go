package arq

import "github.com/bft-labs/linkarq/pkg/frame"

// selectiveRepeat keeps one timer per outstanding frame and acknowledges
// frames individually. The receiver buffers any frame inside its window
// and delivers contiguous runs from the window base.
type selectiveRepeat struct {
	e       *Engine
	modulus uint64
	window  uint64

	rbase   uint64
	buffer  map[uint64][]byte
	nakFor  uint64
	nakSent bool
}

func newSelectiveRepeat(e *Engine) *selectiveRepeat {
	return &selectiveRepeat{
		e:       e,
		modulus: e.cfg.SequenceModulus,
		window:  uint64(e.cfg.WindowSize),
		buffer:  make(map[uint64][]byte, e.cfg.WindowSize),
	}
}

func (p *selectiveRepeat) afterTransmit(ent *sendEntry) {
	p.e.timers.schedule(ent.index, p.e.timeout(ent))
}

func (p *selectiveRepeat) onAck(seq uint32) {
	w := p.e.window
	idx, ok := w.resolve(seq)
	if !ok {
		p.e.stats.DuplicateAcks++
		return
	}
	ent := w.entry(idx)
	if ent.acked {
		p.e.stats.DuplicateAcks++
		return
	}
	ent.acked = true
	ent.raw = nil
	p.e.timers.cancel(idx)
	p.e.advanced(w.slide())
}

func (p *selectiveRepeat) onNak(seq uint32) {
	idx, ok := p.e.window.resolve(seq)
	if !ok {
		return
	}
	p.timeout(idx)
}

func (p *selectiveRepeat) onTimeout(key uint64) {
	p.timeout(key)
}

func (p *selectiveRepeat) timeout(idx uint64) {
	ent := p.e.window.entry(idx)
	if ent == nil || ent.acked {
		return
	}
	if p.e.retry(ent) {
		p.e.timers.schedule(idx, p.e.timeout(ent))
	}
}

func (p *selectiveRepeat) onData(f frame.Frame) [][]byte {
	e := p.e
	off := (uint64(f.Seq)%p.modulus + p.modulus - p.rbase%p.modulus) % p.modulus

	switch {
	case off < p.window:
		idx := p.rbase + off
		e.sendControl(frame.KindAck, f.Seq)
		if _, dup := p.buffer[idx]; dup {
			e.stats.Duplicates++
			return nil
		}
		p.buffer[idx] = f.Payload
		if off > 0 {
			e.stats.OutOfOrder++
			e.stats.Buffered++
			p.nak()
			return nil
		}

		var ready [][]byte
		for {
			payload, ok := p.buffer[p.rbase]
			if !ok {
				break
			}
			delete(p.buffer, p.rbase)
			ready = append(ready, payload)
			p.rbase++
		}
		e.stats.Delivered += uint64(len(ready))
		return ready

	case off >= p.modulus-p.window:
		// Already delivered; the sender may have missed our ACK.
		e.stats.Duplicates++
		e.sendControl(frame.KindAck, f.Seq)
		return nil

	default:
		e.stats.Discarded++
		return nil
	}
}

// onCorrupt NAKs only once DATA has arrived. The kind byte of a frame
// that failed its CRC cannot be trusted, so a corrupted frame on an
// endpoint that has never received DATA is taken to be an ACK for its
// sender half. A corrupted ACK on a two-way link still costs the peer a
// retransmission.
func (p *selectiveRepeat) onCorrupt() {
	if p.e.stats.DataReceived == 0 {
		return
	}
	p.nak()
}

func (p *selectiveRepeat) nak() {
	if !p.e.cfg.NAK || (p.nakSent && p.nakFor == p.rbase) {
		return
	}
	p.nakSent, p.nakFor = true, p.rbase
	p.e.sendControl(frame.KindNak, uint32(p.rbase%p.modulus))
}

func (p *selectiveRepeat) release() {
	p.buffer = make(map[uint64][]byte)
}
