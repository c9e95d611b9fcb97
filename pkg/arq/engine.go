package arq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/frame"
	"github.com/bft-labs/linkarq/pkg/log"
)

// policy is the per-variant event handling. All methods run with the
// engine mutex held.
type policy interface {
	afterTransmit(ent *sendEntry)
	onAck(seq uint32)
	onNak(seq uint32)
	onTimeout(key uint64)
	onData(f frame.Frame) [][]byte
	onCorrupt()
	release()
}

// Engine is one endpoint of a link. Its sender half transmits the
// outbound stream given to Send; its receiver half delivers the inbound
// stream to the Consumer.
type Engine struct {
	cfg      Config
	codec    *frame.Codec
	ch       Channel
	consumer Consumer
	logger   log.Logger
	observer Observer
	stream   uuid.UUID

	mu      sync.Mutex
	rng     *rand.Rand
	state   SenderState
	window  *sendWindow
	timers  *timerSet
	policy  policy
	changed chan struct{}
	failed  *DeliveryFailedError
	notify  *DeliveryFailedError
	closed  bool
	stats   Stats

	// deliverMu is acquired before mu is released so consumer calls keep
	// the order in which payloads became ready.
	deliverMu sync.Mutex
}

// New validates cfg and returns an engine attached to ch. A nil consumer
// discards the inbound stream.
func New(cfg Config, ch Channel, consumer Consumer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, &ConfigurationError{Field: "channel", Reason: "must not be nil"}
	}
	codec, err := frame.NewCodec(cfg.Generator)
	if err != nil {
		return nil, &ConfigurationError{Field: "generator", Reason: err.Error()}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.stream == uuid.Nil {
		o.stream = uuid.New()
	}
	if consumer == nil {
		consumer = discardConsumer{}
	}

	e := &Engine{
		cfg:      cfg,
		codec:    codec,
		ch:       ch,
		consumer: consumer,
		observer: o.observer,
		stream:   o.stream,
		rng:      o.rng(),
		state:    StateIdle,
		window:   newSendWindow(cfg.WindowSize, cfg.SequenceModulus),
		changed:  make(chan struct{}),
	}
	e.logger = log.With(o.logger,
		log.String("stream", o.stream.String()),
		log.String("policy", cfg.Policy.String()),
	)
	e.timers = newTimerSet(e.onTimer)
	if cfg.Policy == SelectiveRepeat {
		e.policy = newSelectiveRepeat(e)
	} else {
		e.policy = newGoBackN(e)
	}

	ch.OnFrameArrival(e.handleFrame)

	e.logger.Debug("engine created",
		log.Int("window", cfg.WindowSize),
		log.Uint64("modulus", cfg.SequenceModulus),
		log.String("generator", cfg.Generator.String()),
		log.Duration("timeout", cfg.RetransmitTimeout),
		log.Int("max_retries", cfg.MaxRetries),
		log.Bool("nak", cfg.NAK),
	)
	return e, nil
}

// Send transmits payload as the next DATA frame. It blocks while the
// window is full and returns ctx.Err() if ctx ends first. After the
// stream failed it returns the *DeliveryFailedError.
func (e *Engine) Send(ctx context.Context, payload []byte) error {
	if len(payload) > frame.MaxPayload {
		return fmt.Errorf("arq: %w: %d bytes (max %d)", frame.ErrPayloadTooLarge, len(payload), frame.MaxPayload)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	for {
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		if e.failed != nil {
			err := e.failed
			e.mu.Unlock()
			return err
		}
		if !e.window.full() {
			break
		}
		wait := e.changed
		e.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	idx := e.window.next
	seq := e.window.seqOf(idx)
	raw, err := e.codec.EncodeBytes(frame.KindData, seq, payload)
	if err != nil {
		return err
	}
	ent := &sendEntry{index: idx, seq: seq, raw: raw}
	e.window.push(ent)
	e.transmit(ent, false)
	e.policy.afterTransmit(ent)
	e.updateState()
	return nil
}

// Flush blocks until every frame passed to Send has been acknowledged.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	for {
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		if e.failed != nil {
			err := e.failed
			e.mu.Unlock()
			return err
		}
		if e.window.outstanding() == 0 {
			e.mu.Unlock()
			return nil
		}
		wait := e.changed
		e.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
		e.mu.Lock()
	}
}

// Close stops all timers and releases buffered frames. Frames arriving
// afterwards are ignored and blocked callers return ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.timers.stopAll()
	e.window.release()
	e.policy.release()
	e.setState(StateClosed)
	e.signal()
	e.logger.Debug("engine closed")
	return nil
}

// Err returns the stream's *DeliveryFailedError, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed == nil {
		return nil
	}
	return e.failed
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// SenderState returns the sender half's state.
func (e *Engine) SenderState() SenderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Outstanding returns the number of unacknowledged frames.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.outstanding()
}

// StreamID returns the stream identifier.
func (e *Engine) StreamID() uuid.UUID { return e.stream }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// MaxPayload returns the largest payload Send accepts.
func (e *Engine) MaxPayload() int { return frame.MaxPayload }

func (e *Engine) handleFrame(raw []byte) {
	f, err := e.codec.Decode(raw)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if err != nil {
		e.reject(err)
		e.release(nil)
		return
	}

	var ready [][]byte
	switch f.Kind {
	case frame.KindData:
		e.stats.DataReceived++
		ready = e.policy.onData(f)
	case frame.KindAck:
		e.stats.AcksReceived++
		if e.failed == nil {
			e.policy.onAck(f.Seq)
		}
	case frame.KindNak:
		e.stats.NaksReceived++
		if e.failed == nil {
			e.policy.onNak(f.Seq)
		}
	}
	e.release(ready)
}

// reject absorbs a frame the codec refused. A corrupted frame counts as
// lost; malformed frames are dropped silently.
func (e *Engine) reject(err error) {
	if errors.Is(err, frame.ErrIntegrity) {
		e.stats.Corrupted++
		e.logger.Debug("discarding corrupted frame", log.Err(err))
		e.policy.onCorrupt()
		return
	}
	e.stats.Malformed++
	e.logger.Debug("discarding malformed frame", log.Err(err))
}

func (e *Engine) onTimer(key, gen uint64) {
	e.mu.Lock()
	if e.closed || e.failed != nil || !e.timers.claim(key, gen) {
		e.mu.Unlock()
		return
	}
	e.stats.Timeouts++
	e.policy.onTimeout(key)
	e.release(nil)
}

// release unlocks mu, then delivers ready payloads and reports a pending
// failure outside the state lock.
func (e *Engine) release(ready [][]byte) {
	failed := e.notify
	e.notify = nil

	if len(ready) == 0 {
		e.mu.Unlock()
	} else {
		e.deliverMu.Lock()
		e.mu.Unlock()
		for _, payload := range ready {
			e.consumer.Deliver(payload)
		}
		e.deliverMu.Unlock()
	}

	if failed != nil {
		e.logger.Error("delivery failed",
			log.Uint32("seq", failed.Sequence),
			log.Uint64("frame", failed.Index),
			log.Int("attempts", failed.Attempts),
		)
		e.observer.OnDeliveryFailed(failed)
	}
}

func (e *Engine) transmit(ent *sendEntry, retransmit bool) {
	ent.attempts++
	if retransmit {
		e.stats.Retransmissions++
		e.logger.Debug("retransmit",
			log.Uint32("seq", ent.seq),
			log.Uint64("frame", ent.index),
			log.Int("attempt", ent.attempts),
		)
	} else {
		e.stats.DataSent++
	}
	e.ch.Send(append([]byte(nil), ent.raw...))
	e.observer.OnTransmit(TransmitEvent{
		Stream:     e.stream,
		Kind:       frame.KindData,
		Seq:        ent.seq,
		Index:      ent.index,
		Attempt:    ent.attempts,
		Retransmit: retransmit,
	})
}

// retry retransmits ent, or fails the stream if ent has used its budget.
func (e *Engine) retry(ent *sendEntry) bool {
	if ent.attempts > e.cfg.MaxRetries {
		e.fail(ent)
		return false
	}
	e.transmit(ent, true)
	return true
}

func (e *Engine) fail(ent *sendEntry) {
	err := &DeliveryFailedError{
		Stream:   e.stream,
		Sequence: ent.seq,
		Index:    ent.index,
		Attempts: ent.attempts,
	}
	e.failed = err
	e.notify = err
	e.timers.stopAll()
	e.setState(StateFailed)
	e.signal()
}

func (e *Engine) sendControl(kind frame.Kind, seq uint32) {
	raw, err := e.codec.EncodeBytes(kind, seq, nil)
	if err != nil {
		e.logger.Error("encode control frame", log.String("kind", kind.String()), log.Err(err))
		return
	}
	if kind == frame.KindAck {
		e.stats.AcksSent++
	} else {
		e.stats.NaksSent++
	}
	e.ch.Send(raw)
	e.observer.OnTransmit(TransmitEvent{Stream: e.stream, Kind: kind, Seq: seq})
}

func (e *Engine) timeout(ent *sendEntry) time.Duration {
	attempts := 1
	if ent != nil {
		attempts = ent.attempts
	}
	return e.cfg.Backoff.Timeout(e.cfg.RetransmitTimeout, attempts, e.rng)
}

// advanced is called after n frames left the send window.
func (e *Engine) advanced(n int) {
	if n == 0 {
		return
	}
	e.updateState()
	e.signal()
}

func (e *Engine) updateState() {
	if e.closed || e.failed != nil {
		return
	}
	if e.window.outstanding() > 0 {
		e.setState(StateAwaitingAck)
	} else {
		e.setState(StateIdle)
	}
}

func (e *Engine) setState(s SenderState) {
	if s == e.state {
		return
	}
	if !canTransition(e.state, s) {
		e.logger.Warn("invalid sender state transition",
			log.String("from", e.state.String()),
			log.String("to", s.String()),
		)
		return
	}
	e.state = s
}

// signal wakes callers blocked in Send or Flush.
func (e *Engine) signal() {
	close(e.changed)
	e.changed = make(chan struct{})
}
