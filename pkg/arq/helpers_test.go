package arq

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/crc"
	"github.com/bft-labs/linkarq/pkg/frame"
)

type collector struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *collector) Deliver(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func (c *collector) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

type recordingObserver struct {
	mu       sync.Mutex
	events   []TransmitEvent
	failures []*DeliveryFailedError
}

func (o *recordingObserver) OnTransmit(ev TransmitEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) OnDeliveryFailed(err *DeliveryFailedError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, err)
}

func (o *recordingObserver) failureCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.failures)
}

// link is sender engine a and receiver engine b on one pipe.
type link struct {
	pipe *channel.Pipe
	a, b *Engine
	sink *collector
	obs  *recordingObserver
}

func (l *link) close() {
	l.a.Close()
	l.b.Close()
	l.pipe.Close()
}

func newLink(t *testing.T, cfg Config, pipeOpts ...channel.Option) *link {
	t.Helper()
	pipe, err := channel.NewPipe(pipeOpts...)
	require.NoError(t, err)

	l := &link{pipe: pipe, sink: &collector{}, obs: &recordingObserver{}}
	l.a, err = New(cfg, pipe.A(), nil, WithObserver(l.obs), WithSeed(1))
	require.NoError(t, err)
	l.b, err = New(cfg, pipe.B(), l.sink, WithSeed(2))
	require.NoError(t, err)
	return l
}

func testConfig(p Policy, window int, modulus uint64) Config {
	return Config{
		Policy:            p,
		WindowSize:        window,
		SequenceModulus:   modulus,
		Generator:         crc.CRC16,
		RetransmitTimeout: 100 * time.Millisecond,
		MaxRetries:        5,
	}
}

func payloads(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("payload-%03d", i))
	}
	return out
}

// dataLog records the sequence numbers of DATA frames leaving endpoint A.
type dataLog struct {
	mu    sync.Mutex
	codec *frame.Codec
	seqs  []uint32
}

func newDataLog(t *testing.T, g crc.Generator) *dataLog {
	c, err := frame.NewCodec(g)
	require.NoError(t, err)
	return &dataLog{codec: c}
}

// record returns the decoded frame if raw is an A->B DATA frame, and how
// many times its sequence number was seen before.
func (d *dataLog) record(dir channel.Direction, raw []byte) (frame.Frame, int, bool) {
	if dir != channel.AtoB {
		return frame.Frame{}, 0, false
	}
	f, err := d.codec.Decode(raw)
	if err != nil || f.Kind != frame.KindData {
		return frame.Frame{}, 0, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := 0
	for _, s := range d.seqs {
		if s == f.Seq {
			seen++
		}
	}
	d.seqs = append(d.seqs, f.Seq)
	return f, seen, true
}

func (d *dataLog) snapshot() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.seqs...)
}
