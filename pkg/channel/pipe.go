package channel

import (
	"container/heap"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/bft-labs/linkarq/pkg/log"
)

// ErrClosed is returned when reconfiguring a closed pipe.
var ErrClosed = errors.New("channel: pipe closed")

// Direction identifies one half of a duplex pipe.
type Direction int

const (
	AtoB Direction = iota
	BtoA
)

func (d Direction) String() string {
	if d == AtoB {
		return "a->b"
	}
	return "b->a"
}

// Verdict is the fate of one frame.
type Verdict int

const (
	Pass Verdict = iota
	Drop
	Corrupt
	Duplicate
)

// Filter decides the fate of individual frames, for scripted faults. It
// runs before the random impairments, which only apply to frames it
// passes. It is called with the pipe locked and must not use the pipe.
type Filter func(dir Direction, frame []byte) Verdict

// Stats counts frames seen by a pipe in both directions.
type Stats struct {
	Sent       uint64 `json:"sent"`
	Dropped    uint64 `json:"dropped"`
	Corrupted  uint64 `json:"corrupted"`
	Duplicated uint64 `json:"duplicated"`
	Delivered  uint64 `json:"delivered"`
}

// Pipe is an in-memory duplex link between endpoints A and B. Each
// direction has its own worker goroutine that hands frames to the
// registered arrival handler once their delivery time is reached.
type Pipe struct {
	mu      sync.Mutex
	rng     *rand.Rand
	imp     Impairments
	filter  Filter
	logger  log.Logger
	lanes   [2]*lane
	stats   Stats
	closed  bool
	counter uint64

	done chan struct{}
	wg   sync.WaitGroup
}

type lane struct {
	dir     Direction
	queue   deliveryQueue
	handler func([]byte)
	wake    chan struct{}
}

// Option configures a Pipe.
type Option func(*Pipe)

// WithImpairments sets the initial impairments.
func WithImpairments(imp Impairments) Option {
	return func(p *Pipe) { p.imp = imp }
}

// WithSeed makes the random impairments reproducible.
func WithSeed(seed int64) Option {
	return func(p *Pipe) { p.rng = rand.New(rand.NewSource(seed)) }
}

// WithFilter installs a scripted fault filter.
func WithFilter(f Filter) Option {
	return func(p *Pipe) { p.filter = f }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipe starts a pipe. Close must be called to stop its workers.
func NewPipe(opts ...Option) (*Pipe, error) {
	p := &Pipe{
		logger: log.NewNoopLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.imp.Validate(); err != nil {
		return nil, err
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for _, dir := range []Direction{AtoB, BtoA} {
		l := &lane{dir: dir, wake: make(chan struct{}, 1)}
		p.lanes[dir] = l
		p.wg.Add(1)
		go p.run(l)
	}
	return p, nil
}

// A returns endpoint A. Frames it sends travel A->B.
func (p *Pipe) A() *Endpoint { return &Endpoint{pipe: p, out: AtoB} }

// B returns endpoint B. Frames it sends travel B->A.
func (p *Pipe) B() *Endpoint { return &Endpoint{pipe: p, out: BtoA} }

// SetImpairments replaces the impairments for frames sent from now on.
func (p *Pipe) SetImpairments(imp Impairments) error {
	if err := imp.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.imp = imp
	p.logger.Info("channel impairments updated",
		log.Float64("loss", imp.LossRate),
		log.Float64("corrupt", imp.CorruptRate),
		log.Float64("duplicate", imp.DuplicateRate),
		log.Int("burst", imp.BurstLength),
		log.Duration("latency", imp.Latency),
		log.Duration("jitter", imp.Jitter),
	)
	return nil
}

// Impairments returns the current impairments.
func (p *Pipe) Impairments() Impairments {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imp
}

// Stats returns a snapshot of the counters.
func (p *Pipe) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close stops both workers and drops undelivered frames. It must not be
// called from an arrival handler.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pipe) send(dir Direction, frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stats.Sent++

	verdict := Pass
	if p.filter != nil {
		verdict = p.filter(dir, frame)
	}
	if verdict == Pass {
		verdict = p.roll()
	}

	switch verdict {
	case Drop:
		p.stats.Dropped++
		p.logger.Debug("frame dropped", log.String("dir", dir.String()), log.Int("bytes", len(frame)))
		return
	case Corrupt:
		frame = p.corrupt(frame)
		p.stats.Corrupted++
		p.logger.Debug("frame corrupted", log.String("dir", dir.String()), log.Int("bytes", len(frame)))
	}

	l := p.lanes[dir]
	p.enqueue(l, frame)
	if verdict == Duplicate {
		p.stats.Duplicated++
		p.enqueue(l, append([]byte(nil), frame...))
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (p *Pipe) roll() Verdict {
	switch {
	case p.imp.LossRate > 0 && p.rng.Float64() < p.imp.LossRate:
		return Drop
	case p.imp.CorruptRate > 0 && p.rng.Float64() < p.imp.CorruptRate:
		return Corrupt
	case p.imp.DuplicateRate > 0 && p.rng.Float64() < p.imp.DuplicateRate:
		return Duplicate
	}
	return Pass
}

// corrupt flips a burst of bits in a copy of frame.
func (p *Pipe) corrupt(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	nbits := len(out) * 8
	if nbits == 0 {
		return out
	}
	length := p.imp.BurstLength
	if length < 1 {
		length = 1
	}
	if length > nbits {
		length = nbits
	}
	start := p.rng.Intn(nbits - length + 1)
	end := start + length - 1
	for i := start; i <= end; i++ {
		if i == start || i == end || p.rng.Intn(2) == 1 {
			out[i/8] ^= 0x80 >> (i % 8)
		}
	}
	return out
}

func (p *Pipe) enqueue(l *lane, frame []byte) {
	delay := p.imp.Latency
	if p.imp.Jitter > 0 {
		delay += time.Duration(p.rng.Int63n(int64(p.imp.Jitter) + 1))
	}
	p.counter++
	heap.Push(&l.queue, &delivery{at: time.Now().Add(delay), order: p.counter, frame: frame})
}

func (p *Pipe) setHandler(dir Direction, h func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lanes[dir].handler = h
}

func (p *Pipe) run(l *lane) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		now := time.Now()
		var due []*delivery
		for l.queue.Len() > 0 && !l.queue[0].at.After(now) {
			due = append(due, heap.Pop(&l.queue).(*delivery))
		}
		wait := time.Duration(-1)
		if l.queue.Len() > 0 {
			wait = l.queue[0].at.Sub(now)
		}
		handler := l.handler
		p.mu.Unlock()

		if len(due) > 0 {
			for _, d := range due {
				select {
				case <-p.done:
					return
				default:
				}
				if handler == nil {
					continue
				}
				handler(d.frame)
				p.mu.Lock()
				p.stats.Delivered++
				p.mu.Unlock()
			}
			continue
		}

		var timeout <-chan time.Time
		var t *time.Timer
		if wait >= 0 {
			t = time.NewTimer(wait)
			timeout = t.C
		}
		select {
		case <-p.done:
			if t != nil {
				t.Stop()
			}
			return
		case <-l.wake:
		case <-timeout:
		}
		if t != nil {
			t.Stop()
		}
	}
}

type delivery struct {
	at    time.Time
	order uint64
	frame []byte
}

// deliveryQueue is a min-heap on (at, order).
type deliveryQueue []*delivery

func (q deliveryQueue) Len() int { return len(q) }
func (q deliveryQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].order < q[j].order
	}
	return q[i].at.Before(q[j].at)
}
func (q deliveryQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *deliveryQueue) Push(x any)  { *q = append(*q, x.(*delivery)) }
func (q *deliveryQueue) Pop() any {
	old := *q
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return d
}

// Endpoint is one side of a Pipe. It satisfies arq.Channel.
type Endpoint struct {
	pipe *Pipe
	out  Direction
}

// Send transmits frame toward the other endpoint.
func (e *Endpoint) Send(frame []byte) {
	e.pipe.send(e.out, frame)
}

// OnFrameArrival registers the handler for frames from the other endpoint.
func (e *Endpoint) OnFrameArrival(handler func(frame []byte)) {
	e.pipe.setHandler(1-e.out, handler)
}
