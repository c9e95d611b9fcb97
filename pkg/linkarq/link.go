package linkarq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/lifecycle"
	"github.com/bft-labs/linkarq/pkg/log"
)

// Link is a one-way reliable stream over a simulated lossy channel. The
// sending endpoint transmits what is given to Send; the receiving
// endpoint delivers it, in order and exactly once, to the consumer.
// Use New to create a Link, then Start to open it.
type Link struct {
	opts      options
	stream    uuid.UUID
	logger    log.Logger
	lifecycle *lifecycle.DefaultManager
	handler   EventHandler

	mu       sync.RWMutex
	cfg      Config
	pipe     *channel.Pipe
	sender   *arq.Engine
	receiver *arq.Engine
	started  []Plugin
}

// New creates a Link in StateStopped. Returns an error if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Link, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.stream == uuid.Nil {
		o.stream = uuid.New()
	}

	l := &Link{
		opts:    o,
		cfg:     cfg,
		stream:  o.stream,
		logger:  log.With(o.logger, log.String("stream", o.stream.String())),
		handler: o.eventHandler,
	}
	l.lifecycle = lifecycle.NewManager(l.logger, &eventEmitterWrapper{handler: o.eventHandler})
	return l, nil
}

// Start opens the channel and both endpoints, then initializes plugins.
// The link is Running when Start returns nil. Cancelling ctx tears the
// link down; call Stop to return it to StateStopped.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := l.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.lifecycle.SetCancel(cancel)

	pipe, sender, receiver, err := l.open()
	if err != nil {
		cancel()
		_ = l.lifecycle.TransitionTo(StateFailed, err.Error())
		return err
	}
	l.pipe, l.sender, l.receiver = pipe, sender, receiver
	l.started = l.started[:0]

	pluginCfg := PluginConfig{
		StreamID: l.stream,
		Channel:  l,
		Logger:   l.logger,
	}
	for _, p := range l.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			l.shutdownPlugins()
			closeAll(pipe, sender, receiver)
			_ = l.lifecycle.TransitionTo(StateFailed, "plugin init failed: "+p.Name())
			return fmt.Errorf("%w: %s: %w", ErrPluginFailed, p.Name(), err)
		}
		l.started = append(l.started, p)
		l.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	l.lifecycle.Go(func() {
		<-runCtx.Done()
		closeAll(pipe, sender, receiver)
	})

	return l.lifecycle.TransitionTo(StateRunning, "link open")
}

// open builds the channel and the two endpoints. The caller holds l.mu.
func (l *Link) open() (*channel.Pipe, *arq.Engine, *arq.Engine, error) {
	pipeOpts := []channel.Option{
		channel.WithImpairments(l.cfg.Channel),
		channel.WithLogger(log.With(l.logger, log.String("component", "channel"))),
	}
	if l.cfg.Seed != 0 {
		pipeOpts = append(pipeOpts, channel.WithSeed(l.cfg.Seed))
	}
	if l.opts.filter != nil {
		pipeOpts = append(pipeOpts, channel.WithFilter(l.opts.filter))
	}
	pipe, err := channel.NewPipe(pipeOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("linkarq: open channel: %w", err)
	}

	engineOpts := func(role string, seed int64) []arq.Option {
		opts := []arq.Option{
			arq.WithStreamID(l.stream),
			arq.WithLogger(log.With(l.opts.logger, log.String("endpoint", role))),
		}
		if l.cfg.Seed != 0 {
			opts = append(opts, arq.WithSeed(l.cfg.Seed+seed))
		}
		return opts
	}

	sender, err := arq.New(l.cfg.Engine, pipe.A(), nil,
		append(engineOpts("sender", 1), arq.WithObserver(&failureObserver{link: l}))...)
	if err != nil {
		_ = pipe.Close()
		return nil, nil, nil, fmt.Errorf("linkarq: open sender: %w", err)
	}
	receiver, err := arq.New(l.cfg.Engine, pipe.B(), l.opts.consumer, engineOpts("receiver", 2)...)
	if err != nil {
		_ = sender.Close()
		_ = pipe.Close()
		return nil, nil, nil, fmt.Errorf("linkarq: open receiver: %w", err)
	}
	return pipe, sender, receiver, nil
}

// Stop closes both endpoints and the channel, then shuts plugins down
// in reverse order. Frames not yet acknowledged are abandoned; call
// Flush first to wait for them. Returns ErrShutdownTimeout if teardown
// did not finish within lifecycle.ShutdownTimeout.
func (l *Link) Stop() error {
	l.mu.Lock()

	if !l.lifecycle.CanStop() {
		l.mu.Unlock()
		return ErrNotRunning
	}
	if err := l.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		l.mu.Unlock()
		return err
	}
	l.lifecycle.Cancel()
	l.mu.Unlock()

	err := l.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)

	l.mu.Lock()
	l.shutdownPlugins()
	l.mu.Unlock()

	if err != nil {
		_ = l.lifecycle.TransitionTo(StateFailed, "shutdown timeout")
		return err
	}
	_ = l.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	return nil
}

// shutdownPlugins shuts initialized plugins down in reverse order. The
// caller holds l.mu.
func (l *Link) shutdownPlugins() {
	ctx := context.Background()
	for i := len(l.started) - 1; i >= 0; i-- {
		p := l.started[i]
		if err := p.Shutdown(ctx); err != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			l.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	l.started = nil
}

// Status returns the current lifecycle state.
func (l *Link) Status() State {
	return l.lifecycle.State()
}

// StreamID returns the identifier of the outbound stream.
func (l *Link) StreamID() uuid.UUID { return l.stream }

// Send transmits payload, blocking while the send window is full.
func (l *Link) Send(ctx context.Context, payload []byte) error {
	sender, err := l.activeSender()
	if err != nil {
		return err
	}
	return sender.Send(ctx, payload)
}

// SendStream reads r to EOF and sends it in ChunkSize segments. It
// returns the number of bytes handed to the sender.
func (l *Link) SendStream(ctx context.Context, r io.Reader) (int64, error) {
	sender, err := l.activeSender()
	if err != nil {
		return 0, err
	}
	l.mu.RLock()
	size := l.cfg.ChunkSize
	l.mu.RUnlock()

	buf := make([]byte, size)
	var sent int64
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := sender.Send(ctx, buf[:n]); err != nil {
				return sent, err
			}
			sent += int64(n)
		}
		switch {
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			return sent, nil
		case rerr != nil:
			return sent, fmt.Errorf("linkarq: read stream: %w", rerr)
		}
	}
}

// Flush blocks until every payload passed to Send has been acknowledged.
func (l *Link) Flush(ctx context.Context) error {
	sender, err := l.activeSender()
	if err != nil {
		return err
	}
	return sender.Flush(ctx)
}

// Err returns the *arq.DeliveryFailedError of the outbound stream, or nil.
func (l *Link) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sender == nil {
		return nil
	}
	return l.sender.Err()
}

// Stats returns the counters of the last opened endpoints and channel.
func (l *Link) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{Stream: l.stream}
	if l.sender != nil {
		s.Sender = l.sender.Stats()
		s.Receiver = l.receiver.Stats()
		s.Channel = l.pipe.Stats()
	}
	return s
}

// Config returns the link configuration, including impairment changes
// made with SetImpairments.
func (l *Link) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// SetImpairments changes the channel profile. On a running link it
// applies to frames sent from now on; otherwise it takes effect on the
// next Start.
func (l *Link) SetImpairments(imp channel.Impairments) error {
	if err := imp.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pipe != nil && l.isOpen() {
		if err := l.pipe.SetImpairments(imp); err != nil && !errors.Is(err, channel.ErrClosed) {
			return err
		}
	}
	l.cfg.Channel = imp
	return nil
}

// Impairments returns the current channel profile.
func (l *Link) Impairments() channel.Impairments {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Channel
}

func (l *Link) activeSender() (*arq.Engine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sender == nil || !l.isOpen() {
		return nil, ErrNotRunning
	}
	return l.sender, nil
}

// isOpen reports whether the endpoints accept calls. A failed link
// stays open so callers can observe the delivery error.
func (l *Link) isOpen() bool {
	s := l.lifecycle.State()
	return s == StateStarting || s == StateRunning || s == StateFailed
}

func closeAll(pipe *channel.Pipe, engines ...*arq.Engine) {
	for _, e := range engines {
		_ = e.Close()
	}
	_ = pipe.Close()
}

// failureObserver moves the link to StateFailed when the outbound
// stream fails.
type failureObserver struct {
	link *Link
}

func (o *failureObserver) OnTransmit(arq.TransmitEvent) {}

func (o *failureObserver) OnDeliveryFailed(err *arq.DeliveryFailedError) {
	o.link.lifecycle.TransitionIf(StateRunning, StateFailed, err.Error())
	if o.link.handler != nil {
		o.link.handler.OnDeliveryFailed(DeliveryFailedEvent{Err: err})
	}
}

// eventEmitterWrapper adapts EventHandler to lifecycle.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
