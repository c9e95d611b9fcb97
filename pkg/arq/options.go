package arq

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/frame"
	"github.com/bft-labs/linkarq/pkg/log"
)

// TransmitEvent describes one frame handed to the channel.
type TransmitEvent struct {
	Stream     uuid.UUID
	Kind       frame.Kind
	Seq        uint32
	Index      uint64 // logical frame number, DATA only
	Attempt    int    // 1 for the first transmission, DATA only
	Retransmit bool
}

// Observer receives engine events. OnTransmit runs while the engine holds
// its lock and must return quickly without calling the engine.
type Observer interface {
	OnTransmit(ev TransmitEvent)
	OnDeliveryFailed(err *DeliveryFailedError)
}

type nopObserver struct{}

func (nopObserver) OnTransmit(TransmitEvent)               {}
func (nopObserver) OnDeliveryFailed(*DeliveryFailedError) {}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger   log.Logger
	observer Observer
	stream   uuid.UUID
	seed     int64
	seeded   bool
}

func defaultOptions() *options {
	return &options{
		logger:   log.NewNoopLogger(),
		observer: nopObserver{},
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithStreamID sets the stream identifier reported in errors and logs.
// A random one is generated by default.
func WithStreamID(id uuid.UUID) Option {
	return func(o *options) {
		o.stream = id
	}
}

// WithSeed makes retransmission jitter deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

func (o *options) rng() *rand.Rand {
	if o.seeded {
		return rand.New(rand.NewSource(o.seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}
