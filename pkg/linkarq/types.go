package linkarq

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/lifecycle"
	"github.com/bft-labs/linkarq/pkg/log"
)

// State is the lifecycle state of a Link.
type State = lifecycle.State

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateFailed   = lifecycle.StateFailed
)

// Lifecycle errors.
var (
	ErrNotRunning      = lifecycle.ErrNotRunning
	ErrAlreadyRunning  = lifecycle.ErrAlreadyRunning
	ErrShutdownTimeout = lifecycle.ErrShutdownTimeout
)

// ErrPluginFailed wraps the error of a plugin that failed to initialize.
var ErrPluginFailed = errors.New("linkarq: plugin failed")

// Stats is a snapshot of the counters of both endpoints and the channel.
type Stats struct {
	Stream   uuid.UUID     `json:"stream"`
	Sender   arq.Stats     `json:"sender"`
	Receiver arq.Stats     `json:"receiver"`
	Channel  channel.Stats `json:"channel"`
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DeliveryFailedEvent is emitted when the outbound stream exhausts the
// retry budget of a frame.
type DeliveryFailedEvent struct {
	Err *arq.DeliveryFailedError
}

// EventHandler receives Link events. Methods are called synchronously
// and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnDeliveryFailed(event DeliveryFailedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only some methods.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnDeliveryFailed(DeliveryFailedEvent) {}

// ChannelController adjusts the simulated channel of a running link.
type ChannelController interface {
	SetImpairments(imp channel.Impairments) error
	Impairments() channel.Impairments
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	StreamID uuid.UUID
	Channel  ChannelController
	Logger   log.Logger
}

// Plugin extends a Link. Plugins are initialized in registration order
// on Start and shut down in reverse order on Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
