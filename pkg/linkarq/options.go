package linkarq

import (
	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/log"
)

// Option configures optional behavior of a Link.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	consumer     arq.Consumer
	stream       uuid.UUID
	filter       channel.Filter
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets the logger shared by the link, its engines and its
// channel. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for link events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the link starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithConsumer sets where the receiving endpoint delivers payloads.
// If not provided, delivered payloads are discarded.
func WithConsumer(consumer arq.Consumer) Option {
	return func(o *options) {
		o.consumer = consumer
	}
}

// WithStreamID fixes the stream identifier instead of generating one.
func WithStreamID(id uuid.UUID) Option {
	return func(o *options) {
		o.stream = id
	}
}

// WithChannelFilter installs a scripted fault injector on the channel.
func WithChannelFilter(f channel.Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}
