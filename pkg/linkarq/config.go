package linkarq

import (
	"fmt"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/frame"
)

// DefaultChunkSize is the segment size used by SendStream when
// Config.ChunkSize is zero.
const DefaultChunkSize = 1024

// Config holds the configuration of a Link.
type Config struct {
	// Engine configures both endpoints. They must agree on every field.
	Engine arq.Config

	// Channel is the initial impairment profile of the simulated link.
	Channel channel.Impairments

	// Seed makes channel impairments and retransmission jitter
	// reproducible. Zero picks a random seed.
	Seed int64

	// ChunkSize is the payload size SendStream cuts its input into.
	ChunkSize int
}

// DefaultConfig returns a Config with a perfect channel and the engine
// defaults.
func DefaultConfig() Config {
	return Config{
		Engine:    arq.DefaultConfig(),
		ChunkSize: DefaultChunkSize,
	}
}

// SetDefaults fills zero-valued fields that have a default.
func (c *Config) SetDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("linkarq: engine: %w", err)
	}
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("linkarq: channel: %w", err)
	}
	if c.ChunkSize < 1 || c.ChunkSize > frame.MaxPayload {
		return fmt.Errorf("linkarq: chunk size %d not in [1, %d]", c.ChunkSize, frame.MaxPayload)
	}
	return nil
}
