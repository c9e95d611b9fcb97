package arq

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConfiguration is wrapped by every *ConfigurationError.
	ErrConfiguration = errors.New("arq: invalid configuration")

	// ErrDeliveryFailed is wrapped by every *DeliveryFailedError.
	ErrDeliveryFailed = errors.New("arq: delivery failed")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("arq: engine closed")
)

// ConfigurationError reports an invalid configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("arq: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// DeliveryFailedError is the terminal error of a stream whose frame
// exhausted its retry budget. It is raised when a retransmission falls due
// after the frame's 1+MaxRetries-th transmission, so Attempts counts
// transmissions, not retries.
type DeliveryFailedError struct {
	Stream   uuid.UUID
	Sequence uint32
	Index    uint64
	Attempts int
}

func (e *DeliveryFailedError) Error() string {
	return fmt.Sprintf("arq: delivery failed: stream %s seq %d (frame %d) after %d transmissions",
		e.Stream, e.Sequence, e.Index, e.Attempts)
}

func (e *DeliveryFailedError) Unwrap() error { return ErrDeliveryFailed }
