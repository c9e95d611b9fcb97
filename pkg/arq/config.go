package arq

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/linkarq/pkg/crc"
)

// Policy selects the retransmission strategy.
type Policy int

const (
	// GoBackN uses cumulative acknowledgments and an in-order receiver.
	GoBackN Policy = iota
	// SelectiveRepeat uses individual acknowledgments and a buffering receiver.
	SelectiveRepeat
	// StopAndWait is Go-Back-N with a window of one frame.
	StopAndWait
)

var policyNames = []string{"go-back-n", "selective-repeat", "stop-and-wait"}

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("Policy(%d)", int(p))
	}
	return policyNames[p]
}

// ParsePolicy accepts the long names and the abbreviations gbn, sr and saw.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go-back-n", "gobackn", "gbn":
		return GoBackN, nil
	case "selective-repeat", "selectiverepeat", "sr":
		return SelectiveRepeat, nil
	case "stop-and-wait", "stopandwait", "saw":
		return StopAndWait, nil
	}
	return 0, &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown policy %q", s)}
}

// MaxSequenceModulus is bounded by the 32-bit sequence field on the wire.
const MaxSequenceModulus = uint64(1) << 32

// Config holds the engine configuration. Invalid combinations are
// rejected by Validate, never adjusted.
type Config struct {
	Policy Policy

	// WindowSize is the number of frames that may be outstanding at once.
	WindowSize int

	// SequenceModulus is N, the number of distinct sequence numbers.
	SequenceModulus uint64

	// Generator is the CRC polynomial shared by both ends of the link.
	Generator crc.Generator

	// RetransmitTimeout is the base retransmission timer.
	RetransmitTimeout time.Duration

	// MaxRetries bounds retransmissions per frame. A frame is transmitted
	// at most 1+MaxRetries times before the stream fails.
	MaxRetries int

	// NAK makes the receiver report corrupted or missing frames.
	NAK bool

	// Backoff scales RetransmitTimeout per attempt. The zero value keeps
	// the timeout fixed.
	Backoff Backoff
}

// DefaultConfig returns a Selective-Repeat configuration with CRC-16.
func DefaultConfig() Config {
	return Config{
		Policy:            SelectiveRepeat,
		WindowSize:        4,
		SequenceModulus:   8,
		Generator:         crc.CRC16,
		RetransmitTimeout: 200 * time.Millisecond,
		MaxRetries:        10,
	}
}

// MinSequenceModulus returns the smallest N that keeps old and new
// frames distinguishable for the given policy and window.
func MinSequenceModulus(p Policy, window int) uint64 {
	if window < 1 {
		return 0
	}
	switch p {
	case SelectiveRepeat:
		return 2 * uint64(window)
	default:
		return uint64(window) + 1
	}
}

// Validate checks the configuration and returns a *ConfigurationError.
func (c Config) Validate() error {
	switch c.Policy {
	case GoBackN, SelectiveRepeat, StopAndWait:
	default:
		return &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown policy %d", int(c.Policy))}
	}
	if c.WindowSize < 1 {
		return &ConfigurationError{Field: "window_size", Reason: "must be positive"}
	}
	if c.Policy == StopAndWait && c.WindowSize != 1 {
		return &ConfigurationError{Field: "window_size", Reason: fmt.Sprintf("stop-and-wait requires 1, got %d", c.WindowSize)}
	}
	if c.SequenceModulus > MaxSequenceModulus {
		return &ConfigurationError{Field: "sequence_modulus", Reason: fmt.Sprintf("%d exceeds %d", c.SequenceModulus, MaxSequenceModulus)}
	}
	if need := MinSequenceModulus(c.Policy, c.WindowSize); c.SequenceModulus < need {
		return &ConfigurationError{
			Field:  "sequence_modulus",
			Reason: fmt.Sprintf("%s with window %d needs at least %d, got %d", c.Policy, c.WindowSize, need, c.SequenceModulus),
		}
	}
	if c.Generator.IsZero() {
		return &ConfigurationError{Field: "generator", Reason: "must be set"}
	}
	if c.RetransmitTimeout <= 0 {
		return &ConfigurationError{Field: "retransmit_timeout", Reason: "must be positive"}
	}
	if c.MaxRetries < 1 {
		return &ConfigurationError{Field: "max_retries", Reason: "must be positive"}
	}
	return c.Backoff.Validate()
}
