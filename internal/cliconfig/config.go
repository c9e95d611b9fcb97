package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/crc"
	"github.com/bft-labs/linkarq/pkg/linkarq"
)

// Config holds CLI configuration for linkarq.
type Config struct {
	// Engine
	Policy            string
	Window            int
	Modulus           uint64 // 0 picks the smallest valid modulus
	Generator         string
	Timeout           time.Duration
	MaxRetries        int
	NAK               bool
	BackoffMultiplier float64
	BackoffMax        time.Duration
	BackoffJitter     float64

	// Channel
	Loss          float64
	Corrupt       float64
	Duplicate     float64
	Burst         int
	Latency       time.Duration
	ChannelJitter time.Duration

	// Run
	Seed        int64
	ChunkSize   int
	Input       string // file to send, "-" for stdin, empty to generate
	Count       int
	PayloadSize int
	Store       string // bbolt file receiving deliveries
	Output      string // file receiving the delivered stream
	ReportDir   string
	Watch       bool
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	e := arq.DefaultConfig()
	return Config{
		Policy:      e.Policy.String(),
		Window:      e.WindowSize,
		Generator:   e.Generator.Name(),
		Timeout:     e.RetransmitTimeout,
		MaxRetries:  e.MaxRetries,
		Loss:        0.1,
		Latency:     2 * time.Millisecond,
		ChunkSize:   linkarq.DefaultChunkSize,
		Count:       100,
		PayloadSize: 256,
		LogLevel:    "info",
	}
}

// Validate checks the run settings. Engine and channel settings are
// checked by LinkConfig.
func (c *Config) Validate() error {
	if c.Input == "" {
		if c.Count <= 0 {
			return fmt.Errorf("count must be positive")
		}
		if c.PayloadSize <= 0 {
			return fmt.Errorf("payload size must be positive")
		}
	}
	if _, err := LevelOf(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LinkConfig converts the CLI configuration into a validated
// linkarq.Config. Generated payloads are sent one per frame, so without
// an input the chunk size is PayloadSize.
func (c *Config) LinkConfig() (linkarq.Config, error) {
	policy, err := arq.ParsePolicy(c.Policy)
	if err != nil {
		return linkarq.Config{}, err
	}
	gen, err := crc.Parse(c.Generator)
	if err != nil {
		return linkarq.Config{}, err
	}

	modulus := c.Modulus
	if modulus == 0 {
		modulus = arq.MinSequenceModulus(policy, c.Window)
	}

	chunk := c.ChunkSize
	if c.Input == "" && c.PayloadSize > 0 {
		chunk = c.PayloadSize
	}

	cfg := linkarq.Config{
		Engine: arq.Config{
			Policy:            policy,
			WindowSize:        c.Window,
			SequenceModulus:   modulus,
			Generator:         gen,
			RetransmitTimeout: c.Timeout,
			MaxRetries:        c.MaxRetries,
			NAK:               c.NAK,
			Backoff: arq.Backoff{
				Multiplier: c.BackoffMultiplier,
				MaxTimeout: c.BackoffMax,
				Jitter:     c.BackoffJitter,
			},
		},
		Channel:   c.Impairments(),
		Seed:      c.Seed,
		ChunkSize: chunk,
	}
	if err := cfg.Validate(); err != nil {
		return linkarq.Config{}, err
	}
	return cfg, nil
}

// Impairments returns the channel profile.
func (c *Config) Impairments() channel.Impairments {
	return channel.Impairments{
		LossRate:      c.Loss,
		CorruptRate:   c.Corrupt,
		DuplicateRate: c.Duplicate,
		BurstLength:   c.Burst,
		Latency:       c.Latency,
		Jitter:        c.ChannelJitter,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint64 sets a uint64 value if positive and flag not changed.
func (s *configSetter) setUint64(flag string, value uint64, dst *uint64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if non-zero and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloatPtr sets a float64 value, zero included, if present and flag not changed.
func (s *configSetter) setFloatPtr(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntPtr sets an int value, zero included, if present and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setUint64FromString parses a string to uint64 and sets the destination if valid.
func (s *configSetter) setUint64FromString(flag, value string, dst *uint64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = u
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination.
// Zero is accepted so a rate can be switched off.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f < 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

