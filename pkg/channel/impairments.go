package channel

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidImpairments is returned for out-of-range impairment settings.
var ErrInvalidImpairments = errors.New("channel: invalid impairments")

// Impairments describes how a Pipe mistreats frames. Each probability is
// drawn independently per frame: loss first, then corruption, then
// duplication.
type Impairments struct {
	LossRate      float64
	CorruptRate   float64
	DuplicateRate float64

	// BurstLength is the span of a corruption in bits. The first and last
	// bit of the span are always flipped. Zero means a single bit.
	BurstLength int

	// Latency delays every frame. Jitter adds a uniform extra delay in
	// [0, Jitter], which can reorder frames.
	Latency time.Duration
	Jitter  time.Duration
}

// Validate checks that rates are probabilities and durations are not negative.
func (i Impairments) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"loss", i.LossRate},
		{"corrupt", i.CorruptRate},
		{"duplicate", i.DuplicateRate},
	}
	for _, r := range rates {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("%w: %s rate %g not in [0, 1]", ErrInvalidImpairments, r.name, r.v)
		}
	}
	if i.BurstLength < 0 {
		return fmt.Errorf("%w: burst length %d is negative", ErrInvalidImpairments, i.BurstLength)
	}
	if i.Latency < 0 || i.Jitter < 0 {
		return fmt.Errorf("%w: latency and jitter must not be negative", ErrInvalidImpairments)
	}
	return nil
}

// Perfect reports whether the impairments leave frames untouched.
func (i Impairments) Perfect() bool {
	return i == Impairments{}
}

// FileImpairments is the [channel] table of a TOML configuration file.
// Durations are strings such as "5ms".
type FileImpairments struct {
	Loss      *float64 `toml:"loss"`
	Corrupt   *float64 `toml:"corrupt"`
	Duplicate *float64 `toml:"duplicate"`
	Burst     *int     `toml:"burst"`
	Latency   *string  `toml:"latency"`
	Jitter    *string  `toml:"jitter"`
}

// Apply overlays the fields present in f onto base.
func (f FileImpairments) Apply(base Impairments) (Impairments, error) {
	out := base
	if f.Loss != nil {
		out.LossRate = *f.Loss
	}
	if f.Corrupt != nil {
		out.CorruptRate = *f.Corrupt
	}
	if f.Duplicate != nil {
		out.DuplicateRate = *f.Duplicate
	}
	if f.Burst != nil {
		out.BurstLength = *f.Burst
	}
	if f.Latency != nil {
		d, err := time.ParseDuration(*f.Latency)
		if err != nil {
			return base, fmt.Errorf("%w: latency: %v", ErrInvalidImpairments, err)
		}
		out.Latency = d
	}
	if f.Jitter != nil {
		d, err := time.ParseDuration(*f.Jitter)
		if err != nil {
			return base, fmt.Errorf("%w: jitter: %v", ErrInvalidImpairments, err)
		}
		out.Jitter = d
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// Without returns f with the named keys ("loss", "latency", ...)
// removed, so Apply leaves those fields of the base alone.
func (f FileImpairments) Without(keys map[string]bool) FileImpairments {
	if keys["loss"] {
		f.Loss = nil
	}
	if keys["corrupt"] {
		f.Corrupt = nil
	}
	if keys["duplicate"] {
		f.Duplicate = nil
	}
	if keys["burst"] {
		f.Burst = nil
	}
	if keys["latency"] {
		f.Latency = nil
	}
	if keys["jitter"] {
		f.Jitter = nil
	}
	return f
}

type impairmentsFile struct {
	Channel FileImpairments `toml:"channel"`
}

// ReadImpairmentsFile decodes the [channel] table of a TOML file.
// Only the keys present in the table are set.
func ReadImpairmentsFile(path string) (FileImpairments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileImpairments{}, fmt.Errorf("read impairments file: %w", err)
	}
	var f impairmentsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return FileImpairments{}, fmt.Errorf("parse impairments file: %w", err)
	}
	return f.Channel, nil
}

// LoadImpairmentsFile reads the [channel] table from a TOML file. Keys
// missing from the table keep their zero value.
func LoadImpairmentsFile(path string) (Impairments, error) {
	f, err := ReadImpairmentsFile(path)
	if err != nil {
		return Impairments{}, err
	}
	return f.Apply(Impairments{})
}
