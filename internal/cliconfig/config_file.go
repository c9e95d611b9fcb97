package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/linkarq/pkg/channel"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LogLevel string                  `toml:"log_level"`
	Seed     int64                   `toml:"seed"`
	ARQ      ARQFileConfig           `toml:"arq"`
	Channel  channel.FileImpairments `toml:"channel"`
	Run      RunFileConfig           `toml:"run"`
}

// ARQFileConfig is the [arq] table.
type ARQFileConfig struct {
	Policy            string  `toml:"policy"`
	Window            int     `toml:"window"`
	Modulus           uint64  `toml:"modulus"`
	Generator         string  `toml:"generator"`
	Timeout           string  `toml:"timeout"`
	MaxRetries        int     `toml:"max_retries"`
	NAK               *bool   `toml:"nak"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	BackoffMax        string  `toml:"backoff_max"`
	BackoffJitter     float64 `toml:"backoff_jitter"`
}

// RunFileConfig is the [run] table.
type RunFileConfig struct {
	Input       string `toml:"input"`
	Count       int    `toml:"count"`
	PayloadSize int    `toml:"payload_size"`
	ChunkSize   int    `toml:"chunk_size"`
	Store       string `toml:"store"`
	Output      string `toml:"output"`
	ReportDir   string `toml:"report_dir"`
	Watch       *bool  `toml:"watch"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.linkarq/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".linkarq", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setInt64("seed", fc.Seed, &cfg.Seed)

	s.setString("policy", fc.ARQ.Policy, &cfg.Policy)
	s.setInt("window", fc.ARQ.Window, &cfg.Window)
	s.setUint64("modulus", fc.ARQ.Modulus, &cfg.Modulus)
	s.setString("generator", fc.ARQ.Generator, &cfg.Generator)
	s.setInt("max-retries", fc.ARQ.MaxRetries, &cfg.MaxRetries)
	s.setBool("nak", fc.ARQ.NAK, &cfg.NAK)
	s.setFloat("backoff-multiplier", fc.ARQ.BackoffMultiplier, &cfg.BackoffMultiplier)
	s.setFloat("backoff-jitter", fc.ARQ.BackoffJitter, &cfg.BackoffJitter)
	if err := s.setDuration("timeout", fc.ARQ.Timeout, &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", fc.ARQ.BackoffMax, &cfg.BackoffMax); err != nil {
		return err
	}

	ch := fc.Channel
	s.setFloatPtr("loss", ch.Loss, &cfg.Loss)
	s.setFloatPtr("corrupt", ch.Corrupt, &cfg.Corrupt)
	s.setFloatPtr("duplicate", ch.Duplicate, &cfg.Duplicate)
	s.setIntPtr("burst", ch.Burst, &cfg.Burst)
	if ch.Latency != nil {
		if err := s.setDuration("latency", *ch.Latency, &cfg.Latency); err != nil {
			return err
		}
	}
	if ch.Jitter != nil {
		if err := s.setDuration("jitter", *ch.Jitter, &cfg.ChannelJitter); err != nil {
			return err
		}
	}

	s.setString("input", fc.Run.Input, &cfg.Input)
	s.setInt("count", fc.Run.Count, &cfg.Count)
	s.setInt("payload-size", fc.Run.PayloadSize, &cfg.PayloadSize)
	s.setInt("chunk-size", fc.Run.ChunkSize, &cfg.ChunkSize)
	s.setString("store", fc.Run.Store, &cfg.Store)
	s.setString("output", fc.Run.Output, &cfg.Output)
	s.setString("report-dir", fc.Run.ReportDir, &cfg.ReportDir)
	s.setBool("watch", fc.Run.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
