package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "LINKARQ_"

// ApplyEnvConfig applies LINKARQ_* environment variables. They override
// the config file but not flags that were explicitly set.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("policy", env("POLICY"), &cfg.Policy)
	s.setString("generator", env("GENERATOR"), &cfg.Generator)
	s.setString("input", env("INPUT"), &cfg.Input)
	s.setString("store", env("STORE"), &cfg.Store)
	s.setString("output", env("OUTPUT"), &cfg.Output)
	s.setString("report-dir", env("REPORT_DIR"), &cfg.ReportDir)
	s.setBoolFromString("nak", env("NAK"), &cfg.NAK)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	ints := []struct {
		flag, name string
		dst        *int
	}{
		{"window", "WINDOW", &cfg.Window},
		{"max-retries", "MAX_RETRIES", &cfg.MaxRetries},
		{"burst", "BURST", &cfg.Burst},
		{"count", "COUNT", &cfg.Count},
		{"payload-size", "PAYLOAD_SIZE", &cfg.PayloadSize},
		{"chunk-size", "CHUNK_SIZE", &cfg.ChunkSize},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, env(v.name), v.dst); err != nil {
			return err
		}
	}

	floats := []struct {
		flag, name string
		dst        *float64
	}{
		{"loss", "LOSS", &cfg.Loss},
		{"corrupt", "CORRUPT", &cfg.Corrupt},
		{"duplicate", "DUPLICATE", &cfg.Duplicate},
		{"backoff-multiplier", "BACKOFF_MULTIPLIER", &cfg.BackoffMultiplier},
		{"backoff-jitter", "BACKOFF_JITTER", &cfg.BackoffJitter},
	}
	for _, v := range floats {
		if err := s.setFloatFromString(v.flag, env(v.name), v.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		flag, name string
		dst        *time.Duration
	}{
		{"timeout", "TIMEOUT", &cfg.Timeout},
		{"backoff-max", "BACKOFF_MAX", &cfg.BackoffMax},
		{"latency", "LATENCY", &cfg.Latency},
		{"jitter", "JITTER", &cfg.ChannelJitter},
	}
	for _, v := range durations {
		if err := s.setDuration(v.flag, env(v.name), v.dst); err != nil {
			return err
		}
	}

	if err := s.setUint64FromString("modulus", env("MODULUS"), &cfg.Modulus); err != nil {
		return err
	}
	return s.setInt64FromString("seed", env("SEED"), &cfg.Seed)
}

// channelKeys maps [channel] table keys to their environment names. The
// matching flags share the table key.
var channelKeys = map[string]string{
	"loss":      "LOSS",
	"corrupt":   "CORRUPT",
	"duplicate": "DUPLICATE",
	"burst":     "BURST",
	"latency":   "LATENCY",
	"jitter":    "JITTER",
}

// PinnedChannelKeys returns the [channel] keys set by a flag or a
// LINKARQ_* variable. A config reload must not override them.
func PinnedChannelKeys(changed map[string]bool) map[string]bool {
	pinned := make(map[string]bool)
	for key, name := range channelKeys {
		if changed[key] || os.Getenv(EnvPrefix+name) != "" {
			pinned[key] = true
		}
	}
	return pinned
}
