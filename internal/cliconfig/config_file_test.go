package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	zero := 0.0
	loss := 0.25
	burst := 3
	latency := "4ms"
	badJitter := "soon"

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				LogLevel: "debug",
				Seed:     42,
				ARQ: ARQFileConfig{
					Policy:     "gbn",
					Window:     7,
					Modulus:    8,
					Generator:  "crc32",
					Timeout:    "50ms",
					MaxRetries: 3,
					NAK:        &trueVal,
				},
				Run: RunFileConfig{Count: 9, Store: "out.db", Watch: &trueVal},
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				LogLevel:   "debug",
				Seed:       42,
				Policy:     "gbn",
				Window:     7,
				Modulus:    8,
				Generator:  "crc32",
				Timeout:    50 * time.Millisecond,
				MaxRetries: 3,
				NAK:        true,
				Count:      9,
				Store:      "out.db",
				Watch:      true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				ARQ: ARQFileConfig{Policy: "gbn", Window: 2},
			},
			changed: map[string]bool{"policy": true},
			initial: Config{Policy: "sr", Window: 4},
			expected: Config{
				Policy: "sr", // unchanged because flag was set
				Window: 2,
			},
		},
		{
			name: "channel table sets zero rates",
			fileConfig: FileConfig{
				Channel: channelTable(&zero, &burst, &latency, nil),
			},
			changed:  map[string]bool{},
			initial:  Config{Loss: 0.5},
			expected: Config{Loss: 0, Burst: 3, Latency: 4 * time.Millisecond},
		},
		{
			name: "channel flag wins over table",
			fileConfig: FileConfig{
				Channel: channelTable(&loss, nil, nil, nil),
			},
			changed:  map[string]bool{"loss": true},
			initial:  Config{Loss: 0.1},
			expected: Config{Loss: 0.1},
		},
		{
			name: "invalid timeout",
			fileConfig: FileConfig{
				ARQ: ARQFileConfig{Timeout: "fast"},
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "invalid channel jitter",
			fileConfig: FileConfig{
				Channel: channelTable(nil, nil, nil, &badJitter),
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() got %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.TrimSpace(`
log_level = "warn"
seed = 7

[arq]
policy = "selective-repeat"
window = 8
generator = "0x11021"
timeout = "150ms"

[channel]
loss = 0.05
corrupt = 0.01
latency = "10ms"
jitter = "2ms"

[run]
count = 500
report_dir = "/tmp/reports"
`)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.LogLevel != "warn" || cfg.Seed != 7 {
		t.Errorf("top-level keys not applied: %+v", cfg)
	}
	if cfg.Policy != "selective-repeat" || cfg.Window != 8 || cfg.Generator != "0x11021" {
		t.Errorf("[arq] not applied: %+v", cfg)
	}
	if cfg.Timeout != 150*time.Millisecond {
		t.Errorf("Timeout = %v, want 150ms", cfg.Timeout)
	}
	if cfg.Loss != 0.05 || cfg.Corrupt != 0.01 || cfg.Latency != 10*time.Millisecond || cfg.ChannelJitter != 2*time.Millisecond {
		t.Errorf("[channel] not applied: %+v", cfg.Impairments())
	}
	if cfg.Count != 500 || cfg.ReportDir != "/tmp/reports" {
		t.Errorf("[run] not applied: %+v", cfg)
	}
	if cfg.MaxRetries != DefaultConfig().MaxRetries {
		t.Errorf("MaxRetries = %d, want default", cfg.MaxRetries)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[arq\npolicy ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists() = true for missing file")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	p := DefaultConfigPath()
	if p != "" && !strings.HasSuffix(p, filepath.Join(".linkarq", "config.toml")) {
		t.Errorf("DefaultConfigPath() = %q", p)
	}
}
