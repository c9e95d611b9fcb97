package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"LINKARQ_POLICY":      "gbn",
				"LINKARQ_WINDOW":      "3",
				"LINKARQ_MODULUS":     "0x10",
				"LINKARQ_TIMEOUT":     "75ms",
				"LINKARQ_LOSS":        "0.2",
				"LINKARQ_JITTER":      "1ms",
				"LINKARQ_NAK":         "true",
				"LINKARQ_SEED":        "-5",
				"LINKARQ_STORE":       "deliveries.db",
				"LINKARQ_OUTPUT":      "received.bin",
				"LINKARQ_CHUNK_SIZE":  "512",
				"LINKARQ_BACKOFF_MAX": "2s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Policy:        "gbn",
				Window:        3,
				Modulus:       16,
				Timeout:       75 * time.Millisecond,
				Loss:          0.2,
				ChannelJitter: time.Millisecond,
				NAK:           true,
				Seed:          -5,
				Store:         "deliveries.db",
				Output:        "received.bin",
				ChunkSize:     512,
				BackoffMax:    2 * time.Second,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"LINKARQ_POLICY": "saw",
				"LINKARQ_WINDOW": "1",
			},
			changed:  map[string]bool{"policy": true},
			initial:  Config{Policy: "sr", Window: 4},
			expected: Config{Policy: "sr", Window: 1},
		},
		{
			name: "zero rate switches loss off",
			envVars: map[string]string{
				"LINKARQ_LOSS": "0",
			},
			changed:  map[string]bool{},
			initial:  Config{Loss: 0.3},
			expected: Config{Loss: 0},
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"LINKARQ_WATCH": "1",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{Watch: true},
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"LINKARQ_NAK": "false",
			},
			changed:  map[string]bool{},
			initial:  Config{NAK: true},
			expected: Config{NAK: false},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"LINKARQ_LATENCY": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"LINKARQ_WINDOW": "four"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"LINKARQ_CORRUPT": "often"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid modulus",
			envVars: map[string]string{"LINKARQ_MODULUS": "-8"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() got %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestPinnedChannelKeys(t *testing.T) {
	t.Setenv("LINKARQ_LATENCY", "4ms")
	t.Setenv("LINKARQ_WINDOW", "3")

	pinned := PinnedChannelKeys(map[string]bool{"loss": true, "policy": true})
	if len(pinned) != 2 || !pinned["loss"] || !pinned["latency"] {
		t.Errorf("PinnedChannelKeys() = %v, want loss and latency", pinned)
	}
}
