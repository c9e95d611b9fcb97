package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/linkarq/internal/cliconfig"
)

const helpDescription = `
Simulate reliable framed transmission over a lossy link.

A sender and a receiver endpoint run sliding-window ARQ (Go-Back-N,
Selective-Repeat or Stop-and-Wait) over an in-memory channel that loses,
corrupts, duplicates and delays frames. Every frame carries a CRC; frames
that fail the check are dropped and recovered by retransmission.

Configure via file ($HOME/.linkarq/config.toml), LINKARQ_* environment
variables, or flags, in increasing order of precedence.
`

var exampleUsage = strings.TrimSpace(`
  linkarq --policy gbn --window 7 --loss 0.2 --count 1000
  linkarq --input ./payload.bin --store deliveries.db --report-dir ./reports
  linkarq --config ./lossy.toml --watch
  linkarq --input ./payload.bin --output ./received.bin
  linkarq store deliveries.db --limit 5
  linkarq crc --generator 1011 --bits 1101011011
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log, _ := cliconfig.Logger("info")

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("linkarq")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "linkarq",
		Short:         "Simulate sliding-window ARQ over a lossy link",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, &cfg, cfgPath)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.linkarq/config.toml)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for channel impairments and timer jitter (0 = random)")

	f.StringVar(&cfg.Policy, "policy", cfg.Policy, "ARQ policy: go-back-n, selective-repeat or stop-and-wait")
	f.IntVar(&cfg.Window, "window", cfg.Window, "send window size")
	f.Uint64Var(&cfg.Modulus, "modulus", cfg.Modulus, "sequence number modulus (0 = smallest valid for the policy)")
	f.StringVar(&cfg.Generator, "generator", cfg.Generator, "CRC generator: preset name, 0x hex or binary pattern")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "retransmission timeout")
	f.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retransmissions allowed per frame")
	f.BoolVar(&cfg.NAK, "nak", cfg.NAK, "send negative acknowledgements for gaps and corrupted frames")
	f.Float64Var(&cfg.BackoffMultiplier, "backoff-multiplier", cfg.BackoffMultiplier, "timeout growth per retransmission (0 = fixed)")
	f.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "upper bound for the backed-off timeout")
	f.Float64Var(&cfg.BackoffJitter, "backoff-jitter", cfg.BackoffJitter, "random fraction added to or taken from each timeout")

	f.Float64Var(&cfg.Loss, "loss", cfg.Loss, "probability a frame is lost")
	f.Float64Var(&cfg.Corrupt, "corrupt", cfg.Corrupt, "probability a frame is corrupted")
	f.Float64Var(&cfg.Duplicate, "duplicate", cfg.Duplicate, "probability a frame is duplicated")
	f.IntVar(&cfg.Burst, "burst", cfg.Burst, "corruption burst length in bits")
	f.DurationVar(&cfg.Latency, "latency", cfg.Latency, "one-way channel latency")
	f.DurationVar(&cfg.ChannelJitter, "jitter", cfg.ChannelJitter, "extra random channel delay (reorders frames)")

	f.StringVar(&cfg.Input, "input", cfg.Input, "file to send, - for stdin (default: generated payloads)")
	f.IntVar(&cfg.Count, "count", cfg.Count, "number of generated payloads")
	f.IntVar(&cfg.PayloadSize, "payload-size", cfg.PayloadSize, "size of each generated payload")
	f.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "frame payload size used to segment --input")
	f.StringVar(&cfg.Store, "store", cfg.Store, "bbolt database receiving delivered payloads")
	f.StringVar(&cfg.Output, "output", cfg.Output, "file receiving the delivered stream")
	f.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "directory for report.json")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload [channel] from the config file while running")

	root.AddCommand(newCRCCommand(), newEfficiencyCommand(), newStoreCommand())
	return root
}
