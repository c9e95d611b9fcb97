package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bft-labs/linkarq"
	"github.com/bft-labs/linkarq/internal/cliconfig"
	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/log"
	"github.com/bft-labs/linkarq/pkg/report"
	"github.com/bft-labs/linkarq/pkg/sink"
	"github.com/bft-labs/linkarq/plugins/configwatcher"
)

var errDeliveryMismatch = errors.New("delivered stream differs from input")

func runTransfer(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	linkCfg, err := cfg.LinkConfig()
	if err != nil {
		return err
	}

	zl, err := cliconfig.Logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	zl.Debug().Interface("config", cfg).Msg("configuration")
	libLogger := log.NewZerologAdapterWithLogger(zl)

	data, err := loadInput(cfg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	received := sink.NewMemory()
	consumers := []arq.Consumer{received}
	var store *sink.Bolt
	if cfg.Store != "" {
		store, err = sink.OpenBolt(cfg.Store, sink.WithBoltLogger(libLogger))
		if err != nil {
			return err
		}
		defer store.Close()
		consumers = append(consumers, store)
	}
	var output *sink.Writer
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		output = sink.NewWriter(f)
		consumers = append(consumers, output)
	}
	consumer := arq.ConsumerFunc(func(p []byte) {
		for _, c := range consumers {
			c.Deliver(p)
		}
	})

	opts := []linkarq.Option{
		linkarq.WithLogger(libLogger),
		linkarq.WithConsumer(consumer),
		linkarq.WithEventHandler(&cliEventHandler{log: zl}),
	}
	if cfg.Watch {
		if !cliconfig.FileExists(cfgFile) {
			return fmt.Errorf("--watch needs a config file, %s not found", cfgFile)
		}
		wc := configwatcher.DefaultConfig(cfgFile)
		wc.Pinned = cliconfig.PinnedChannelKeys(changed)
		opts = append(opts, configwatcher.WithConfigWatcher(wc))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, xferErr := linkarq.Transfer(ctx, linkCfg, bytes.NewReader(data), opts...)
	if rep.IsEmpty() {
		return fmt.Errorf("create link: %w", xferErr)
	}
	if ctx.Err() != nil {
		zl.Info().Msg("received signal, stopped")
	}
	if xferErr == nil && !bytes.Equal(received.Bytes(), data) {
		xferErr = errDeliveryMismatch
	}
	if xferErr == nil && store != nil {
		xferErr = store.Err()
	}
	if xferErr == nil && output != nil {
		xferErr = output.Err()
	}
	if xferErr != nil && rep.Error == "" {
		rep.Error = xferErr.Error()
	}

	if cfg.ReportDir != "" {
		repo := report.NewFileRepository(cfg.ReportDir)
		if err := repo.Save(context.Background(), rep); err != nil {
			zl.Error().Err(err).Msg("save report")
		} else {
			zl.Info().Str("path", repo.Path()).Msg("report written")
		}
	}

	var extra [][2]string
	if store != nil {
		n, err := store.Count()
		if err != nil {
			zl.Error().Err(err).Msg("count stored payloads")
		} else {
			extra = append(extra, [2]string{"store", fmt.Sprintf("%d payloads in %s", n, store.Path())})
		}
	}
	if output != nil {
		extra = append(extra, [2]string{"output", fmt.Sprintf("%d bytes to %s", output.Written(), cfg.Output)})
	}

	printSummary(cmd.OutOrStdout(), rep, extra...)
	return xferErr
}

// loadInput returns the bytes to transfer: the --input file, stdin for
// "-", or Count generated payloads of PayloadSize bytes.
func loadInput(cfg *cliconfig.Config, stdin io.Reader) ([]byte, error) {
	switch cfg.Input {
	case "":
		data := make([]byte, 0, cfg.Count*cfg.PayloadSize)
		for i := 0; i < cfg.Count; i++ {
			data = append(data, generatedPayload(i, cfg.PayloadSize)...)
		}
		return data, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
}

func generatedPayload(i, size int) []byte {
	p := make([]byte, size)
	for j := range p {
		p[j] = byte(i + j)
	}
	return p
}

// printSummary writes the report as a table. extra rows are key/value
// pairs printed before any error.
func printSummary(w io.Writer, rep report.Report, extra ...[2]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "stream\t%s\n", rep.Stream)
	fmt.Fprintf(tw, "policy\t%s (window %d, modulus %d, crc %s)\n",
		rep.Policy, rep.WindowSize, rep.SequenceModulus, rep.Generator)
	fmt.Fprintf(tw, "channel\tloss %.2f corrupt %.2f duplicate %.2f latency %s\n",
		rep.Impairments.LossRate, rep.Impairments.CorruptRate,
		rep.Impairments.DuplicateRate, rep.Impairments.Latency)
	fmt.Fprintf(tw, "payloads\t%d sent, %d delivered (%d bytes)\n",
		rep.Payloads, rep.Receiver.Delivered, rep.Bytes)
	fmt.Fprintf(tw, "retransmissions\t%d (%d timeouts, %d naks)\n",
		rep.Sender.Retransmissions, rep.Sender.Timeouts, rep.Sender.NaksReceived)
	fmt.Fprintf(tw, "frames\t%d sent, %d dropped, %d corrupted, %d duplicated\n",
		rep.Channel.Sent, rep.Channel.Dropped, rep.Channel.Corrupted, rep.Channel.Duplicated)
	fmt.Fprintf(tw, "receiver\t%d crc failures, %d duplicates, %d out of order\n",
		rep.Receiver.Corrupted, rep.Receiver.Duplicates, rep.Receiver.OutOfOrder)
	fmt.Fprintf(tw, "goodput\t%.3f\n", rep.Goodput())
	fmt.Fprintf(tw, "duration\t%s\n", rep.Duration())
	for _, row := range extra {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	if rep.Error != "" {
		fmt.Fprintf(tw, "error\t%s\n", rep.Error)
	}
	_ = tw.Flush()
}

// cliEventHandler logs link events.
type cliEventHandler struct {
	linkarq.BaseEventHandler
	log zerolog.Logger
}

func (h *cliEventHandler) OnStateChange(ev linkarq.StateChangeEvent) {
	h.log.Debug().
		Str("from", ev.Previous.String()).
		Str("to", ev.Current.String()).
		Str("reason", ev.Reason).
		Msg("link state")
}

func (h *cliEventHandler) OnDeliveryFailed(ev linkarq.DeliveryFailedEvent) {
	h.log.Error().Err(ev.Err).Msg("delivery failed")
}
