// Package linkarq simulates reliable framed transmission over a lossy
// link: sliding-window ARQ with CRC-protected frames over an in-memory
// channel that loses, corrupts, duplicates and delays frames.
//
// Example usage:
//
//	cfg := linkarq.DefaultConfig()
//	cfg.Channel.LossRate = 0.2
//	rep, err := linkarq.Transfer(ctx, cfg, file,
//	    linkarq.WithConsumer(arq.ConsumerFunc(func(p []byte) { out.Write(p) })))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Goodput())
//
// For long-lived links use New, Start, Send and Stop from
// github.com/bft-labs/linkarq/pkg/linkarq.
package linkarq

import (
	"context"
	"io"

	"github.com/bft-labs/linkarq/pkg/linkarq"
	"github.com/bft-labs/linkarq/pkg/report"
)

// Config holds the engine, channel and stream settings of a link.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = linkarq.Config

// Link is a one-way reliable stream over a simulated channel.
type Link = linkarq.Link

// Option configures a Link.
type Option = linkarq.Option

// Report summarizes one transfer.
type Report = report.Report

// Event types delivered to an EventHandler.
type (
	EventHandler        = linkarq.EventHandler
	BaseEventHandler    = linkarq.BaseEventHandler
	StateChangeEvent    = linkarq.StateChangeEvent
	DeliveryFailedEvent = linkarq.DeliveryFailedEvent
)

// Options re-exported from pkg/linkarq.
var (
	WithLogger        = linkarq.WithLogger
	WithEventHandler  = linkarq.WithEventHandler
	WithPlugin        = linkarq.WithPlugin
	WithConsumer      = linkarq.WithConsumer
	WithStreamID      = linkarq.WithStreamID
	WithChannelFilter = linkarq.WithChannelFilter
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return linkarq.DefaultConfig()
}

// New creates a stopped Link.
func New(cfg Config, opts ...Option) (*Link, error) {
	return linkarq.New(cfg, opts...)
}

// Transfer opens a link, sends r to EOF in ChunkSize segments, waits
// until every segment is acknowledged and stops the link. The report is
// filled in even when an error is returned after the link started.
func Transfer(ctx context.Context, cfg Config, r io.Reader, opts ...Option) (Report, error) {
	link, err := linkarq.New(cfg, opts...)
	if err != nil {
		return Report{}, err
	}
	cfg = link.Config()
	rep := report.New(link.StreamID(), cfg.Engine, cfg.Channel)
	if err := link.Start(ctx); err != nil {
		return rep, err
	}

	n, err := link.SendStream(ctx, r)
	if err == nil {
		err = link.Flush(ctx)
	}
	if failed := link.Err(); failed != nil {
		err = failed
	}
	if stopErr := link.Stop(); err == nil {
		err = stopErr
	}

	st := link.Stats()
	rep.Payloads = st.Sender.DataSent
	rep.Bytes = n
	rep.Impairments = report.FromImpairments(link.Impairments())
	rep.Finish(st.Sender, st.Receiver, st.Channel, err)
	return rep, err
}
