// Package linkarq provides an embeddable reliable link: a sending and a
// receiving ARQ endpoint joined by a simulated lossy channel.
//
// # Basic Usage
//
//	cfg := linkarq.DefaultConfig()
//	cfg.Channel = channel.Impairments{LossRate: 0.1, Latency: 2 * time.Millisecond}
//
//	link, err := linkarq.New(cfg, linkarq.WithConsumer(consumer))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := link.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer link.Stop()
//
//	if _, err := link.SendStream(ctx, file); err != nil {
//	    log.Fatal(err)
//	}
//	if err := link.Flush(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Lifecycle States
//
// A Link is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateFailed]. It enters StateFailed when a frame
// exhausts its retry budget; Stop returns it to StateStopped and a later
// Start opens a fresh stream on new endpoints.
//
// # Events and Plugins
//
// An [EventHandler] passed with [WithEventHandler] observes state changes
// and delivery failures. Plugins registered with [WithPlugin] receive a
// [ChannelController] so they can retune the channel of a running link;
// see plugins/configwatcher.
//
// # Version
//
// Use [ModuleVersions] to get versions of all sub-modules and
// [CompatibilityMatrix] to check minimum compatible versions.
package linkarq
