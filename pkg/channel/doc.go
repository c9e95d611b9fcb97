// Package channel provides an in-memory duplex link that loses, corrupts,
// duplicates and delays frames.
//
// A Pipe connects two endpoints. Each endpoint satisfies arq.Channel, so
// two engines can be wired back to back:
//
//	pipe, err := channel.NewPipe(
//		channel.WithImpairments(channel.Impairments{LossRate: 0.1, Latency: time.Millisecond}),
//		channel.WithSeed(1),
//	)
//	sender, _ := arq.New(cfg, pipe.A(), nil)
//	receiver, _ := arq.New(cfg, pipe.B(), consumer)
//
// Impairments can be changed while frames are in flight with
// SetImpairments, or loaded from the [channel] table of a TOML file with
// LoadImpairmentsFile. A Filter scripts the fate of specific frames.
//
// Medium access policies such as CSMA/CD would be further Channel
// implementations; the Pipe models a point-to-point link.
package channel
