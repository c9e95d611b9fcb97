package cliconfig

import "github.com/bft-labs/linkarq/pkg/channel"

func channelTable(loss *float64, burst *int, latency, jitter *string) channel.FileImpairments {
	return channel.FileImpairments{
		Loss:    loss,
		Burst:   burst,
		Latency: latency,
		Jitter:  jitter,
	}
}
