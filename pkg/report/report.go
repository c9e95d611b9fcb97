package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
)

// Report summarizes one transfer over a link.
type Report struct {
	// Stream identifies the transfer.
	Stream uuid.UUID `json:"stream"`

	// Policy, WindowSize, SequenceModulus and Generator describe the
	// engine configuration.
	Policy          string `json:"policy"`
	WindowSize      int    `json:"window_size"`
	SequenceModulus uint64 `json:"sequence_modulus"`
	Generator       string `json:"generator"`

	// Impairments is the channel profile at the end of the run.
	Impairments Impairments `json:"impairments"`

	// Payloads and Bytes count what the application handed to the sender.
	Payloads uint64 `json:"payloads"`
	Bytes    int64  `json:"bytes"`

	Sender   arq.Stats     `json:"sender"`
	Receiver arq.Stats     `json:"receiver"`
	Channel  channel.Stats `json:"channel"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Error is the terminal error of the transfer, if any.
	Error string `json:"error,omitempty"`
}

// Impairments is the JSON form of channel.Impairments.
type Impairments struct {
	LossRate      float64 `json:"loss_rate"`
	CorruptRate   float64 `json:"corrupt_rate"`
	DuplicateRate float64 `json:"duplicate_rate"`
	BurstLength   int     `json:"burst_length"`
	Latency       string  `json:"latency"`
	Jitter        string  `json:"jitter"`
}

// FromImpairments converts a channel profile.
func FromImpairments(imp channel.Impairments) Impairments {
	return Impairments{
		LossRate:      imp.LossRate,
		CorruptRate:   imp.CorruptRate,
		DuplicateRate: imp.DuplicateRate,
		BurstLength:   imp.BurstLength,
		Latency:       imp.Latency.String(),
		Jitter:        imp.Jitter.String(),
	}
}

// New returns a report for cfg with StartedAt set to now.
func New(stream uuid.UUID, cfg arq.Config, imp channel.Impairments) Report {
	return Report{
		Stream:          stream,
		Policy:          cfg.Policy.String(),
		WindowSize:      cfg.WindowSize,
		SequenceModulus: cfg.SequenceModulus,
		Generator:       cfg.Generator.String(),
		Impairments:     FromImpairments(imp),
		StartedAt:       time.Now().UTC(),
	}
}

// IsEmpty returns true if the report has not been initialized.
func (r Report) IsEmpty() bool {
	return r.Stream == uuid.Nil
}

// Finish records the final counters and the terminal error.
func (r *Report) Finish(sender, receiver arq.Stats, ch channel.Stats, err error) {
	r.Sender = sender
	r.Receiver = receiver
	r.Channel = ch
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
}

// Duration returns how long the transfer took.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Goodput returns the fraction of DATA transmissions that were not
// retransmissions.
func (r Report) Goodput() float64 {
	total := r.Sender.DataSent + r.Sender.Retransmissions
	if total == 0 {
		return 0
	}
	return float64(r.Sender.DataSent) / float64(total)
}

// Complete reports whether every payload was delivered without error.
func (r Report) Complete() bool {
	return r.Error == "" && r.Receiver.Delivered == r.Payloads
}
