package arq

// Channel is the unreliable medium an Engine transmits over.
//
// Send is fire-and-forget: the channel may drop, corrupt, duplicate or
// delay the frame. It owns the slice it is given. Send must not invoke
// the arrival handler synchronously.
type Channel interface {
	Send(frame []byte)

	// OnFrameArrival registers the handler for frames arriving from the
	// peer. The Engine registers exactly once, at construction.
	OnFrameArrival(handler func(frame []byte))
}

// Consumer receives the inbound stream. Deliver is called exactly once per
// payload, in sequence order, never concurrently. It must not call back
// into the Engine that delivers to it.
type Consumer interface {
	Deliver(payload []byte)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(payload []byte)

// Deliver calls f(payload).
func (f ConsumerFunc) Deliver(payload []byte) { f(payload) }

type discardConsumer struct{}

func (discardConsumer) Deliver([]byte) {}
