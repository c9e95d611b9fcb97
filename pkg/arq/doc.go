// Package arq implements sliding-window automatic repeat request over an
// unreliable frame channel.
//
// An Engine is one endpoint of a link. Payloads given to Send leave as
// DATA frames; DATA frames from the peer are acknowledged and their
// payloads delivered to the Consumer exactly once and in order.
//
// Three policies are supported:
//
//   - GoBackN: cumulative ACKs, one window timer, in-order receiver.
//     Requires SequenceModulus >= WindowSize+1.
//   - SelectiveRepeat: individual ACKs, a timer per frame, a buffering
//     receiver. Requires SequenceModulus >= 2*WindowSize.
//   - StopAndWait: Go-Back-N with WindowSize 1.
//
// Corrupted and malformed frames are counted and otherwise treated as
// lost. A frame that is still unacknowledged after 1+MaxRetries
// transmissions fails the stream: Send, Flush and Err return a
// *DeliveryFailedError and no further DATA frames are sent. The receiver
// half keeps working.
//
// # Example
//
//	cfg := arq.DefaultConfig()
//	engine, err := arq.New(cfg, channel, arq.ConsumerFunc(func(p []byte) {
//		fmt.Printf("%s\n", p)
//	}))
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	if err := engine.Send(ctx, []byte("hello")); err != nil {
//		return err
//	}
//	return engine.Flush(ctx)
//
// # Concurrency
//
// One mutex serializes Send, frame arrival, timer expiry and Close. A
// timer that fires after its frame was acknowledged finds its generation
// retired and does nothing. The Channel is called with the mutex held and
// must not deliver frames synchronously.
package arq
