package arq

// SenderState is the state of an engine's sender half.
type SenderState int

const (
	// StateIdle means nothing is outstanding.
	StateIdle SenderState = iota
	// StateAwaitingAck means at least one frame awaits acknowledgment.
	StateAwaitingAck
	// StateFailed means a frame exhausted its retries. Terminal for sending.
	StateFailed
	// StateClosed means the engine was closed.
	StateClosed
)

var senderStateNames = []string{"Idle", "AwaitingAck", "Failed", "Closed"}

func (s SenderState) String() string {
	if s < 0 || int(s) >= len(senderStateNames) {
		return "Unknown"
	}
	return senderStateNames[s]
}

// senderTransitions lists the states reachable from each state.
var senderTransitions = map[SenderState][]SenderState{
	StateIdle:        {StateAwaitingAck, StateClosed},
	StateAwaitingAck: {StateIdle, StateFailed, StateClosed},
	StateFailed:      {StateClosed},
	StateClosed:      {},
}

func canTransition(from, to SenderState) bool {
	for _, s := range senderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
