package arq

// Stats counts engine activity. Sender and receiver halves share one set.
type Stats struct {
	// Sender half.
	DataSent        uint64 `json:"data_sent"`
	Retransmissions uint64 `json:"retransmissions"`
	Timeouts        uint64 `json:"timeouts"`
	AcksReceived    uint64 `json:"acks_received"`
	NaksReceived    uint64 `json:"naks_received"`
	DuplicateAcks   uint64 `json:"duplicate_acks"`

	// Receiver half.
	DataReceived uint64 `json:"data_received"`
	Delivered    uint64 `json:"delivered"`
	Duplicates   uint64 `json:"duplicates"`
	OutOfOrder   uint64 `json:"out_of_order"`
	Buffered     uint64 `json:"buffered"`
	Discarded    uint64 `json:"discarded"`
	AcksSent     uint64 `json:"acks_sent"`
	NaksSent     uint64 `json:"naks_sent"`

	// Frames rejected by the codec.
	Corrupted uint64 `json:"corrupted"`
	Malformed uint64 `json:"malformed"`
}
