package frame

import (
	"errors"
	"fmt"
)

// Frame errors.
var (
	// ErrMalformedFrame indicates a span that cannot be parsed into the header layout.
	ErrMalformedFrame = errors.New("frame: malformed frame")
	// ErrIntegrity indicates a non-zero CRC remainder over the received span.
	ErrIntegrity = errors.New("frame: integrity check failed")
	// ErrPayloadTooLarge indicates a payload that does not fit the length field.
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Kind identifies the frame type.
type Kind uint8

const (
	KindData Kind = 0x01
	KindAck  Kind = 0x02
	KindNak  Kind = 0x03
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindAck:
		return "ACK"
	case KindNak:
		return "NAK"
	default:
		return fmt.Sprintf("Kind(0x%02x)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindData || k == KindAck || k == KindNak
}

// Frame is one unit of transmission. Frames are built by a Codec and
// are not mutated afterwards.
type Frame struct {
	Kind    Kind
	Seq     uint32
	Payload []byte
	CRC     uint32
}

// IsControl reports whether the frame is an ACK or NAK.
func (f Frame) IsControl() bool {
	return f.Kind == KindAck || f.Kind == KindNak
}

// String returns a compact description for logs.
func (f Frame) String() string {
	return fmt.Sprintf("%s(seq=%d len=%d crc=%#x)", f.Kind, f.Seq, len(f.Payload), f.CRC)
}
