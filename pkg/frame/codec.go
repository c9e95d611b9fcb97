package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/bft-labs/linkarq/pkg/crc"
)

const (
	// HeaderSize is kind (1) + seq (4) + payload length (2).
	HeaderSize = 7

	// MaxPayload is the largest payload the length field can carry.
	MaxPayload = 1<<16 - 1
)

// Codec encodes and validates frames with a fixed generator polynomial.
// Both ends of a link must use the same generator.
type Codec struct {
	gen crc.Generator
}

// NewCodec returns a codec using gen.
func NewCodec(gen crc.Generator) (*Codec, error) {
	if gen.IsZero() {
		return nil, fmt.Errorf("%w: zero generator", crc.ErrInvalidGenerator)
	}
	return &Codec{gen: gen}, nil
}

// Generator returns the codec's generator polynomial.
func (c *Codec) Generator() crc.Generator { return c.gen }

// Overhead returns header plus checksum bytes added to every payload.
func (c *Codec) Overhead() int { return HeaderSize + c.gen.Width() }

// Encode builds a frame. The checked span covers the header and payload.
func (c *Codec) Encode(kind Kind, seq uint32, payload []byte) (Frame, error) {
	if !kind.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown kind %s", ErrMalformedFrame, kind)
	}
	if len(payload) > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}
	if kind != KindData && len(payload) > 0 {
		return Frame{}, fmt.Errorf("%w: %s frame with payload", ErrMalformedFrame, kind)
	}

	var p []byte
	if len(payload) > 0 {
		p = append([]byte(nil), payload...)
	}
	f := Frame{Kind: kind, Seq: seq, Payload: p}
	f.CRC = uint32(c.gen.Checksum(c.span(nil, f)))
	return f, nil
}

// Marshal returns the wire bytes of f: header, payload, checksum.
func (c *Codec) Marshal(f Frame) []byte {
	buf := make([]byte, 0, c.Overhead()+len(f.Payload))
	buf = c.span(buf, f)
	w := c.gen.Width()
	for i := w - 1; i >= 0; i-- {
		buf = append(buf, byte(f.CRC>>(8*i)))
	}
	return buf
}

// EncodeBytes encodes and marshals in one step.
func (c *Codec) EncodeBytes(kind Kind, seq uint32, payload []byte) ([]byte, error) {
	f, err := c.Encode(kind, seq, payload)
	if err != nil {
		return nil, err
	}
	return c.Marshal(f), nil
}

// Decode validates raw and parses it into a Frame.
//
// The full span is divided by the generator before the header is
// interpreted, so any corruption the CRC catches is reported as
// ErrIntegrity rather than ErrMalformedFrame.
func (c *Codec) Decode(raw []byte) (Frame, error) {
	w := c.gen.Width()
	if len(raw) < HeaderSize+w {
		return Frame{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedFrame, len(raw), HeaderSize+w)
	}
	if rem := c.gen.Remainder(raw); rem != 0 {
		return Frame{}, fmt.Errorf("%w: remainder %#x", ErrIntegrity, rem)
	}

	kind := Kind(raw[0])
	if !kind.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown kind %s", ErrMalformedFrame, kind)
	}
	seq := binary.BigEndian.Uint32(raw[1:5])
	n := int(binary.BigEndian.Uint16(raw[5:7]))
	if HeaderSize+n+w != len(raw) {
		return Frame{}, fmt.Errorf("%w: length field %d does not match span of %d bytes", ErrMalformedFrame, n, len(raw))
	}
	if kind != KindData && n > 0 {
		return Frame{}, fmt.Errorf("%w: %s frame with payload", ErrMalformedFrame, kind)
	}

	var sum uint32
	for _, b := range raw[HeaderSize+n:] {
		sum = sum<<8 | uint32(b)
	}

	var payload []byte
	if n > 0 {
		payload = append([]byte(nil), raw[HeaderSize:HeaderSize+n]...)
	}
	return Frame{Kind: kind, Seq: seq, Payload: payload, CRC: sum}, nil
}

func (c *Codec) span(dst []byte, f Frame) []byte {
	var hdr [HeaderSize]byte
	hdr[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(hdr[1:5], f.Seq)
	binary.BigEndian.PutUint16(hdr[5:7], uint16(len(f.Payload)))
	dst = append(dst, hdr[:]...)
	return append(dst, f.Payload...)
}
