// Package crc implements cyclic redundancy checks as modulo-2 polynomial
// division.
//
// A Generator is built from its full bit pattern, leading term included:
//
//	g, err := crc.New(0x18005) // x^16 + x^15 + x^2 + 1
//
// The checksum appended to a message is the remainder of the message
// followed by Width() zero bytes. A receiver divides the whole span and
// accepts it when the remainder is zero:
//
//	span := g.Append(nil, msg)
//	ok := g.Verify(span)
//
// Generators of degree 8 and above divide a byte at a time using a
// precomputed table. Smaller generators divide bit by bit. Both produce
// identical remainders.
//
// A zero remainder means no error was detected, not that none occurred.
// Every single-bit error and every burst no longer than the degree is
// detected.
package crc
