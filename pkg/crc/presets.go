package crc

import (
	"fmt"
	"sort"
	"strings"
)

// Common generators.
var (
	// Example3 is x^3 + x + 1, the textbook divisor 1011.
	Example3 = named("crc3", 0b1011)
	// CRC8 is x^8 + x^2 + x + 1.
	CRC8 = named("crc8", 0x107)
	// CRC16 is x^16 + x^15 + x^2 + 1.
	CRC16 = named("crc16", 0x18005)
	// CRC16CCITT is x^16 + x^12 + x^5 + 1.
	CRC16CCITT = named("crc16-ccitt", 0x11021)
	// CRC32 is the IEEE 802.3 polynomial.
	CRC32 = named("crc32", 0x104C11DB7)
)

var presets = map[string]Generator{
	"crc3":        Example3,
	"crc8":        CRC8,
	"crc16":       CRC16,
	"crc16-ccitt": CRC16CCITT,
	"crc32":       CRC32,
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemainderBits performs long division the way it is done by hand: it
// appends Degree() zero bits to the bit string msg ("1101011011") and
// returns the remainder as a bit string of length Degree().
func (g Generator) RemainderBits(msg string) (string, error) {
	work := make([]byte, 0, len(msg)+g.degree)
	for i := 0; i < len(msg); i++ {
		switch msg[i] {
		case '0', '1':
			work = append(work, msg[i]-'0')
		default:
			return "", fmt.Errorf("crc: invalid bit %q at position %d", msg[i], i)
		}
	}
	for i := 0; i < g.degree; i++ {
		work = append(work, 0)
	}

	divisor := make([]byte, g.degree+1)
	for i := range divisor {
		divisor[i] = byte(g.poly >> (g.degree - i) & 1)
	}

	for i := 0; i+len(divisor) <= len(work); i++ {
		if work[i] == 0 {
			continue
		}
		for j := range divisor {
			work[i+j] ^= divisor[j]
		}
	}

	var sb strings.Builder
	for _, b := range work[len(work)-g.degree:] {
		sb.WriteByte('0' + b)
	}
	return sb.String(), nil
}
