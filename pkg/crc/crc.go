package crc

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// ErrInvalidGenerator is returned when a bit pattern cannot be used as a generator.
var ErrInvalidGenerator = errors.New("crc: invalid generator polynomial")

// MaxDegree is the largest supported generator degree.
const MaxDegree = 32

// Generator is a CRC generator polynomial given by its full bit pattern,
// leading term included. The pattern 0b1011 is x^3 + x + 1.
//
// Division is modulo-2 over the data read most significant bit first,
// starting from a zero register, with no reflection and no final XOR.
// A Generator is immutable and safe for concurrent use.
type Generator struct {
	name   string
	poly   uint64
	degree int
	table  *[256]uint64
}

// New returns the generator for the given bit pattern.
func New(pattern uint64) (Generator, error) {
	degree := bits.Len64(pattern) - 1
	if degree < 1 || degree > MaxDegree {
		return Generator{}, fmt.Errorf("%w: degree %d out of range [1, %d]", ErrInvalidGenerator, degree, MaxDegree)
	}
	if pattern&1 == 0 {
		return Generator{}, fmt.Errorf("%w: constant term of %#b must be 1", ErrInvalidGenerator, pattern)
	}

	g := Generator{poly: pattern, degree: degree}
	if degree >= 8 {
		g.table = makeTable(pattern, degree)
	}
	return g, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(pattern uint64) Generator {
	g, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return g
}

func named(name string, pattern uint64) Generator {
	g := MustNew(pattern)
	g.name = name
	return g
}

// Parse resolves a generator from a preset name ("crc16"), a hex pattern
// ("0x18005") or a binary pattern ("0b1011" or "1011").
func Parse(s string) (Generator, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if g, ok := presets[s]; ok {
		return g, nil
	}

	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b"):
		v, err = strconv.ParseUint(s[2:], 2, 64)
	default:
		v, err = strconv.ParseUint(s, 2, 64)
	}
	if err != nil {
		return Generator{}, fmt.Errorf("%w: %q", ErrInvalidGenerator, s)
	}
	return New(v)
}

// IsZero reports whether g is the zero value (no polynomial).
func (g Generator) IsZero() bool { return g.poly == 0 }

// Degree returns r, the degree of the polynomial.
func (g Generator) Degree() int { return g.degree }

// Pattern returns the full bit pattern including the leading term.
func (g Generator) Pattern() uint64 { return g.poly }

// Width returns the number of bytes a checksum occupies on the wire.
func (g Generator) Width() int { return (g.degree + 7) / 8 }

// Name returns the preset name, or the empty string for custom patterns.
func (g Generator) Name() string { return g.name }

// String returns the preset name or the hex pattern.
func (g Generator) String() string {
	if g.name != "" {
		return g.name
	}
	return fmt.Sprintf("%#x", g.poly)
}

// Remainder returns data mod G, with data read as one polynomial.
func (g Generator) Remainder(data []byte) uint64 {
	return g.update(0, data)
}

// Checksum returns the value to append to msg: the remainder of msg
// shifted left by Width()*8 bits. Appending it big-endian in Width bytes
// makes the remainder of the whole span zero.
func (g Generator) Checksum(msg []byte) uint64 {
	rem := g.update(0, msg)
	var pad [4]byte
	return g.update(rem, pad[:g.Width()])
}

// Append appends msg followed by its checksum to dst.
func (g Generator) Append(dst, msg []byte) []byte {
	sum := g.Checksum(msg)
	dst = append(dst, msg...)
	for i := g.Width() - 1; i >= 0; i-- {
		dst = append(dst, byte(sum>>(8*i)))
	}
	return dst
}

// Verify reports whether span (message plus appended checksum) divides by G.
func (g Generator) Verify(span []byte) bool {
	return g.Remainder(span) == 0
}

func (g Generator) update(rem uint64, data []byte) uint64 {
	if g.table == nil {
		for _, b := range data {
			for i := 7; i >= 0; i-- {
				rem = rem<<1 | uint64(b>>i&1)
				if rem>>g.degree&1 == 1 {
					rem ^= g.poly
				}
			}
		}
		return rem
	}

	mask := uint64(1)<<g.degree - 1
	shift := g.degree - 8
	for _, b := range data {
		rem = (rem<<8)&mask ^ uint64(b) ^ g.table[rem>>shift]
	}
	return rem
}

// makeTable precomputes h * x^degree mod G for every top byte h.
func makeTable(poly uint64, degree int) *[256]uint64 {
	var t [256]uint64
	for h := range t {
		v := uint64(h) << degree
		for i := degree + 7; i >= degree; i-- {
			if v>>i&1 == 1 {
				v ^= poly << (i - degree)
			}
		}
		t[h] = v
	}
	return &t
}
