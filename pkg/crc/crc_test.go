package crc

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		pattern uint64
	}{
		{"zero", 0},
		{"constant only", 1},
		{"even pattern", 0b1010},
		{"degree too large", 1<<33 | 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pattern)
			if !errors.Is(err, ErrInvalidGenerator) {
				t.Errorf("New(%#x) error = %v, want ErrInvalidGenerator", tt.pattern, err)
			}
		})
	}
}

func TestGenerator_Degree(t *testing.T) {
	tests := []struct {
		gen    Generator
		degree int
		width  int
	}{
		{Example3, 3, 1},
		{CRC8, 8, 1},
		{CRC16, 16, 2},
		{CRC16CCITT, 16, 2},
		{CRC32, 32, 4},
	}

	for _, tt := range tests {
		if got := tt.gen.Degree(); got != tt.degree {
			t.Errorf("%s.Degree() = %d, want %d", tt.gen, got, tt.degree)
		}
		if got := tt.gen.Width(); got != tt.width {
			t.Errorf("%s.Width() = %d, want %d", tt.gen, got, tt.width)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		pattern uint64
		wantErr bool
	}{
		{"crc16", 0x18005, false},
		{"CRC32", 0x104C11DB7, false},
		{"0x107", 0x107, false},
		{"0b1011", 0b1011, false},
		{"10011", 0b10011, false},
		{"0xZZ", 0, true},
		{"1010", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		g, err := Parse(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidGenerator) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidGenerator", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
		}
		if g.Pattern() != tt.pattern {
			t.Errorf("Parse(%q).Pattern() = %#x, want %#x", tt.in, g.Pattern(), tt.pattern)
		}
	}
}

func TestRemainderBits_LongDivision(t *testing.T) {
	tests := []struct {
		msg     string
		divisor uint64
		want    string
	}{
		{"1101011011", 0b1011, "100"},
		{"1101011111", 0b10011, "0010"},
		{"0", 0b1011, "000"},
	}

	for _, tt := range tests {
		g := MustNew(tt.divisor)
		got, err := g.RemainderBits(tt.msg)
		if err != nil {
			t.Fatalf("RemainderBits(%q) error: %v", tt.msg, err)
		}
		if got != tt.want {
			t.Errorf("RemainderBits(%q) / %b = %s, want %s", tt.msg, tt.divisor, got, tt.want)
		}
	}

	if _, err := Example3.RemainderBits("10x1"); err == nil {
		t.Error("RemainderBits accepted a non-binary digit")
	}
}

func TestRemainder_TableMatchesBitwise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, g := range []Generator{CRC8, CRC16, CRC16CCITT, CRC32} {
		bitwise := g
		bitwise.table = nil

		for i := 0; i < 200; i++ {
			data := make([]byte, rng.Intn(64))
			rng.Read(data)
			if got, want := g.Remainder(data), bitwise.Remainder(data); got != want {
				t.Fatalf("%s: table remainder %#x != bitwise %#x for %x", g, got, want, data)
			}
		}
	}
}

func TestRemainder_KnownCheckValue(t *testing.T) {
	// Zero init, no reflection, no final XOR.
	msg := []byte("123456789")
	if got := CRC8.Checksum(msg); got != 0xF4 {
		t.Errorf("CRC8 checksum = %#02x, want 0xf4", got)
	}
	if got := CRC16CCITT.Checksum(msg); got != 0x31C3 {
		t.Errorf("CRC16-CCITT checksum = %#04x, want 0x31c3", got)
	}
	if got := CRC16.Checksum(msg); got != 0xFEE8 {
		t.Errorf("CRC16 checksum = %#04x, want 0xfee8", got)
	}
	if got := CRC32.Checksum(msg); got != 0x89A1897F {
		t.Errorf("CRC32 checksum = %#08x, want 0x89a1897f", got)
	}
}

func TestAppendVerify(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, g := range []Generator{Example3, MustNew(0b10011), CRC8, CRC16, CRC32} {
		for i := 0; i < 50; i++ {
			msg := make([]byte, 1+rng.Intn(32))
			rng.Read(msg)

			span := g.Append(nil, msg)
			if len(span) != len(msg)+g.Width() {
				t.Fatalf("%s: span length %d, want %d", g, len(span), len(msg)+g.Width())
			}
			if !g.Verify(span) {
				t.Fatalf("%s: Verify rejected an intact span", g)
			}
		}
	}
}

func TestVerify_DetectsSingleBitErrors(t *testing.T) {
	msg := []byte("sliding window")
	for _, g := range []Generator{Example3, CRC8, CRC16, CRC32} {
		span := g.Append(nil, msg)
		for bit := 0; bit < len(span)*8; bit++ {
			corrupt := append([]byte(nil), span...)
			corrupt[bit/8] ^= 0x80 >> (bit % 8)
			if g.Verify(corrupt) {
				t.Fatalf("%s: single-bit error at bit %d not detected", g, bit)
			}
		}
	}
}

func TestVerify_DetectsShortBursts(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := CRC16
	for trial := 0; trial < 100; trial++ {
		msg := make([]byte, 8+rng.Intn(56))
		rng.Read(msg)
		span := g.Append(nil, msg)
		nbits := len(span) * 8

		for length := 1; length < g.Degree(); length++ {
			start := rng.Intn(nbits - length + 1)
			corrupt := append([]byte(nil), span...)
			// A burst starts and ends with a flipped bit.
			flipBit(corrupt, start)
			if length > 1 {
				flipBit(corrupt, start+length-1)
			}
			for i := start + 1; i < start+length-1; i++ {
				if rng.Intn(2) == 1 {
					flipBit(corrupt, i)
				}
			}
			if g.Verify(corrupt) {
				t.Fatalf("burst of length %d at bit %d not detected", length, start)
			}
		}
	}
}

func flipBit(b []byte, bit int) {
	b[bit/8] ^= 0x80 >> (bit % 8)
}

func TestPresets(t *testing.T) {
	names := Presets()
	if len(names) != 5 {
		t.Fatalf("Presets() = %v, want 5 names", names)
	}
	for _, name := range names {
		g, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if g.Name() != name || g.String() != name {
			t.Errorf("preset %q has name %q", name, g.Name())
		}
	}
	if got := MustNew(0b10011).String(); got != "0x13" {
		t.Errorf("custom String() = %q, want 0x13", got)
	}
}
