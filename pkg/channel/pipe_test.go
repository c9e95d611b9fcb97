package channel

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) handle(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recorder) snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestPipe_DeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := NewPipe(WithSeed(1))
	require.NoError(t, err)
	defer p.Close()

	var atB, atA recorder
	p.B().OnFrameArrival(atB.handle)
	p.A().OnFrameArrival(atA.handle)

	for i := 0; i < 50; i++ {
		p.A().Send([]byte{byte(i)})
	}
	p.B().Send([]byte("reply"))

	require.Eventually(t, func() bool { return atB.count() == 50 && atA.count() == 1 },
		time.Second, time.Millisecond)

	for i, f := range atB.snapshot() {
		assert.Equal(t, []byte{byte(i)}, f)
	}
	assert.Equal(t, []byte("reply"), atA.snapshot()[0])

	stats := p.Stats()
	assert.EqualValues(t, 51, stats.Sent)
	assert.EqualValues(t, 51, stats.Delivered)
}

func TestPipe_Filter(t *testing.T) {
	defer goleak.VerifyNone(t)

	filter := func(dir Direction, frame []byte) Verdict {
		switch frame[0] {
		case 1:
			return Drop
		case 2:
			return Corrupt
		case 3:
			return Duplicate
		}
		return Pass
	}
	p, err := NewPipe(WithSeed(1), WithFilter(filter))
	require.NoError(t, err)
	defer p.Close()

	var atB recorder
	p.B().OnFrameArrival(atB.handle)

	for i := 0; i < 4; i++ {
		p.A().Send([]byte{byte(i), 0xAA})
	}

	require.Eventually(t, func() bool { return atB.count() == 4 }, time.Second, time.Millisecond)
	frames := atB.snapshot()

	assert.Equal(t, []byte{0, 0xAA}, frames[0])
	assert.NotEqual(t, []byte{2, 0xAA}, frames[1], "corrupted frame arrived intact")
	assert.Equal(t, []byte{3, 0xAA}, frames[2])
	assert.Equal(t, []byte{3, 0xAA}, frames[3])

	stats := p.Stats()
	assert.EqualValues(t, 1, stats.Dropped)
	assert.EqualValues(t, 1, stats.Corrupted)
	assert.EqualValues(t, 1, stats.Duplicated)
}

func TestPipe_CorruptFlipsBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := NewPipe(WithSeed(3), WithImpairments(Impairments{CorruptRate: 1, BurstLength: 5}))
	require.NoError(t, err)
	defer p.Close()

	var atB recorder
	p.B().OnFrameArrival(atB.handle)

	orig := bytes.Repeat([]byte{0x55}, 16)
	for i := 0; i < 20; i++ {
		p.A().Send(append([]byte(nil), orig...))
	}
	require.Eventually(t, func() bool { return atB.count() == 20 }, time.Second, time.Millisecond)

	for _, f := range atB.snapshot() {
		first, last := -1, -1
		for bit := 0; bit < len(f)*8; bit++ {
			if (f[bit/8]^orig[bit/8])&(0x80>>(bit%8)) != 0 {
				if first < 0 {
					first = bit
				}
				last = bit
			}
		}
		require.GreaterOrEqual(t, first, 0, "frame not corrupted")
		assert.Equal(t, 4, last-first, "burst span")
	}
}

func TestPipe_LatencyDelaysDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := NewPipe(WithImpairments(Impairments{Latency: 30 * time.Millisecond}))
	require.NoError(t, err)
	defer p.Close()

	var atB recorder
	p.B().OnFrameArrival(atB.handle)

	start := time.Now()
	p.A().Send([]byte("late"))
	require.Eventually(t, func() bool { return atB.count() == 1 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPipe_LossRateOne(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := NewPipe(WithImpairments(Impairments{LossRate: 1}))
	require.NoError(t, err)
	defer p.Close()

	var atB recorder
	p.B().OnFrameArrival(atB.handle)
	for i := 0; i < 10; i++ {
		p.A().Send([]byte{1})
	}
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atB.count())
	assert.EqualValues(t, 10, p.Stats().Dropped)
}

func TestPipe_SetImpairments(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, err := NewPipe()
	require.NoError(t, err)

	require.NoError(t, p.SetImpairments(Impairments{LossRate: 0.5}))
	assert.Equal(t, 0.5, p.Impairments().LossRate)

	err = p.SetImpairments(Impairments{LossRate: 2})
	assert.ErrorIs(t, err, ErrInvalidImpairments)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.SetImpairments(Impairments{}), ErrClosed)

	// Sends after close are ignored.
	p.A().Send([]byte{1})
}

func TestNewPipe_InvalidImpairments(t *testing.T) {
	_, err := NewPipe(WithImpairments(Impairments{Jitter: -time.Second}))
	assert.True(t, errors.Is(err, ErrInvalidImpairments))
}

func TestImpairments_Validate(t *testing.T) {
	tests := []struct {
		name    string
		imp     Impairments
		wantErr bool
	}{
		{"zero", Impairments{}, false},
		{"all rates one", Impairments{LossRate: 1, CorruptRate: 1, DuplicateRate: 1}, false},
		{"negative loss", Impairments{LossRate: -0.1}, true},
		{"corrupt above one", Impairments{CorruptRate: 1.5}, true},
		{"negative burst", Impairments{BurstLength: -1}, true},
		{"negative latency", Impairments{Latency: -time.Millisecond}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.imp.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImpairments)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadImpairmentsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
policy = "sr"

[channel]
loss = 0.2
corrupt = 0.05
burst = 4
latency = "3ms"
jitter = "1ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	imp, err := LoadImpairmentsFile(path)
	require.NoError(t, err)
	assert.Equal(t, Impairments{
		LossRate:    0.2,
		CorruptRate: 0.05,
		BurstLength: 4,
		Latency:     3 * time.Millisecond,
		Jitter:      time.Millisecond,
	}, imp)
}

func TestLoadImpairmentsFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadImpairmentsFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[channel]\nlatency = \"soon\"\n"), 0o644))
	_, err = LoadImpairmentsFile(bad)
	assert.ErrorIs(t, err, ErrInvalidImpairments)

	rate := filepath.Join(dir, "rate.toml")
	require.NoError(t, os.WriteFile(rate, []byte("[channel]\nloss = 1.5\n"), 0o644))
	_, err = LoadImpairmentsFile(rate)
	assert.ErrorIs(t, err, ErrInvalidImpairments)

	syntax := filepath.Join(dir, "syntax.toml")
	require.NoError(t, os.WriteFile(syntax, []byte("[channel\n"), 0o644))
	_, err = LoadImpairmentsFile(syntax)
	assert.Error(t, err)
}

func TestFileImpairments_OverlayWithout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[channel]\nloss = 0.2\nlatency = \"9ms\"\n"), 0o644))

	table, err := ReadImpairmentsFile(path)
	require.NoError(t, err)

	base := Impairments{LossRate: 0.1, CorruptRate: 0.05, Latency: 5 * time.Millisecond}
	imp, err := table.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, Impairments{LossRate: 0.2, CorruptRate: 0.05, Latency: 9 * time.Millisecond}, imp)

	imp, err = table.Without(map[string]bool{"latency": true}).Apply(base)
	require.NoError(t, err)
	assert.Equal(t, Impairments{LossRate: 0.2, CorruptRate: 0.05, Latency: 5 * time.Millisecond}, imp)
}
