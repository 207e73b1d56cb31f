package seedstream

import (
	"testing"
)

// Reference splitmix64 outputs.
func TestGeneratorKnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		state uint64
		want  []uint64
	}{
		{"zero", 0, []uint64{0xe220a8397b1dcdaf, 0x6e789e6aa1b965f4, 0x06c45d188009454f}},
		{"1234567", 1234567, []uint64{6457827717110365317, 3203168211198807973, 9817491932198370423}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.state)
			for i, want := range tt.want {
				if got := g.Next(); got != want {
					t.Fatalf("next #%d: got %#x, want %#x", i, got, want)
				}
			}
		})
	}
}

// Pinned outputs. Any change here reshuffles every stored composition.
func TestDrawKnownValues(t *testing.T) {
	tests := []struct {
		seed   uint64
		stream uint32
		draw   uint32
		want   uint64
	}{
		{0, StreamScene, 0, 0x83318a9282400131},
		{1, StreamScene, 0, 0x810145e2f14b896d},
		{1232, StreamGate, 0, 0x0ed2a89f7d1f73ae},
		{1232, StreamGate, 1, 0xc81a1c4176c70b75},
		{1232, StreamReceipt, 0, 0x9b7337b29c067034},
		{1232, StreamRetryFirst, 5, 0x962c6c3e9c1a8efa},
		{42, StreamExtraFirst, 3, 0x3a2f0bd99d26e44f},
		{^uint64(0), StreamRetryLast, 0, 0xc628bf7d12496cd7},
		{1 << 63, StreamInteraction, 100, 0xefc10cdbe9957b02},
	}
	for _, tt := range tests {
		if got := Draw(tt.seed, tt.stream, tt.draw); got != tt.want {
			t.Errorf("Draw(%d, %d, %d) = %#x, want %#x", tt.seed, tt.stream, tt.draw, got, tt.want)
		}
	}
}

func TestDrawDeterministic(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		for stream := uint32(0); stream < 16; stream++ {
			a := Draw(seed, stream, 3)
			b := Draw(seed, stream, 3)
			if a != b {
				t.Fatalf("seed=%d stream=%d: %d != %d", seed, stream, a, b)
			}
		}
	}
}

func TestDrawMatchesForStream(t *testing.T) {
	for _, seed := range []uint64{0, 1, 1232, 1 << 40, ^uint64(0)} {
		for stream := uint32(0); stream < 20; stream++ {
			g := ForStream(seed, stream)
			for d := uint32(0); d < 8; d++ {
				if got, want := g.Next(), Draw(seed, stream, d); got != want {
					t.Fatalf("seed=%d stream=%d draw=%d: generator %d, Draw %d", seed, stream, d, got, want)
				}
			}
		}
	}
}

func TestDrawStreamsDiffer(t *testing.T) {
	seen := make(map[uint64]uint32)
	for stream := uint32(0); stream < 64; stream++ {
		v := Draw(1232, stream, 0)
		if prev, ok := seen[v]; ok {
			t.Fatalf("streams %d and %d collide on first draw", prev, stream)
		}
		seen[v] = stream
	}
}

// A 4x4 contingency table of the top two bits of two streams over many seeds
// should not reject independence. 27.88 is the chi-square critical value for
// 9 degrees of freedom at p = 0.001.
func TestStreamIndependence(t *testing.T) {
	const n = 20000
	pairs := [][2]uint32{{0, 1}, {0, 6}, {3, 4}, {7, 8}, {StreamRetryFirst, StreamRetryLast}}
	for _, p := range pairs {
		var table [4][4]float64
		for seed := uint64(0); seed < n; seed++ {
			a := Draw(seed, p[0], 0) >> 62
			b := Draw(seed, p[1], 0) >> 62
			table[a][b]++
		}
		var chi float64
		expected := float64(n) / 16
		for i := range table {
			for j := range table[i] {
				d := table[i][j] - expected
				chi += d * d / expected
			}
		}
		if chi > 27.88 {
			t.Errorf("streams %d/%d: chi-square %.2f suggests correlation", p[0], p[1], chi)
		}
	}
}

func TestRetryStream(t *testing.T) {
	for attempt := 0; attempt < RetryStreams; attempt++ {
		s, ok := RetryStream(attempt)
		if !ok {
			t.Fatalf("attempt %d: expected a stream", attempt)
		}
		if !IsRetry(s) {
			t.Fatalf("attempt %d: stream %d outside retry block", attempt, s)
		}
	}
	if _, ok := RetryStream(RetryStreams); ok {
		t.Fatal("expected retry block to be exhausted")
	}
	if _, ok := RetryStream(-1); ok {
		t.Fatal("negative attempt must not map to a stream")
	}
	if IsRetry(StreamReceipt) || IsRetry(StreamExtraFirst) {
		t.Fatal("non-retry stream reported as retry")
	}
}
