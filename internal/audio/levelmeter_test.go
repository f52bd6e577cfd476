package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/voicecollector/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelMeter_Recent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		size   int
		writes [][]int16
		n      int
		want   []int16
	}{
		{name: "partial window", size: 10, writes: [][]int16{{1, 2, 3, 4, 5}}, n: 5, want: []int16{1, 2, 3, 4, 5}},
		{name: "empty write", size: 10, writes: [][]int16{{}}, n: 5, want: nil},
		{name: "wraps around", size: 5, writes: [][]int16{{1, 2, 3, 4, 5, 6, 7}}, n: 5, want: []int16{3, 4, 5, 6, 7}},
		{name: "batches", size: 5, writes: [][]int16{{1, 2}, {3, 4}, {5, 6}}, n: 5, want: []int16{2, 3, 4, 5, 6}},
		{name: "fewer than held", size: 10, writes: [][]int16{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}, n: 3, want: []int16{8, 9, 10}},
		{name: "more than held", size: 10, writes: [][]int16{{1, 2, 3}}, n: 10, want: []int16{1, 2, 3}},
		{name: "zero", size: 10, writes: [][]int16{{1, 2, 3}}, n: 0, want: nil},
		{name: "negative", size: 10, writes: [][]int16{{1, 2, 3}}, n: -1, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := audio.NewLevelMeter(tt.size)
			for _, w := range tt.writes {
				m.Write(w)
			}

			require.Equal(t, tt.want, m.Recent(tt.n))
			require.LessOrEqual(t, m.Len(), tt.size)
		})
	}
}

func TestLevelMeter_PeakAndClipping(t *testing.T) {
	t.Parallel()

	m := audio.NewLevelMeter(2)
	m.Write([]int16{100, -2000, 300})
	m.Write([]int16{-32768, 32000, 5})

	assert.Equal(t, int16(32767), m.Peak(), "peak outlives the window")
	assert.Equal(t, 2, m.Clipped())
	assert.Equal(t, []int16{32000, 5}, m.Recent(2))

	m.Reset()

	assert.Zero(t, m.Peak())
	assert.Zero(t, m.Clipped())
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Recent(2))

	m.Write([]int16{-9})
	assert.Equal(t, []int16{-9}, m.Recent(2))
	assert.Equal(t, int16(9), m.Peak())
}

func TestAmplitude(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int16(0), audio.Amplitude(0))
	assert.Equal(t, int16(12), audio.Amplitude(-12))
	assert.Equal(t, int16(32767), audio.Amplitude(-32768))
	assert.Equal(t, int16(32767), audio.Amplitude(32767))
}

func TestLevelMeter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := audio.NewLevelMeter(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		v := int16(0)
		for ctx.Err() == nil {
			m.Write([]int16{v, v + 1, v + 2})
			v += 3
		}
	}()

	for ctx.Err() == nil {
		_ = m.Recent(10)
		_ = m.Peak()
	}
}
