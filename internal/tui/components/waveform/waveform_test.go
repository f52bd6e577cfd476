package waveform_test

import (
	"strings"
	"testing"

	"github.com/alkime/voicecollector/internal/tui/components/waveform"
	"github.com/alkime/voicecollector/pkg/uictl"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func levels(samples ...int16) uictl.Levels[int16] {
	return uictl.LevelsFunc[int16](func() []int16 { return samples })
}

func TestWaveform_View(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		levels uictl.Levels[int16]
		width  int
		want   string
	}{
		{name: "nil levels", levels: nil, width: 5, want: "▁▁▁▁▁"},
		{name: "no samples", levels: levels(), width: 5, want: "▁▁▁▁▁"},
		{name: "silence", levels: levels(0, 0, 0, 0, 0), width: 5, want: "     "},
		{name: "full scale", levels: levels(32767, 32767, 32767, 32767, 32767), width: 5, want: "█████"},
		{name: "negative full scale", levels: levels(-32768, -32768, -32768), width: 3, want: "███"},
		{name: "fewer samples than columns", levels: levels(32767, 32767), width: 4, want: "██  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			view := waveform.New(tt.levels, tt.width, 1).View()
			assert.Equal(t, tt.want, view)
		})
	}
}

func TestWaveform_VaryingAmplitude(t *testing.T) {
	t.Parallel()

	view := waveform.New(levels(0, 8000, 32767, 8000, 0), 5, 1).View()

	runes := []rune(view)
	require.Len(t, runes, 5)
	assert.Equal(t, ' ', runes[0])
	assert.Equal(t, '█', runes[2])
	assert.Equal(t, runes[1], runes[3])
	assert.NotEqual(t, runes[1], runes[2])
}

func TestWaveform_AggregatesBuckets(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 100)
	samples[95] = 32767

	view := waveform.New(levels(samples...), 10, 1).View()

	assert.Equal(t, "         █", view, "the bucket peak wins")
}

func TestWaveform_MultiRow(t *testing.T) {
	t.Parallel()

	view := waveform.New(levels(32767, 0), 2, 3).View()

	lines := strings.Split(view, "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, "█ ", l)
	}

	t.Run("baseline on the bottom row", func(t *testing.T) {
		lines := strings.Split(waveform.New(nil, 3, 2).View(), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "   ", lines[0])
		assert.Equal(t, "▁▁▁", lines[1])
	})

	t.Run("height zero is one row", func(t *testing.T) {
		assert.NotContains(t, waveform.New(levels(32767), 5, 0).View(), "\n")
	})
}

func TestWaveform_Tick(t *testing.T) {
	t.Parallel()

	m := waveform.New(levels(1000), 5, 1)
	assert.NotNil(t, m.Init())

	_, cmd := m.Update(waveform.TickMsg{})
	assert.NotNil(t, cmd)

	_, cmd = m.Update("other")
	assert.Nil(t, cmd)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, waveform.Silent, waveform.Classify(nil))
	assert.Equal(t, waveform.Silent, waveform.Classify([]int16{10, -20}))
	assert.Equal(t, waveform.Quiet, waveform.Classify([]int16{1500}))
	assert.Equal(t, waveform.Good, waveform.Classify([]int16{-12000, 300}))
	assert.Equal(t, waveform.Clipping, waveform.Classify([]int16{-32768}))
}

func TestWaveform_Hint(t *testing.T) {
	t.Parallel()

	assert.Empty(t, waveform.New(nil, 5, 1).Hint())
	assert.Empty(t, waveform.New(levels(12000), 5, 1).Hint())
	assert.Contains(t, waveform.New(levels(0, 0), 5, 1).Hint(), "No sound yet")
	assert.Contains(t, waveform.New(levels(1500), 5, 1).Hint(), "quiet")
	assert.Contains(t, waveform.New(levels(32767), 5, 1).Hint(), "Too loud")
}
