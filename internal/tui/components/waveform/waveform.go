// Package waveform draws the live microphone level as a row of bars and
// tells the speaker when the take is too quiet or clipping.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/alkime/voicecollector/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Eighth blocks, empty to full.
const blocks = " ▁▂▃▄▅▆▇█"

const (
	silentBelow = 300
	quietBelow  = 3000
	clipAt      = 32000
)

const frameInterval = 50 * time.Millisecond

// TickMsg triggers a redraw.
type TickMsg struct{}

// Loudness classifies the peak of the recent window.
type Loudness int

const (
	Silent Loudness = iota
	Quiet
	Good
	Clipping
)

// Classify returns the loudness of samples.
func Classify(samples []int16) Loudness {
	peak := peakAmplitude(samples)

	switch {
	case peak < silentBelow:
		return Silent
	case peak < quietBelow:
		return Quiet
	case peak >= clipAt:
		return Clipping
	default:
		return Good
	}
}

// Model renders samples from a Levels control, oldest on the left.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a waveform width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// Init starts the redraw ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update keeps the ticker running.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, m.tick()
	}

	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) read() []int16 {
	if m.levels == nil {
		return nil
	}

	return m.levels.Read()
}

// View renders the bars, or a flat baseline when there is nothing to show.
func (m Model) View() string {
	samples := m.read()
	if len(samples) == 0 {
		return m.baseline()
	}

	heights := m.columnHeights(samples)
	rows := make([]string, m.height)

	for row := range rows {
		floor := (m.height - 1 - row) * 8
		rows[row] = style.Progress.Render(m.renderRow(heights, floor))
	}

	return strings.Join(rows, "\n")
}

// Hint returns advice for the speaker based on the recent level, or "" when
// the level is fine or nothing is being captured.
func (m Model) Hint() string {
	samples := m.read()
	if len(samples) == 0 {
		return ""
	}

	switch Classify(samples) {
	case Silent:
		return style.Warning.Render("No sound yet. Is the right microphone selected?")
	case Quiet:
		return style.Warning.Render("A little quiet. Speak up or move closer.")
	case Clipping:
		return style.Error.Render("Too loud. Move back from the microphone.")
	case Good:
	}

	return ""
}

func (m Model) renderRow(heights []int, floor int) string {
	glyphs := []rune(blocks)
	out := make([]rune, len(heights))

	for i, h := range heights {
		out[i] = glyphs[min(max(h-floor, 0), 8)]
	}

	return string(out)
}

// columnHeights splits samples into width buckets and maps each bucket's
// peak to 0..height*8 eighths.
func (m Model) columnHeights(samples []int16) []int {
	heights := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)
	top := m.height * 8

	for col := range heights {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		peak := peakAmplitude(samples[start:min(start+bucket, len(samples))])
		heights[col] = scale(peak, top)
	}

	return heights
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for i := range rows {
		rows[i] = strings.Repeat(" ", m.width)
	}
	rows[m.height-1] = strings.Repeat("▁", m.width)

	return style.Muted.Render(strings.Join(rows, "\n"))
}

// scale maps an amplitude to 0..top on a square-root curve so quiet speech
// is still visible.
func scale(amp int16, top int) int {
	if amp <= 0 {
		return 0
	}

	return min(int(math.Sqrt(float64(amp)/math.MaxInt16)*float64(top)), top)
}

func peakAmplitude(samples []int16) int16 {
	var peak int16

	for _, v := range samples {
		if v == math.MinInt16 {
			return math.MaxInt16
		}
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}

	return peak
}
