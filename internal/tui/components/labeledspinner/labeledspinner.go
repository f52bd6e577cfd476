// Package labeledspinner shows a spinner next to a title while a background
// task runs, with optional detail lines and the time spent so far.
package labeledspinner

import (
	"fmt"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Detail is one "label: value" line under the title.
type Detail struct {
	Label string
	Value string
}

// Model displays a spinner with a title, detail lines and help text.
type Model struct {
	Spinner spinner.Model
	Title   string
	Details []Detail
	Help    string

	started time.Time
}

// New creates a labeled spinner.
func New(s spinner.Spinner, title, help string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner: sp,
		Title:   title,
		Help:    help,
	}
}

// Start marks the beginning of the task. Details from a previous run are
// dropped.
func (ls Model) Start(at time.Time) Model {
	ls.started = at
	ls.Details = nil

	return ls
}

// WithDetail returns a copy with one more detail line. Empty values are
// skipped.
func (ls Model) WithDetail(label, value string) Model {
	if value == "" {
		return ls
	}

	details := make([]Detail, len(ls.Details), len(ls.Details)+1)
	copy(details, ls.Details)
	ls.Details = append(details, Detail{Label: label, Value: value})

	return ls
}

// Elapsed returns the time since Start, or zero if the task was never started.
func (ls Model) Elapsed(now time.Time) time.Duration {
	if ls.started.IsZero() || now.Before(ls.started) {
		return 0
	}

	return now.Sub(ls.started)
}

// Init returns the initial command for the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update handles spinner tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// View renders the labeled spinner against the wall clock.
func (ls Model) View() string {
	return ls.ViewAt(time.Now())
}

// ViewAt renders the labeled spinner with the elapsed time measured at now.
func (ls Model) ViewAt(now time.Time) string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Title))

	if !ls.started.IsZero() {
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(fmt.Sprintf("%.0fs", ls.Elapsed(now).Seconds())))
	}

	sb.WriteString("\n\n")

	for _, d := range ls.Details {
		sb.WriteString(style.Label.Render(d.Label + ":"))
		sb.WriteString(" ")
		sb.WriteString(d.Value)
		sb.WriteString("\n")
	}

	if len(ls.Details) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString(style.Help.Render(ls.Help))

	return sb.String()
}
