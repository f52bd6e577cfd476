package workflow

import (
	"strings"

	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type sampleKeyMap struct {
	Play key.Binding
	Next key.Binding
	Back key.Binding
}

func defaultSampleKeyMap() sampleKeyMap {
	return sampleKeyMap{
		Play: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "play sample"),
		),
		Next: key.NewBinding(
			key.WithKeys("enter", "n"),
			key.WithHelp("enter", "continue"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc"),
			key.WithHelp("b", "back"),
		),
	}
}

// samplePhase lets the volunteer hear the reference pronunciation.
type samplePhase struct {
	deps    Deps
	keys    sampleKeyMap
	spinner spinner.Model

	hintDrug string
	hint     *content.Hint
	err      error
}

// NewSample creates the sample step screen.
func NewSample(deps Deps) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	return &samplePhase{
		deps:    deps,
		keys:    defaultSampleKeyMap(),
		spinner: s,
	}
}

// Init fetches a hint for the selected drug when one is not cached.
func (p *samplePhase) Init() tea.Cmd {
	p.err = nil

	cmds := []tea.Cmd{p.spinner.Tick}

	drug := p.deps.Wizard.Snapshot().Metadata.DrugName
	if drug != p.hintDrug {
		p.hintDrug = drug
		p.hint = nil
		cmds = append(cmds, p.deps.fetchHint(drug))
	}

	return tea.Batch(cmds...)
}

// Update handles key presses and playback messages.
func (p *samplePhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Play):
			if p.deps.Wizard.Snapshot().PlayingSample {
				return p, nil
			}
			p.err = nil

			return p, p.deps.playSample()

		case key.Matches(msg, p.keys.Next):
			p.err = p.deps.Wizard.Next()
			return p, nil

		case key.Matches(msg, p.keys.Back):
			p.err = p.deps.Wizard.Back()
			return p, nil
		}

	case PlaybackStartedMsg:
		cmd, err := p.deps.handlePlayback(msg)
		p.err = err

		return p, cmd

	case HintMsg:
		if msg.Drug == p.hintDrug && msg.Err == nil {
			h := msg.Hint
			p.hint = &h
		}

		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)

		return p, cmd
	}

	return p, nil
}

// View renders the drug, the hint and the playback state.
func (p *samplePhase) View() string {
	st := p.deps.Wizard.Snapshot()

	var sb strings.Builder

	sb.WriteString(style.Title.Render("Listen to the sample"))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render("Hear how the drug name is pronounced before you record it."))
	sb.WriteString("\n\n")

	sb.WriteString(renderDrug(st.Metadata.DrugName))

	if p.hint != nil {
		sb.WriteString(renderHint(*p.hint))
	}

	if st.PlayingSample {
		sb.WriteString(p.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Progress.Render("Playing sample..."))
	} else {
		sb.WriteString(style.Muted.Render("Press p to hear the sample."))
	}

	sb.WriteString("\n\n")
	sb.WriteString(renderError(p.err))

	sb.WriteString(renderKeyHelp(p.keys.Play, " "))
	sb.WriteString(renderKeyHelp(p.keys.Next, " "))
	sb.WriteString(renderKeyHelp(p.keys.Back, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func renderHint(h content.Hint) string {
	var sb strings.Builder

	sb.WriteString(style.Label.Render("Say it like: "))
	sb.WriteString(h.Respelling)
	sb.WriteString("\n")

	if len(h.Syllables) > 0 {
		sb.WriteString(style.Label.Render("Syllables: "))
		sb.WriteString(strings.Join(h.Syllables, style.Bullet.Render(" · ")))
		sb.WriteString("\n")
	}

	if h.Tip != "" {
		sb.WriteString(style.Muted.Render(h.Tip))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	return sb.String()
}
