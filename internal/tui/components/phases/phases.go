// Package phases provides an ordered container of screens with a stepper
// header.
package phases

import (
	"strings"

	"github.com/alkime/voicecollector/internal/tui/style"
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg signals the phases container to advance to the next phase.
type NextPhaseMsg struct{}

// PrevPhaseMsg signals the phases container to go back to the previous phase.
type PrevPhaseMsg struct{}

// GotoPhaseMsg jumps to the phase at Index. Out of range indexes are ignored.
type GotoPhaseMsg struct {
	Index int
}

// NextPhaseCmd advances to the next phase.
func NextPhaseCmd() tea.Msg {
	return NextPhaseMsg{}
}

// PrevPhaseCmd goes back one phase.
func PrevPhaseCmd() tea.Msg {
	return PrevPhaseMsg{}
}

// GotoPhaseCmd returns a command that jumps to phase i.
func GotoPhaseCmd(i int) tea.Cmd {
	return func() tea.Msg {
		return GotoPhaseMsg{Index: i}
	}
}

type Phase struct {
	Name string
	mdl  tea.Model
}

func (p Phase) Init() tea.Cmd {
	return p.mdl.Init()
}

func (p Phase) Update(msg tea.Msg) (Phase, tea.Cmd) {
	updatedMdl, cmd := p.mdl.Update(msg)
	p.mdl = updatedMdl
	return p, cmd
}

func (p Phase) View() string {
	return p.mdl.View()
}

func NewPhase(name string, mdl tea.Model) Phase {
	return Phase{
		Name: name,
		mdl:  mdl,
	}
}

type Model struct {
	phases []Phase
	curr   int
}

func New(phases []Phase) Model {
	return Model{
		phases: phases,
		curr:   0,
	}
}

func (m Model) currentPhase() Phase {
	return m.phases[m.curr]
}

func (m Model) Init() tea.Cmd {
	return m.currentPhase().Init()
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case NextPhaseMsg:
		if m.curr >= len(m.phases)-1 {
			return m, nil
		}
		m.curr++
		initCmd := m.currentPhase().Init()
		return m, initCmd

	case PrevPhaseMsg:
		if m.curr <= 0 {
			return m, nil
		}
		m.curr--
		return m, m.currentPhase().Init()

	case GotoPhaseMsg:
		if msg.Index < 0 || msg.Index >= len(m.phases) || msg.Index == m.curr {
			return m, nil
		}
		m.curr = msg.Index
		return m, m.currentPhase().Init()
	}

	ph, cmd := m.currentPhase().Update(teaMsg)
	m.phases[m.curr] = ph

	return m, cmd
}

// UpdatePhase passes msg to the phase at index, current or not.
func (m Model) UpdatePhase(index int, msg tea.Msg) (Model, tea.Cmd) {
	if index < 0 || index >= len(m.phases) {
		return m, nil
	}

	ph, cmd := m.phases[index].Update(msg)
	m.phases[index] = ph

	return m, cmd
}

func (m Model) View() string {
	return m.currentPhase().View()
}

// CurrentPhaseName returns the name of the current phase.
func (m Model) CurrentPhaseName() string {
	return m.currentPhase().Name
}

// Current returns the index of the current phase.
func (m Model) Current() int {
	return m.curr
}

// Header renders the phase names as a stepper. Finished phases get a check
// mark and the current one is highlighted.
func (m Model) Header() string {
	parts := make([]string, len(m.phases))

	for i, p := range m.phases {
		switch {
		case i < m.curr:
			parts[i] = style.StepDone.Render("✓ " + p.Name)
		case i == m.curr:
			parts[i] = style.StepCurrent.Render("● " + p.Name)
		default:
			parts[i] = style.StepPending.Render("○ " + p.Name)
		}
	}

	return strings.Join(parts, style.Muted.Render(" › "))
}
