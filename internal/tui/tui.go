// Package tui is the terminal front end of the recording wizard.
package tui

import (
	"context"
	"strings"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui/components/phases"
	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/alkime/voicecollector/internal/tui/workflow"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Config wires the TUI to a wizard.
type Config struct {
	workflow.Deps

	// Cancel is called on quit to stop in-flight work.
	Cancel context.CancelFunc
}

// model is the root TUI model. The wizard owns the step; the phases
// container follows it.
type model struct {
	config       Config
	keys         workflow.KeyMap
	phases       phases.Model
	windowWidth  int
	windowHeight int
}

// New creates the root model with one phase per wizard step.
func New(config Config) tea.Model {
	screens := map[session.Step]func(workflow.Deps) tea.Model{
		session.StepInfo:    workflow.NewInfo,
		session.StepSample:  workflow.NewSample,
		session.StepRecord:  workflow.NewRecord,
		session.StepSuccess: workflow.NewSuccess,
	}

	steps := session.Steps()
	list := make([]phases.Phase, len(steps))
	for i, st := range steps {
		list[i] = phases.NewPhase(st.Label(), screens[st](config.Deps))
	}

	// Start on the wizard's current step.
	ph, _ := phases.New(list).Update(phases.GotoPhaseMsg{Index: int(config.Wizard.Snapshot().Step)})

	return &model{
		config:       config,
		keys:         workflow.DefaultKeyMap(),
		phases:       ph.(phases.Model), //nolint:forcetypeassert // phases.Model always returns phases.Model
		windowWidth:  80,
		windowHeight: 24,
	}
}

// Init returns the initial command.
func (m *model) Init() tea.Cmd {
	return m.phases.Init()
}

// Update handles all messages.
func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := teaMsg.(tea.WindowSizeMsg); ok {
		m.windowWidth = wsm.Width
		m.windowHeight = wsm.Height
	}

	if km, ok := teaMsg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.ForceQuit):
			return m, m.quit()

		// The info form takes text input, so q only quits elsewhere.
		case key.Matches(km, m.keys.Quit) && m.step() != session.StepInfo:
			return m, m.quit()
		}
	}

	// The record screen owns every wizard operation. Its results go back to
	// it even when the wizard has already moved to another step.
	if done, ok := teaMsg.(workflow.OpDoneMsg); ok && m.phases.Current() != int(session.StepRecord) {
		var cmd tea.Cmd
		m.phases, cmd = m.phases.UpdatePhase(int(session.StepRecord), done)

		return m, tea.Batch(cmd, m.follow())
	}

	updatedPhases, cmd := m.phases.Update(teaMsg)
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return m, tea.Batch(cmd, m.follow())
}

// follow moves the phases container to the wizard's step.
func (m *model) follow() tea.Cmd {
	step := int(m.step())
	if step == m.phases.Current() {
		return nil
	}

	updatedPhases, cmd := m.phases.Update(phases.GotoPhaseMsg{Index: step})
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return cmd
}

func (m *model) step() session.Step {
	return m.config.Wizard.Snapshot().Step
}

func (m *model) quit() tea.Cmd {
	m.config.Wizard.Close()

	if m.config.Cancel != nil {
		m.config.Cancel()
	}

	return tea.Quit
}

// View renders the current UI.
func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Subtitle.Render("Drug name pronunciation"))
	sb.WriteString("\n")
	sb.WriteString(m.phases.Header())
	sb.WriteString("\n\n")

	sb.WriteString(m.phases.View())

	return sb.String()
}
