package workflow

import (
	"strings"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type successKeyMap struct {
	Again key.Binding
}

func defaultSuccessKeyMap() successKeyMap {
	return successKeyMap{
		Again: key.NewBinding(
			key.WithKeys("enter", "n"),
			key.WithHelp("enter", "record another"),
		),
	}
}

// successPhase confirms the submission.
type successPhase struct {
	deps Deps
	keys successKeyMap
}

// NewSuccess creates the success step screen.
func NewSuccess(deps Deps) tea.Model {
	return &successPhase{
		deps: deps,
		keys: defaultSuccessKeyMap(),
	}
}

func (s *successPhase) Init() tea.Cmd {
	return nil
}

// Update starts a new session on request. The wizard returns to Info.
func (s *successPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := teaMsg.(tea.KeyMsg); ok && key.Matches(km, s.keys.Again) {
		s.deps.Wizard.Reset()
	}

	return s, nil
}

func (s *successPhase) View() string {
	st := s.deps.Wizard.Snapshot()

	var sb strings.Builder

	sb.WriteString(style.Success.Render("✓ Thank you! Your recording was submitted."))
	sb.WriteString("\n\n")

	if st.Receipt != nil {
		sb.WriteString(renderReceipt(*st.Receipt))
	}

	sb.WriteString(renderKeyHelp(s.keys.Again, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func renderReceipt(r session.Receipt) string {
	var sb strings.Builder

	sb.WriteString(style.Bullet.Render("• "))
	sb.WriteString(style.Label.Render("Recorded: "))
	sb.WriteString(r.Metadata.DrugName)
	sb.WriteString("\n")

	sb.WriteString(style.Bullet.Render("• "))
	sb.WriteString(style.Label.Render("Affiliation: "))
	sb.WriteString(r.Metadata.Affiliation())
	sb.WriteString("\n")

	sb.WriteString(style.Bullet.Render("• "))
	sb.WriteString(style.Label.Render("Gender: "))
	sb.WriteString(string(r.Metadata.Gender))
	sb.WriteString("\n\n")

	sb.WriteString(style.Muted.Render("Saved as " + r.Key))
	sb.WriteString("\n\n")

	return sb.String()
}
