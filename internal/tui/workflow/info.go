package workflow

import (
	"errors"
	"strings"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui/style"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// infoValues backs the form fields. It lives on the heap so the form keeps
// valid pointers across updates.
type infoValues struct {
	affiliated bool
	pharmacy   string
	gender     session.Gender
	drug       string
}

func (v *infoValues) metadata() session.Metadata {
	return session.Metadata{
		AffiliatedWithPharmacy: v.affiliated,
		PharmacyName:           v.pharmacy,
		Gender:                 v.gender,
		DrugName:               v.drug,
	}
}

func valuesFrom(md session.Metadata) *infoValues {
	return &infoValues{
		affiliated: md.AffiliatedWithPharmacy,
		pharmacy:   md.PharmacyName,
		gender:     md.Gender,
		drug:       md.DrugName,
	}
}

// infoPhase collects the volunteer's details.
type infoPhase struct {
	deps   Deps
	values *infoValues
	form   *huh.Form
	err    error
}

// NewInfo creates the info step screen.
func NewInfo(deps Deps) tea.Model {
	p := &infoPhase{deps: deps}
	p.reset(session.Metadata{})

	return p
}

// reset rebuilds the form around md. A completed huh form cannot be reused.
func (p *infoPhase) reset(md session.Metadata) {
	p.values = valuesFrom(md)
	p.form = newInfoForm(p.values)
}

func newInfoForm(v *infoValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("affiliated").
				Title("Are you affiliated with a pharmacy?").
				Affirmative("Yes").
				Negative("No").
				Value(&v.affiliated),
		),
		huh.NewGroup(
			huh.NewInput().
				Key(session.FieldPharmacyName).
				Title("Pharmacy name").
				Placeholder("e.g. Central Pharmacy").
				CharLimit(120).
				Value(&v.pharmacy).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("pharmacy name is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return !v.affiliated }),
		huh.NewGroup(
			huh.NewSelect[session.Gender]().
				Key(session.FieldGender).
				Title("Gender").
				Options(huh.NewOptions(session.Genders()...)...).
				Value(&v.gender),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key(session.FieldDrugName).
				Title("Drug to pronounce").
				Options(huh.NewOptions(session.Drugs()...)...).
				Height(8).
				Value(&v.drug),
		),
	).WithShowHelp(true).WithShowErrors(true).WithWidth(60)
}

// Init rebuilds the form from the wizard so going back keeps earlier answers.
func (p *infoPhase) Init() tea.Cmd {
	p.err = nil
	p.reset(p.deps.Wizard.Snapshot().Metadata)

	return p.form.Init()
}

// Update feeds the form and submits it to the wizard once completed.
func (p *infoPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := p.form.Update(teaMsg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State != huh.StateCompleted {
		return p, cmd
	}

	if err := p.deps.Wizard.SubmitInfo(p.values.metadata()); err != nil {
		p.err = err
		p.form = newInfoForm(p.values)

		return p, tea.Batch(cmd, p.form.Init())
	}

	p.err = nil

	return p, cmd
}

// View renders the form.
func (p *infoPhase) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Tell us about yourself"))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render("Your answers are stored with the recording."))
	sb.WriteString("\n\n")

	sb.WriteString(p.form.View())
	sb.WriteString("\n\n")

	sb.WriteString(renderError(p.err))
	sb.WriteString(style.Help.Render("Press ctrl+c to exit."))
	sb.WriteString("\n")

	return sb.String()
}
