package workflow

import (
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui/components/labeledspinner"
	"github.com/alkime/voicecollector/internal/tui/components/waveform"
	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
)

// recordKeyMap defines the key bindings for the record step.
type recordKeyMap struct {
	Toggle key.Binding
	Play   key.Binding
	Retake key.Binding
	Submit key.Binding
	Back   key.Binding
}

func defaultRecordKeyMap() recordKeyMap {
	return recordKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "start/stop recording"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play back"),
		),
		Retake: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retake"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc"),
			key.WithHelp("b", "back"),
		),
	}
}

// recordPhase captures, reviews and submits a take.
type recordPhase struct {
	deps      Deps
	keys      recordKeyMap
	spinner   spinner.Model
	stopwatch stopwatch.Model
	progress  progress.Model
	waveform  waveform.Model
	uploading labeledspinner.Model

	// pending is the blocking operation in flight, if any.
	pending string
	err     error
}

// NewRecord creates the record step screen.
func NewRecord(deps Deps) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Points

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &recordPhase{
		deps:      deps,
		keys:      defaultRecordKeyMap(),
		spinner:   s,
		stopwatch: stopwatch.New(),
		progress:  p,
		waveform:  waveform.New(deps.Levels, 40, 3),
		uploading: labeledspinner.New(spinner.Dot, "Uploading your recording", "Please wait..."),
	}
}

// Init returns the initial command for the record step.
// Entering the screen means none of its operations is in flight.
func (r *recordPhase) Init() tea.Cmd {
	r.err = nil
	r.pending = ""
	r.stopwatch = stopwatch.New()

	return tea.Batch(r.spinner.Tick, r.uploading.Init(), r.waveform.Init())
}

// Update handles messages for the record step.
func (r *recordPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch typedMsg := teaMsg.(type) {
	case tea.KeyMsg:
		return r, r.handleKey(typedMsg)

	case OpDoneMsg:
		return r, r.handleOpDone(typedMsg)

	case PlaybackStartedMsg:
		cmd, err := r.deps.handlePlayback(typedMsg)
		r.err = err

		return r, cmd

	case waveform.TickMsg:
		var cmd tea.Cmd
		r.waveform, cmd = r.waveform.Update(typedMsg)
		cmds = append(cmds, cmd, r.enforceLimit())

	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(typedMsg)
		cmds = append(cmds, cmd)

		r.uploading, cmd = r.uploading.Update(typedMsg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := r.progress.Update(typedMsg)
		r.progress = progressModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract
		cmds = append(cmds, cmd)
	}

	var stopwatchCmd tea.Cmd
	r.stopwatch, stopwatchCmd = r.stopwatch.Update(teaMsg)
	cmds = append(cmds, stopwatchCmd)

	return r, tea.Batch(cmds...)
}

func (r *recordPhase) handleKey(msg tea.KeyMsg) tea.Cmd {
	st := r.deps.Wizard.Snapshot()

	// Keys are ignored while an operation is in flight.
	if r.pending != "" || st.Uploading {
		return nil
	}

	switch {
	case key.Matches(msg, r.keys.Toggle):
		switch st.Recording {
		case session.RecordingIdle:
			r.err = nil
			r.pending = opStartCapture

			return r.deps.startCapture()
		case session.RecordingActive:
			r.pending = opStopCapture
			return r.deps.stopCapture()
		case session.RecordingCaptured:
			return nil
		}

	case key.Matches(msg, r.keys.Play):
		if st.Recording != session.RecordingCaptured || st.PlayingRecording {
			return nil
		}
		r.err = nil

		return r.deps.playRecording()

	case key.Matches(msg, r.keys.Retake):
		if st.Recording != session.RecordingCaptured {
			return nil
		}
		r.err = r.deps.Wizard.Retake()

		return r.stopwatch.Reset()

	case key.Matches(msg, r.keys.Submit):
		if st.Recording != session.RecordingCaptured {
			return nil
		}
		r.err = nil
		r.pending = opSubmit
		r.uploading = r.uploading.Start(time.Now())

		return r.deps.submit()

	case key.Matches(msg, r.keys.Back):
		r.err = r.deps.Wizard.Back()
		return r.stopwatch.Stop()
	}

	return nil
}

func (r *recordPhase) handleOpDone(msg OpDoneMsg) tea.Cmd {
	if msg.Op == r.pending {
		r.pending = ""
	}

	r.err = msg.Err

	switch msg.Op {
	case opStartCapture:
		if msg.Err != nil {
			return nil
		}

		return tea.Sequence(r.stopwatch.Reset(), r.stopwatch.Start())

	case opStopCapture:
		return r.stopwatch.Stop()
	}

	return nil
}

// enforceLimit stops the capture once the take limit is reached.
func (r *recordPhase) enforceLimit() tea.Cmd {
	if r.deps.Elapsed == nil || r.pending != "" {
		return nil
	}

	elapsed, limit := r.deps.Elapsed.Cap()
	if limit <= 0 || elapsed < limit {
		return nil
	}

	if r.deps.Wizard.Snapshot().Recording != session.RecordingActive {
		return nil
	}

	r.pending = opStopCapture

	return r.deps.stopCapture()
}

// View renders the record step UI.
func (r *recordPhase) View() string {
	st := r.deps.Wizard.Snapshot()

	if st.Uploading {
		u := r.uploading.WithDetail("Drug", st.Metadata.DrugName)
		if st.Audio != nil {
			u = u.WithDetail("Length", formatSeconds(st.Audio.Duration))
		}

		return u.View() + "\n"
	}

	var sb strings.Builder

	sb.WriteString(style.Title.Render("Record your pronunciation"))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render("Say the drug name clearly, then stop the recording."))
	sb.WriteString("\n\n")

	sb.WriteString(renderDrug(st.Metadata.DrugName))
	sb.WriteString(r.renderStatus(st))
	sb.WriteString("\n\n")

	sb.WriteString(r.waveform.View())
	sb.WriteString("\n")
	if st.Recording == session.RecordingActive {
		if hint := r.waveform.Hint(); hint != "" {
			sb.WriteString(hint)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(r.renderLimit())
	sb.WriteString("\n")

	sb.WriteString(renderError(r.err))
	sb.WriteString(r.renderHelp(st))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func (r *recordPhase) renderStatus(st session.State) string {
	switch {
	case st.RequestingMic:
		return r.spinner.View() + " " + style.Warning.Render("Requesting microphone...")

	case st.Recording == session.RecordingActive:
		return r.spinner.View() + " " + style.Title.Render("Recording") + " " +
			style.Subtitle.Render(r.stopwatch.View())

	case st.Recording == session.RecordingCaptured && st.PlayingRecording:
		return r.spinner.View() + " " + style.Progress.Render("Playing back...")

	case st.Recording == session.RecordingCaptured:
		s := style.Success.Render("Recorded")
		if st.Audio != nil {
			s += " " + style.Subtitle.Render(formatSeconds(st.Audio.Duration))
		}

		return s

	default:
		return style.Warning.Render("Ready") + " " + style.Subtitle.Render("press space to start")
	}
}

func (r *recordPhase) renderLimit() string {
	if r.deps.Elapsed == nil {
		return ""
	}

	elapsed, limit := r.deps.Elapsed.Cap()
	percent := float64(0)
	if limit > 0 {
		percent = min(1, float64(elapsed)/float64(limit))
	}

	return r.progress.ViewAs(percent) + "\n" +
		style.Subtitle.Render(formatSeconds(elapsed)+" / "+formatSeconds(limit)) + "\n"
}

func (r *recordPhase) renderHelp(st session.State) string {
	var sb strings.Builder

	switch st.Recording {
	case session.RecordingIdle, session.RecordingActive:
		sb.WriteString(renderKeyHelp(r.keys.Toggle, " "))
	case session.RecordingCaptured:
		sb.WriteString(renderKeyHelp(r.keys.Play, " "))
		sb.WriteString(renderKeyHelp(r.keys.Retake, " "))
		sb.WriteString(renderKeyHelp(r.keys.Submit, " "))
	}

	sb.WriteString(renderKeyHelp(r.keys.Back, "\n"))

	return sb.String()
}
