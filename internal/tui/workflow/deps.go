// Package workflow provides the TUI screens for each wizard step.
package workflow

import (
	"context"
	"time"

	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// HintSource produces pronunciation hints for the sample step.
type HintSource interface {
	Hint(ctx context.Context, drug string) (content.Hint, error)
}

// Deps are shared by every screen. Hints, Levels and Elapsed are optional.
type Deps struct {
	Ctx    context.Context
	Wizard *session.Wizard
	Hints  HintSource

	// Levels feeds the waveform while capturing.
	Levels uictl.Levels[int16]
	// Elapsed reports captured time against the take limit.
	Elapsed uictl.CappedDial[time.Duration]
}

func (d Deps) ctx() context.Context {
	if d.Ctx == nil {
		return context.Background()
	}

	return d.Ctx
}

func (d Deps) playSample() tea.Cmd {
	return func() tea.Msg {
		pb, err := d.Wizard.PlaySample(d.ctx())
		return PlaybackStartedMsg{Playback: pb, Err: err}
	}
}

func (d Deps) playRecording() tea.Cmd {
	return func() tea.Msg {
		pb, err := d.Wizard.PlayRecording(d.ctx())
		return PlaybackStartedMsg{Playback: pb, Err: err}
	}
}

func (d Deps) waitPlayback(pb session.Playback) tea.Cmd {
	return func() tea.Msg {
		d.Wizard.WaitPlayback(d.ctx(), pb)
		return PlaybackDoneMsg{Token: pb.Token}
	}
}

func (d Deps) startCapture() tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: opStartCapture, Err: d.Wizard.StartCapture(d.ctx())}
	}
}

func (d Deps) stopCapture() tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: opStopCapture, Err: d.Wizard.StopCapture(d.ctx())}
	}
}

func (d Deps) submit() tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: opSubmit, Err: d.Wizard.Submit(d.ctx())}
	}
}

func (d Deps) fetchHint(drug string) tea.Cmd {
	if d.Hints == nil || drug == "" {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(d.ctx(), 20*time.Second)
		defer cancel()

		h, err := d.Hints.Hint(ctx, drug)
		return HintMsg{Drug: drug, Hint: h, Err: err}
	}
}

// handlePlayback follows a started playback until it ends.
func (d Deps) handlePlayback(msg PlaybackStartedMsg) (tea.Cmd, error) {
	if msg.Err != nil {
		return nil, msg.Err
	}

	return d.waitPlayback(msg.Playback), nil
}
