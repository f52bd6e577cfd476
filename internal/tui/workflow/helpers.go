package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
)

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

func renderGlobalKeyHelp() string {
	km := DefaultKeyMap()
	s := renderKeyHelp(km.Quit, " ")
	s += renderKeyHelp(km.ForceQuit, "\n")
	return s
}

// describeError turns a wizard error into the line shown to the volunteer.
func describeError(err error) string {
	var (
		verr *session.ValidationError
		perr *session.PermissionError
		uerr *session.UploadError
	)

	switch {
	case errors.As(err, &verr):
		return "Please fill in all fields."
	case errors.As(err, &perr):
		return "Could not access the microphone. Check your input device and try again."
	case errors.As(err, &uerr):
		return fmt.Sprintf("Upload failed: %v. Press enter to try again.", uerr.Err)
	case errors.Is(err, session.ErrBusy):
		return "Please wait for the current action to finish."
	default:
		return err.Error()
	}
}

func renderError(err error) string {
	if err == nil {
		return ""
	}

	return style.Error.Render("✗ "+describeError(err)) + "\n\n"
}

// renderDrug frames the drug name.
func renderDrug(drug string) string {
	return style.Card.Render(style.Label.Render(drug)) + "\n\n"
}

// formatSeconds renders d with one decimal, e.g. "2.5s".
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
