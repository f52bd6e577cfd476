package workflow

import (
	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/session"
)

// Wizard operations that run off the update loop.
const (
	opStartCapture = "start capture"
	opStopCapture  = "stop capture"
	opSubmit       = "submit"
)

// OpDoneMsg reports a finished blocking wizard operation.
type OpDoneMsg struct {
	Op  string
	Err error
}

// PlaybackStartedMsg is sent once the player accepted a playback request.
type PlaybackStartedMsg struct {
	Playback session.Playback
	Err      error
}

// PlaybackDoneMsg is sent when a playback ended, naturally or not.
type PlaybackDoneMsg struct {
	Token uint64
}

// HintMsg carries a pronunciation hint for Drug.
type HintMsg struct {
	Drug string
	Hint content.Hint
	Err  error
}
