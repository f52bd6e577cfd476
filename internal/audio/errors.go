package audio

import "errors"

var (
	// ErrPermissionDenied is returned when the microphone cannot be opened.
	ErrPermissionDenied = errors.New("microphone permission denied or device unavailable")
	// ErrNoAudio is returned when a recording has nothing to play.
	ErrNoAudio = errors.New("no audio to play")
	// ErrUnknownStream is returned for streams not opened by this Microphone.
	ErrUnknownStream = errors.New("unknown capture stream")
)
