package session

import (
	"context"
	"fmt"
	"time"
)

// Step is a wizard step. Steps are strictly ordered.
type Step int

const (
	StepInfo Step = iota
	StepSample
	StepRecord
	StepSuccess
)

// Steps returns all steps in order.
func Steps() []Step {
	return []Step{StepInfo, StepSample, StepRecord, StepSuccess}
}

func (s Step) String() string {
	switch s {
	case StepInfo:
		return "info"
	case StepSample:
		return "sample"
	case StepRecord:
		return "record"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Label returns the human-readable step name.
func (s Step) Label() string {
	switch s {
	case StepInfo:
		return "Info"
	case StepSample:
		return "Sample"
	case StepRecord:
		return "Record"
	case StepSuccess:
		return "Success"
	default:
		return "Unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for _, st := range Steps() {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown step %q", text)
}

// RecordingStatus is the state of the capture for the current session.
type RecordingStatus int

const (
	RecordingIdle RecordingStatus = iota
	RecordingActive
	RecordingCaptured
)

func (r RecordingStatus) String() string {
	switch r {
	case RecordingIdle:
		return "idle"
	case RecordingActive:
		return "recording"
	case RecordingCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

func (r RecordingStatus) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Audio is a captured recording owned by the session.
type Audio struct {
	ID          string
	Data        []byte // encoded bytes handed to the upload sink
	ContentType string
	Ext         string // file extension without the dot

	// PCM is optional S16LE audio kept for local review playback.
	PCM        []byte
	SampleRate int
	Channels   int

	Duration   time.Duration
	CapturedAt time.Time
}

// AudioInfo is the serialisable summary of an Audio.
type AudioInfo struct {
	ID          string        `json:"id"`
	ContentType string        `json:"contentType"`
	Bytes       int           `json:"bytes"`
	Duration    time.Duration `json:"durationNs"`
	CapturedAt  time.Time     `json:"capturedAt"`
}

func (a *Audio) Info() *AudioInfo {
	if a == nil {
		return nil
	}

	return &AudioInfo{
		ID:          a.ID,
		ContentType: a.ContentType,
		Bytes:       len(a.Data),
		Duration:    a.Duration,
		CapturedAt:  a.CapturedAt,
	}
}

// Receipt describes a completed upload.
type Receipt struct {
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploadedAt"`
	Metadata   Metadata  `json:"metadata"`
}

// Stream is an open capture handle. Its concrete type belongs to the Capturer.
type Stream any

// Capturer is the microphone capture service.
type Capturer interface {
	// Request opens the microphone and starts capturing.
	Request(ctx context.Context) (Stream, error)
	// Stop ends capture, releases the device and returns the recording.
	Stop(ctx context.Context, s Stream) (*Audio, error)
	// Release abandons a stream without producing audio. It must be safe to
	// call after Stop.
	Release(s Stream)
}

// SourceKind distinguishes what a Player is asked to play.
type SourceKind int

const (
	SourceSample SourceKind = iota
	SourceRecording
)

// Source is a playback request.
type Source struct {
	Kind     SourceKind
	DrugName string // set for SourceSample
	Audio    *Audio // set for SourceRecording
}

// Player is the audio playback service. The returned channel is closed when
// playback ends. Cancelling ctx stops playback.
type Player interface {
	Play(ctx context.Context, src Source) (<-chan struct{}, error)
}

// Uploader is the upload sink.
type Uploader interface {
	Upload(ctx context.Context, audio *Audio, md Metadata) (Receipt, error)
}

// Playback identifies a started playback. Pass Token to Wizard.PlaybackEnded
// once Done is closed.
type Playback struct {
	Token uint64
	Done  <-chan struct{}
}

// State is a point-in-time copy of the wizard for rendering.
type State struct {
	ID               string          `json:"id"`
	Step             Step            `json:"step"`
	Metadata         Metadata        `json:"metadata"`
	Recording        RecordingStatus `json:"recording"`
	Audio            *AudioInfo      `json:"audio,omitempty"`
	RequestingMic    bool            `json:"requestingMic"`
	PlayingSample    bool            `json:"playingSample"`
	PlayingRecording bool            `json:"playingRecording"`
	Uploading        bool            `json:"uploading"`
	Receipt          *Receipt        `json:"receipt,omitempty"`
}
