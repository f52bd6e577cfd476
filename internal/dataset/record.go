package dataset

import (
	"time"

	"github.com/alkime/voicecollector/internal/session"
)

// Record is the manifest entry stored with each recording.
type Record struct {
	Key         string        `json:"key"`
	AudioID     string        `json:"audioId"`
	Drug        string        `json:"drug"`
	Gender      string        `json:"gender"`
	Pharmacy    string        `json:"pharmacy"`
	Timestamp   time.Time     `json:"timestamp"`
	ContentType string        `json:"contentType"`
	Bytes       int           `json:"bytes"`
	Duration    time.Duration `json:"durationNs"`
	Transcript  string        `json:"transcript,omitempty"`
}

// NewRecord builds the manifest entry for a recording stored under key.
func NewRecord(key string, audio *session.Audio, md session.Metadata, at time.Time) Record {
	return Record{
		Key:         key,
		AudioID:     audio.ID,
		Drug:        md.DrugName,
		Gender:      string(md.Gender),
		Pharmacy:    md.Affiliation(),
		Timestamp:   at.UTC(),
		ContentType: audio.ContentType,
		Bytes:       len(audio.Data),
		Duration:    audio.Duration,
	}
}

// Count is the number of recordings for one drug and gender.
type Count struct {
	Drug       string `json:"drug"`
	Gender     string `json:"gender"`
	Recordings int    `json:"recordings"`
}

// Filter narrows Manifest.List. Zero fields match everything.
type Filter struct {
	Drug   string
	Gender string
	Limit  int
}
