// Package dataset stores finished recordings and their metadata.
package dataset

import (
	"path"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/session"
)

// Prefix is the top-level key prefix for all recordings.
const Prefix = "dataset"

// keyTimeLayout is RFC 3339 with milliseconds, always in UTC.
const keyTimeLayout = "2006-01-02T15:04:05.000Z"

// Key returns the storage key of a recording:
// dataset/<gender>/<drug>/audio_<timestamp>.<ext>, lower-cased, with ':' and
// '.' in the timestamp replaced by '-'.
func Key(md session.Metadata, at time.Time, ext string) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format(keyTimeLayout))

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}

	return path.Join(
		Prefix,
		strings.ToLower(string(md.Gender)),
		strings.ToLower(md.DrugName),
		"audio_"+ts+"."+ext,
	)
}
