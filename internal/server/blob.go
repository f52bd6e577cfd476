package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// readRecording reads a browser recording from the request body. The type
// is sniffed from the bytes; a declared Content-Type is kept when the bytes
// agree with it.
func readRecording(c *gin.Context, limit int64) (*session.Audio, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, newHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("recording exceeds %d bytes", limit))
		}

		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	if len(data) == 0 {
		return nil, newHTTPError(http.StatusBadRequest, "empty recording")
	}

	mt := mimetype.Detect(data)
	if !isAudio(mt) {
		return nil, newHTTPError(http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported recording type %s", mt.String()))
	}

	contentType := mt.String()
	if declared, _, err := mime.ParseMediaType(c.GetHeader("Content-Type")); err == nil && mt.Is(declared) {
		contentType = declared
	}

	var duration time.Duration
	if v := c.Query("durationMs"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			return nil, newHTTPError(http.StatusBadRequest, "durationMs must be a non-negative integer")
		}
		duration = time.Duration(ms) * time.Millisecond
	}

	return &session.Audio{
		ID:          uuid.NewString(),
		Data:        data,
		ContentType: contentType,
		Ext:         strings.TrimPrefix(mt.Extension(), "."),
		Duration:    duration,
	}, nil
}

func isAudio(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}

	// MediaRecorder output sniffs as a container type.
	return mt.Is("audio/webm") || mt.Is("application/ogg")
}
