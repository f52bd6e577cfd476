package server

import (
	"errors"
	"net/http"

	"github.com/alkime/voicecollector/internal/samples"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/gin-gonic/gin"
)

// httpError carries a status for request problems found by the handlers.
type httpError struct {
	status int
	msg    string
}

func newHTTPError(status int, msg string) *httpError {
	return &httpError{status: status, msg: msg}
}

func (e *httpError) Error() string {
	return e.msg
}

// statusFor maps wizard and handler errors to HTTP statuses.
func statusFor(err error) int {
	var (
		herr *httpError
		verr *session.ValidationError
		perr *session.PermissionError
		uerr *session.UploadError
	)

	switch {
	case errors.As(err, &herr):
		return herr.status
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &perr):
		return http.StatusForbidden
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrInvalidStep),
		errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, samples.ErrSampleNotFound), errors.Is(err, samples.ErrUnknownDrug):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error body and stops the handler chain.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)

	body := gin.H{"error": err.Error()}

	var verr *session.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	c.AbortWithStatusJSON(status, body)
}
