package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alkime/voicecollector/internal/samples"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	entryKey      = "session"
	uploadTimeout = time.Minute
)

// playbackResponse tells the browser what to play and which token to
// report back when it finishes.
type playbackResponse struct {
	Token uint64        `json:"token"`
	URL   string        `json:"url"`
	State session.State `json:"state"`
}

func (s *Server) handleDrugs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"drugs":   session.Drugs(),
		"genders": session.Genders(),
	})
}

func (s *Server) handleSample(c *gin.Context) {
	if s.deps.Samples == nil {
		s.abortWithError(c, samples.ErrSampleNotFound)
		return
	}

	name, ok := session.LookupDrug(c.Param("drug"))
	if !ok {
		s.abortWithError(c, samples.ErrUnknownDrug)
		return
	}

	rc, err := s.deps.Samples.Open(name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "audio/mpeg", rc, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}

func (s *Server) handleHint(c *gin.Context) {
	if s.deps.Hints == nil {
		s.abortWithError(c, newHTTPError(http.StatusNotFound, "pronunciation hints are disabled"))
		return
	}

	name, ok := session.LookupDrug(c.Param("drug"))
	if !ok {
		s.abortWithError(c, samples.ErrUnknownDrug)
		return
	}

	hint, err := s.deps.Hints.Hint(c.Request.Context(), name)
	if err != nil {
		s.abortWithError(c, newHTTPError(http.StatusBadGateway, err.Error()))
		return
	}

	c.JSON(http.StatusOK, hint)
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Stats == nil {
		s.abortWithError(c, newHTTPError(http.StatusServiceUnavailable, "no manifest configured"))
		return
	}

	counts, err := s.deps.Stats.Counts(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n.Recordings
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "counts": counts})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	e, err := s.sessions.Create()
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.logger.Info("session created", "session", e.wizard.ID())
	c.JSON(http.StatusCreated, e.wizard.Snapshot())
}

// loadSession resolves :id for the session routes.
func (s *Server) loadSession(c *gin.Context) {
	e, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		s.abortWithError(c, newHTTPError(http.StatusNotFound, "session not found"))
		return
	}

	c.Set(entryKey, e)
	c.Next()
}

func sessionEntry(c *gin.Context) *entry {
	return c.MustGet(entryKey).(*entry) //nolint:forcetypeassert // set by loadSession
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionEntry(c).wizard.Snapshot())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// respond writes the snapshot, or the error of the operation.
func (s *Server) respond(c *gin.Context, e *entry, err error) {
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, e.wizard.Snapshot())
}

func (s *Server) handleSubmitInfo(c *gin.Context) {
	e := sessionEntry(c)

	var md session.Metadata
	if err := c.ShouldBindJSON(&md); err != nil {
		s.abortWithError(c, newHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error()))
		return
	}

	s.respond(c, e, e.wizard.SubmitInfo(md))
}

func (s *Server) handleNext(c *gin.Context) {
	e := sessionEntry(c)
	s.respond(c, e, e.wizard.Next())
}

func (s *Server) handleBack(c *gin.Context) {
	e := sessionEntry(c)
	s.respond(c, e, e.wizard.Back())
}

func (s *Server) handleReset(c *gin.Context) {
	e := sessionEntry(c)
	e.wizard.Reset()
	s.respond(c, e, nil)
}

func (s *Server) handleRetake(c *gin.Context) {
	e := sessionEntry(c)
	s.respond(c, e, e.wizard.Retake())
}

// Playback outlives the request that started it.
func playbackContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) handlePlaySample(c *gin.Context) {
	e := sessionEntry(c)

	pb, err := e.wizard.PlaySample(playbackContext(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	go e.wizard.WaitPlayback(context.Background(), pb)

	st := e.wizard.Snapshot()
	c.JSON(http.StatusOK, playbackResponse{
		Token: pb.Token,
		URL:   "/api/v1/samples/" + strings.ToLower(st.Metadata.DrugName),
		State: st,
	})
}

func (s *Server) handlePlayRecording(c *gin.Context) {
	e := sessionEntry(c)

	pb, err := e.wizard.PlayRecording(playbackContext(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	go e.wizard.WaitPlayback(context.Background(), pb)

	c.JSON(http.StatusOK, playbackResponse{
		Token: pb.Token,
		URL:   "/api/v1/sessions/" + e.wizard.ID() + "/recording",
		State: e.wizard.Snapshot(),
	})
}

func (s *Server) handleGetRecording(c *gin.Context) {
	a := sessionEntry(c).wizard.Audio()
	if a == nil {
		s.abortWithError(c, newHTTPError(http.StatusNotFound, "no recording"))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

func (s *Server) handlePlaybackEnded(c *gin.Context) {
	e := sessionEntry(c)

	token, err := strconv.ParseUint(c.Param("token"), 10, 64)
	if err != nil {
		s.abortWithError(c, newHTTPError(http.StatusBadRequest, "invalid playback token"))
		return
	}

	current := e.wizard.PlaybackEnded(token)

	c.JSON(http.StatusOK, gin.H{
		"current": current,
		"state":   e.wizard.Snapshot(),
	})
}

func (s *Server) handleCaptureStart(c *gin.Context) {
	e := sessionEntry(c)
	s.respond(c, e, e.wizard.StartCapture(c.Request.Context()))
}

// handleCaptureStop takes the browser's recording as the request body.
func (s *Server) handleCaptureStop(c *gin.Context) {
	e := sessionEntry(c)

	rec, err := readRecording(c, s.config.MaxUploadBytes)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	e.capture.Feed(rec)
	err = e.wizard.StopCapture(c.Request.Context())
	// A blob the wizard did not take must not leak into the next capture.
	e.capture.Feed(nil)

	s.respond(c, e, err)
}

func (s *Server) handleSubmit(c *gin.Context) {
	e := sessionEntry(c)

	// The upload finishes even if the browser goes away; the result is
	// visible on the next snapshot.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), uploadTimeout)
	defer cancel()

	err := e.wizard.Submit(ctx)
	if errors.Is(err, session.ErrSuperseded) {
		s.logger.Info("upload superseded", "session", e.wizard.ID())
	}

	s.respond(c, e, err)
}
