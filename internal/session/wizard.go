// Package session implements the recording session wizard: the four-step
// flow from volunteer info to a confirmed upload, over pluggable capture,
// playback and upload services.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Config wires a Wizard to its collaborators.
type Config struct {
	Capturer Capturer
	Player   Player
	Uploader Uploader
	Logger   *slog.Logger
}

type playbackSlot struct {
	token  uint64
	cancel context.CancelFunc
}

func (p *playbackSlot) active() bool {
	return p.token != 0
}

func (p *playbackSlot) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	*p = playbackSlot{}
}

// Wizard holds one volunteer's session. All methods are safe for concurrent use.
type Wizard struct {
	id       string
	capturer Capturer
	player   Player
	uploader Uploader
	logger   *slog.Logger

	mu sync.Mutex

	// epoch changes on Reset and Close so late results can be discarded.
	epoch uint64

	step     Step
	metadata Metadata

	status     RecordingStatus
	stream     Stream
	audio      *Audio
	requesting bool
	stopping   bool

	uploading bool
	receipt   *Receipt

	lastToken uint64
	sample    playbackSlot
	review    playbackSlot

	closed bool
}

// New creates a wizard on the info step.
func New(cfg Config) (*Wizard, error) {
	if cfg.Capturer == nil {
		return nil, errors.New("capturer cannot be nil")
	}

	if cfg.Player == nil {
		return nil, errors.New("player cannot be nil")
	}

	if cfg.Uploader == nil {
		return nil, errors.New("uploader cannot be nil")
	}

	id := uuid.NewString()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Wizard{
		id:       id,
		capturer: cfg.Capturer,
		player:   cfg.Player,
		uploader: cfg.Uploader,
		logger:   logger.With("session", id),
		step:     StepInfo,
		status:   RecordingIdle,
	}, nil
}

// ID returns the session id.
func (w *Wizard) ID() string {
	return w.id
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		ID:               w.id,
		Step:             w.step,
		Metadata:         w.metadata,
		Recording:        w.status,
		Audio:            w.audio.Info(),
		RequestingMic:    w.requesting,
		PlayingSample:    w.sample.active(),
		PlayingRecording: w.review.active(),
		Uploading:        w.uploading,
	}

	if w.receipt != nil {
		r := *w.receipt
		st.Receipt = &r
	}

	return st
}

// Audio returns the captured recording, or nil.
func (w *Wizard) Audio() *Audio {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.audio
}

// SubmitInfo validates md and advances from Info to Sample.
func (w *Wizard) SubmitInfo(md Metadata) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(StepInfo); err != nil {
		return err
	}

	normalized, err := md.Normalize()
	if err != nil {
		return err
	}

	w.metadata = normalized
	w.step = StepSample

	w.logger.Info("info submitted",
		"drug", normalized.DrugName,
		"gender", normalized.Gender,
		"affiliated", normalized.AffiliatedWithPharmacy)

	return nil
}

// Next moves from Sample to Record. Other forward edges have their own
// operations: SubmitInfo leaves Info and Submit leaves Record.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(StepSample); err != nil {
		return err
	}

	w.sample.stop()
	w.step = StepRecord

	return nil
}

// Back moves one step back from Sample or Record. Leaving Record while
// capturing abandons the capture; a captured recording is kept.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	switch w.step {
	case StepSample:
		w.sample.stop()
		w.step = StepInfo
	case StepRecord:
		if w.uploading {
			return ErrBusy
		}
		w.review.stop()
		w.abandonCapture()
		w.step = StepSample
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidStep, w.step)
	}

	return nil
}

// PlaySample starts the reference sample for the selected drug.
func (w *Wizard) PlaySample(ctx context.Context) (Playback, error) {
	w.mu.Lock()

	if err := w.check(StepSample); err != nil {
		w.mu.Unlock()
		return Playback{}, err
	}

	if w.sample.active() {
		w.mu.Unlock()
		return Playback{}, ErrBusy
	}

	src := Source{Kind: SourceSample, DrugName: w.metadata.DrugName}
	token, pctx := w.startPlayback(ctx, &w.sample)
	w.mu.Unlock()

	return w.play(pctx, token, src, func() *playbackSlot { return &w.sample })
}

// PlayRecording plays back the captured recording for review.
func (w *Wizard) PlayRecording(ctx context.Context) (Playback, error) {
	w.mu.Lock()

	if err := w.check(StepRecord); err != nil {
		w.mu.Unlock()
		return Playback{}, err
	}

	if w.status != RecordingCaptured {
		w.mu.Unlock()
		return Playback{}, fmt.Errorf("%w: nothing recorded yet", ErrInvalidState)
	}

	if w.review.active() {
		w.mu.Unlock()
		return Playback{}, ErrBusy
	}

	src := Source{Kind: SourceRecording, Audio: w.audio}
	token, pctx := w.startPlayback(ctx, &w.review)
	w.mu.Unlock()

	return w.play(pctx, token, src, func() *playbackSlot { return &w.review })
}

// PlaybackEnded clears the playing flag for token. It returns false when the
// playback was already superseded.
func (w *Wizard) PlaybackEnded(token uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, slot := range []*playbackSlot{&w.sample, &w.review} {
		if slot.active() && slot.token == token {
			slot.stop()
			return true
		}
	}

	return false
}

// StartCapture opens the microphone and moves from Idle to Recording.
func (w *Wizard) StartCapture(ctx context.Context) error {
	w.mu.Lock()

	if err := w.check(StepRecord); err != nil {
		w.mu.Unlock()
		return err
	}

	if w.requesting || w.stopping || w.uploading {
		w.mu.Unlock()
		return ErrBusy
	}

	if w.status != RecordingIdle {
		w.mu.Unlock()
		return fmt.Errorf("%w: capture needs an idle recorder, have %s", ErrInvalidState, w.status)
	}

	w.review.stop()
	w.requesting = true
	epoch := w.epoch
	w.mu.Unlock()

	stream, err := w.capturer.Request(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.epoch == epoch {
		w.requesting = false
	}

	if err != nil {
		w.logger.Warn("microphone request failed", "error", err)
		return &PermissionError{Err: err}
	}

	// The user may have navigated away or reset while the prompt was open.
	if w.closed || w.epoch != epoch || w.step != StepRecord {
		w.capturer.Release(stream)
		return ErrSuperseded
	}

	w.stream = stream
	w.status = RecordingActive
	w.logger.Info("capture started")

	return nil
}

// StopCapture ends the capture and keeps the recording. The device is
// released even when stopping fails, in which case the recorder returns to
// Idle. The lock is not held while the capturer drains.
func (w *Wizard) StopCapture(ctx context.Context) error {
	w.mu.Lock()

	if err := w.check(StepRecord); err != nil {
		w.mu.Unlock()
		return err
	}

	if w.stopping {
		w.mu.Unlock()
		return ErrBusy
	}

	if w.status != RecordingActive {
		w.mu.Unlock()
		return fmt.Errorf("%w: not recording", ErrInvalidState)
	}

	stream := w.stream
	w.stream = nil
	w.stopping = true
	epoch := w.epoch
	w.mu.Unlock()

	audio, err := w.capturer.Stop(ctx, stream)
	w.capturer.Release(stream)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopping = false

	if w.closed || w.epoch != epoch || w.step != StepRecord || w.status != RecordingActive {
		w.logger.Warn("discarding capture for superseded session", "error", err)
		return ErrSuperseded
	}

	if err != nil {
		w.status = RecordingIdle
		w.logger.Error("capture stop failed", "error", err)
		return fmt.Errorf("failed to stop capture: %w", err)
	}

	if audio == nil {
		w.status = RecordingIdle
		return errors.New("capture produced no audio")
	}

	w.audio = audio
	w.status = RecordingCaptured
	w.logger.Info("capture stopped", "bytes", len(audio.Data), "duration", audio.Duration)

	return nil
}

// Retake discards the recording and returns the recorder to Idle.
func (w *Wizard) Retake() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(StepRecord); err != nil {
		return err
	}

	if w.uploading {
		return ErrBusy
	}

	if w.status != RecordingCaptured {
		return fmt.Errorf("%w: nothing to retake", ErrInvalidState)
	}

	w.review.stop()
	w.audio = nil
	w.status = RecordingIdle

	return nil
}

// Submit uploads the recording with its metadata. On success the session
// moves to Success and forgets the recording and metadata; on failure it
// stays on Record with the recording intact.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()

	if err := w.check(StepRecord); err != nil {
		w.mu.Unlock()
		return err
	}

	if w.uploading {
		w.mu.Unlock()
		return ErrBusy
	}

	if w.status != RecordingCaptured || w.audio == nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: nothing recorded yet", ErrInvalidState)
	}

	w.review.stop()
	w.uploading = true
	epoch := w.epoch
	audio, md := w.audio, w.metadata
	w.mu.Unlock()

	receipt, err := w.uploader.Upload(ctx, audio, md)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.epoch != epoch || w.closed {
		w.logger.Warn("discarding upload result for reset session", "error", err)
		return ErrSuperseded
	}

	w.uploading = false

	if err != nil {
		w.logger.Error("upload failed", "error", err)
		return &UploadError{Err: err}
	}

	if receipt.Metadata == (Metadata{}) {
		receipt.Metadata = md
	}

	w.receipt = &receipt
	w.audio = nil
	w.status = RecordingIdle
	w.metadata = Metadata{}
	w.step = StepSuccess

	w.logger.Info("recording submitted", "key", receipt.Key)

	return nil
}

// Reset discards everything and returns to Info.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.clear()
}

// Close abandons the session, releasing the microphone and stopping playback.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.clear()
	w.closed = true
}

func (w *Wizard) clear() {
	w.epoch++
	w.sample.stop()
	w.review.stop()
	w.abandonCapture()
	w.audio = nil
	w.status = RecordingIdle
	w.requesting = false
	w.uploading = false
	w.receipt = nil
	w.metadata = Metadata{}
	w.step = StepInfo
}

// abandonCapture releases an open stream. A stream that is being stopped
// belongs to StopCapture. Caller holds mu.
func (w *Wizard) abandonCapture() {
	if w.status != RecordingActive {
		return
	}

	if w.stream != nil {
		w.capturer.Release(w.stream)
		w.stream = nil
	}
	w.status = RecordingIdle
	w.logger.Info("capture abandoned")
}

// check fails unless the wizard is open and on step. Caller holds mu.
func (w *Wizard) check(step Step) error {
	if w.closed {
		return ErrClosed
	}

	if w.step != step {
		return fmt.Errorf("%w: on %s, need %s", ErrInvalidStep, w.step, step)
	}

	return nil
}

// startPlayback claims slot with a fresh token. Caller holds mu.
func (w *Wizard) startPlayback(ctx context.Context, slot *playbackSlot) (uint64, context.Context) {
	w.lastToken++
	pctx, cancel := context.WithCancel(ctx)
	*slot = playbackSlot{token: w.lastToken, cancel: cancel}

	return w.lastToken, pctx
}

func (w *Wizard) play(
	ctx context.Context,
	token uint64,
	src Source,
	slot func() *playbackSlot,
) (Playback, error) {
	done, err := w.player.Play(ctx, src)
	if err != nil {
		w.mu.Lock()
		if s := slot(); s.token == token {
			s.stop()
		}
		w.mu.Unlock()

		return Playback{}, fmt.Errorf("failed to start playback: %w", err)
	}

	return Playback{Token: token, Done: done}, nil
}

// WaitPlayback blocks until pb is done or ctx ends, then reports the end to
// the wizard. It returns whether the playback was still current.
func (w *Wizard) WaitPlayback(ctx context.Context, pb Playback) bool {
	select {
	case <-pb.Done:
	case <-ctx.Done():
	}

	return w.PlaybackEnded(pb.Token)
}
