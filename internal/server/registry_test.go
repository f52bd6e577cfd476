package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopUploader struct{}

func (nopUploader) Upload(context.Context, *session.Audio, session.Metadata) (session.Receipt, error) {
	return session.Receipt{}, nil
}

func TestRegistry_CloseIncludesExpired(t *testing.T) {
	t.Parallel()

	r := newRegistry(10*time.Millisecond, remotePlayer{}, nopUploader{}, slog.New(slog.DiscardHandler))

	live, err := r.Create()
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, found := r.Get(live.wizard.ID())
	require.False(t, found, "the session has expired")

	r.Close()

	assert.ErrorIs(t, live.wizard.SubmitInfo(session.Metadata{}), session.ErrClosed)
	assert.Zero(t, r.Len())
}
