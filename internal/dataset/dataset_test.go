package dataset_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 5, 10, 11, 12, 345_000_000, time.UTC)

func female() session.Metadata {
	return session.Metadata{Gender: session.GenderFemale, DrugName: "Ibuprofen"}
}

func take() *session.Audio {
	return &session.Audio{
		ID:          "audio-1",
		Data:        []byte("mp3 bytes"),
		ContentType: "audio/mpeg",
		Ext:         "mp3",
		Duration:    1500 * time.Millisecond,
	}
}

func openManifest(t *testing.T) *dataset.Manifest {
	t.Helper()

	m, err := dataset.OpenManifest(filepath.Join(t.TempDir(), "db", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m
}

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		md   session.Metadata
		at   time.Time
		ext  string
		want string
	}{
		{
			name: "female ibuprofen",
			md:   female(),
			at:   fixedTime,
			ext:  "mp3",
			want: "dataset/female/ibuprofen/audio_2024-03-05T10-11-12-345Z.mp3",
		},
		{
			name: "converts to UTC",
			md:   session.Metadata{Gender: session.GenderMale, DrugName: "Hydrochlorothiazide"},
			at:   fixedTime.In(time.FixedZone("CET", 3600)),
			ext:  ".wav",
			want: "dataset/male/hydrochlorothiazide/audio_2024-03-05T10-11-12-345Z.wav",
		},
		{
			name: "default extension",
			md:   female(),
			at:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			want: "dataset/female/ibuprofen/audio_2024-01-02T03-04-05-000Z.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dataset.Key(tt.md, tt.at, tt.ext))
		})
	}
}

func TestManifest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := openManifest(t)
	require.NoError(t, m.Ping(ctx))

	md := female()
	first := dataset.NewRecord("dataset/female/ibuprofen/a.mp3", take(), md, fixedTime)
	second := dataset.NewRecord("dataset/female/ibuprofen/b.mp3", take(), md, fixedTime.Add(time.Minute))
	second.Transcript = "ibuprofen"

	male := session.Metadata{
		AffiliatedWithPharmacy: true,
		PharmacyName:           "Green Life",
		Gender:                 session.GenderMale,
		DrugName:               "Warfarin",
	}
	third := dataset.NewRecord("dataset/male/warfarin/c.mp3", take(), male, fixedTime.Add(2*time.Minute))

	for _, rec := range []dataset.Record{first, second, third} {
		require.NoError(t, m.Add(ctx, rec))
	}

	t.Run("list newest first", func(t *testing.T) {
		all, err := m.List(ctx, dataset.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, third.Key, all[0].Key)
		assert.Equal(t, "Green Life", all[0].Pharmacy)
		assert.Equal(t, first.Key, all[2].Key)
		assert.Equal(t, session.NotFromPharmacy, all[2].Pharmacy)
		assert.Equal(t, fixedTime, all[2].Timestamp)
		assert.Equal(t, 1500*time.Millisecond, all[2].Duration)
	})

	t.Run("filter", func(t *testing.T) {
		got, err := m.List(ctx, dataset.Filter{Drug: "ibuprofen", Gender: "female", Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.Key, got[0].Key)
		assert.Equal(t, "ibuprofen", got[0].Transcript)
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := m.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []dataset.Count{
			{Drug: "Ibuprofen", Gender: "Female", Recordings: 2},
			{Drug: "Warfarin", Gender: "Male", Recordings: 1},
		}, counts)
	})

	t.Run("add rejects same key", func(t *testing.T) {
		updated := first
		updated.Transcript = "eye-bew-profen"
		require.ErrorIs(t, m.Add(ctx, updated), dataset.ErrKeyExists)

		got, err := m.List(ctx, dataset.Filter{Drug: "Ibuprofen"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Empty(t, got[1].Transcript, "the stored row is untouched")
	})
}

type fakeTranscriber struct {
	text     string
	err      error
	filename string
	drug     string
	data     []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, r io.Reader, drug string) (string, error) {
	f.filename, f.drug = filename, drug
	f.data, _ = io.ReadAll(r)

	return f.text, f.err
}

func TestFileSink_Upload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	m := openManifest(t)
	tr := &fakeTranscriber{text: "ibuprofen"}

	sink, err := dataset.NewFileSink(root, m,
		dataset.WithClock(func() time.Time { return fixedTime }),
		dataset.WithTranscriber(tr),
	)
	require.NoError(t, err)

	receipt, err := sink.Upload(ctx, take(), female())
	require.NoError(t, err)

	assert.Equal(t, "dataset/female/ibuprofen/audio_2024-03-05T10-11-12-345Z.mp3", receipt.Key)
	assert.Equal(t, fixedTime, receipt.UploadedAt)
	assert.Equal(t, female(), receipt.Metadata)

	data, err := os.ReadFile(sink.Path(receipt.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), data)

	assert.Equal(t, "audio_2024-03-05T10-11-12-345Z.mp3", tr.filename)
	assert.Equal(t, "Ibuprofen", tr.drug)
	assert.Equal(t, []byte("mp3 bytes"), tr.data)

	recs, err := m.List(ctx, dataset.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, receipt.Key, recs[0].Key)
	assert.Equal(t, "audio-1", recs[0].AudioID)
	assert.Equal(t, session.NotFromPharmacy, recs[0].Pharmacy)
	assert.Equal(t, "ibuprofen", recs[0].Transcript)
	assert.Equal(t, len("mp3 bytes"), recs[0].Bytes)

	entries, err := os.ReadDir(filepath.Dir(sink.Path(receipt.Key)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSink_KeyCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := openManifest(t)
	sink, err := dataset.NewFileSink(t.TempDir(), m,
		dataset.WithClock(func() time.Time { return fixedTime }),
	)
	require.NoError(t, err)

	firstTake := take()
	firstTake.Data = []byte("first take")
	secondTake := take()
	secondTake.ID = "audio-2"
	secondTake.Data = []byte("second take")

	first, err := sink.Upload(ctx, firstTake, female())
	require.NoError(t, err)
	second, err := sink.Upload(ctx, secondTake, female())
	require.NoError(t, err)

	assert.Equal(t, "dataset/female/ibuprofen/audio_2024-03-05T10-11-12-345Z.mp3", first.Key)
	assert.Equal(t, "dataset/female/ibuprofen/audio_2024-03-05T10-11-12-346Z.mp3", second.Key)
	assert.Equal(t, fixedTime.Add(time.Millisecond), second.UploadedAt)

	data, err := os.ReadFile(sink.Path(first.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte("first take"), data)

	data, err = os.ReadFile(sink.Path(second.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte("second take"), data)

	recs, err := m.List(ctx, dataset.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "audio-2", recs[0].AudioID)
	assert.Equal(t, "audio-1", recs[1].AudioID)

	t.Run("manifest row without a file", func(t *testing.T) {
		require.NoError(t, os.Remove(sink.Path(first.Key)))

		third, err := sink.Upload(ctx, take(), female())
		require.NoError(t, err)
		assert.Equal(t, "dataset/female/ibuprofen/audio_2024-03-05T10-11-12-347Z.mp3", third.Key)

		_, statErr := os.Stat(sink.Path(first.Key))
		assert.ErrorIs(t, statErr, os.ErrNotExist, "the claimed file is removed when the row exists")
	})
}

func TestFileSink_TranscriptionIsBestEffort(t *testing.T) {
	t.Parallel()

	m := openManifest(t)
	sink, err := dataset.NewFileSink(t.TempDir(), m,
		dataset.WithTranscriber(&fakeTranscriber{err: errors.New("rate limited")}),
	)
	require.NoError(t, err)

	_, err = sink.Upload(context.Background(), take(), female())
	require.NoError(t, err)

	recs, err := m.List(context.Background(), dataset.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Transcript)
}

func TestFileSink_Failures(t *testing.T) {
	t.Parallel()

	t.Run("constructor", func(t *testing.T) {
		t.Parallel()

		_, err := dataset.NewFileSink("", openManifest(t))
		require.Error(t, err)

		_, err = dataset.NewFileSink(t.TempDir(), nil)
		require.Error(t, err)
	})

	t.Run("empty recording", func(t *testing.T) {
		t.Parallel()

		sink, err := dataset.NewFileSink(t.TempDir(), openManifest(t))
		require.NoError(t, err)

		_, err = sink.Upload(context.Background(), &session.Audio{}, female())
		require.Error(t, err)
	})

	t.Run("manifest failure removes the file", func(t *testing.T) {
		t.Parallel()

		m := openManifest(t)
		sink, err := dataset.NewFileSink(t.TempDir(), m,
			dataset.WithClock(func() time.Time { return fixedTime }),
			dataset.WithRetry(dataset.RetryConfig{Attempts: 1}),
		)
		require.NoError(t, err)
		require.NoError(t, m.Close())

		_, err = sink.Upload(context.Background(), take(), female())
		require.Error(t, err)

		_, statErr := os.Stat(sink.Path(dataset.Key(female(), fixedTime, "mp3")))
		assert.ErrorIs(t, statErr, os.ErrNotExist)
	})

	t.Run("unwritable root", func(t *testing.T) {
		t.Parallel()

		root := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(root, nil, 0o600))

		sink, err := dataset.NewFileSink(root, openManifest(t),
			dataset.WithRetry(dataset.RetryConfig{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond}),
		)
		require.NoError(t, err)

		_, err = sink.Upload(context.Background(), take(), female())
		require.Error(t, err)
	})
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	t.Run("returns a key", func(t *testing.T) {
		t.Parallel()

		receipt, err := dataset.NewLogSink(0, nil).Upload(context.Background(), take(), female())
		require.NoError(t, err)
		assert.Contains(t, receipt.Key, "dataset/female/ibuprofen/audio_")
		assert.Equal(t, female(), receipt.Metadata)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dataset.NewLogSink(time.Hour, nil).Upload(ctx, take(), female())
		require.ErrorIs(t, err, context.Canceled)
	})
}
