package channels_test

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/voicecollector/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Subscribe(t *testing.T) {
	ch := make(chan int, 1)

	tests := []struct {
		name    string
		sub     string
		ch      chan int
		timeout time.Duration
		wantErr string
	}{
		{name: "empty name", sub: "", ch: ch, wantErr: "name cannot be empty"},
		{name: "nil channel", sub: "encoder", ch: nil, wantErr: "cannot be nil"},
		{name: "negative timeout", sub: "encoder", ch: ch, timeout: -time.Second, wantErr: "cannot be negative"},
		{name: "non-blocking", sub: "encoder", ch: ch},
		{name: "with timeout", sub: "encoder", ch: ch, timeout: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := channels.NewBroadcaster[int]().Subscribe(tt.sub, tt.ch, tt.timeout)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		b := channels.NewBroadcaster[int]()
		require.NoError(t, b.Subscribe("levels", ch, 0))

		err := b.Subscribe("levels", make(chan int), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("after run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		b := channels.NewBroadcaster[int]()
		require.NoError(t, b.Subscribe("levels", ch, 0))
		_, err := b.Run(ctx)
		require.NoError(t, err)

		err = b.Subscribe("encoder", make(chan int), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after broadcaster started")
	})
}

func TestBroadcaster_Run(t *testing.T) {
	t.Run("no subscribers", func(t *testing.T) {
		_, err := channels.NewBroadcaster[int]().Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no subscribers")
	})

	t.Run("twice", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		b := channels.NewBroadcaster[int]()
		require.NoError(t, b.Subscribe("a", make(chan int, 1), 0))

		_, err := b.Run(ctx)
		require.NoError(t, err)

		_, err = b.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already started")
	})

	t.Run("every subscriber gets every message", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		subs := map[string]chan int{
			"encoder": make(chan int, 10),
			"levels":  make(chan int, 10),
			"archive": make(chan int, 10),
		}
		for name, ch := range subs {
			require.NoError(t, b.Subscribe(name, ch, 10*time.Millisecond))
		}

		input, err := b.Run(ctx)
		require.NoError(t, err)

		input <- 1
		input <- 2
		input <- 3

		cancel()
		b.Wait()

		for name, ch := range subs {
			close(ch)
			assert.Equal(t, []int{1, 2, 3}, channels.ReceiveAll(ch, 10*time.Millisecond, 0), name)
		}
	})
}

func TestBroadcaster_SlowSubscribers(t *testing.T) {
	t.Run("full subscriber drops while the others receive", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		stuck := make(chan int, 1)
		stuck <- 99
		ready := make(chan int, 10)

		require.NoError(t, b.Subscribe("stuck", stuck, 0))
		require.NoError(t, b.Subscribe("ready", ready, 0))

		input, err := b.Run(ctx)
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			input <- i
		}

		cancel()
		b.Wait()

		assert.Equal(t, map[string]channels.SubscriberStats{
			"stuck": {Dropped: 5},
			"ready": {},
		}, b.Stats())

		close(ready)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, channels.ReceiveAll(ready, 10*time.Millisecond, 0))
		assert.Equal(t, 99, <-stuck)
	})

	t.Run("timeout subscriber drops after waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		sub := make(chan int, 1)
		require.NoError(t, b.Subscribe("slow", sub, time.Millisecond))

		input, err := b.Run(ctx)
		require.NoError(t, err)

		input <- 1
		input <- 2

		cancel()
		b.Wait()

		close(sub)
		assert.Equal(t, []int{1}, channels.ReceiveAll(sub, 10*time.Millisecond, 0))
		assert.Equal(t, 1, b.Stats()["slow"].Dropped)
	})

	t.Run("closed subscriber is marked closed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		gone := make(chan int, 10)
		live := make(chan int, 10)
		require.NoError(t, b.Subscribe("gone", gone, 0))
		require.NoError(t, b.Subscribe("live", live, 0))

		input, err := b.Run(ctx)
		require.NoError(t, err)

		close(gone)
		input <- 1
		input <- 2

		cancel()
		b.Wait()

		stats := b.Stats()
		assert.Equal(t, channels.SubscriberStats{Dropped: 2, Closed: true}, stats["gone"])
		assert.Equal(t, channels.SubscriberStats{}, stats["live"])
	})
}
