package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/patrickmn/go-cache"
)

const registryCleanup = time.Minute

// entry is one browser session.
type entry struct {
	wizard  *session.Wizard
	capture *inboundCapturer

	// stopMu pairs a fed blob with the StopCapture that consumes it.
	stopMu sync.Mutex
}

// registry keeps live sessions in memory. Sessions idle for longer than the
// TTL are evicted and closed.
type registry struct {
	items    *cache.Cache
	player   session.Player
	uploader session.Uploader
	logger   *slog.Logger
}

func newRegistry(ttl time.Duration, player session.Player, uploader session.Uploader, logger *slog.Logger) *registry {
	r := &registry{
		items:    cache.New(ttl, registryCleanup),
		player:   player,
		uploader: uploader,
		logger:   logger,
	}

	r.items.OnEvicted(func(id string, v any) {
		e, ok := v.(*entry)
		if !ok {
			return
		}

		e.wizard.Close()
		r.logger.Info("session closed", "session", id)
	})

	return r
}

// Create starts a new session.
func (r *registry) Create() (*entry, error) {
	capture := &inboundCapturer{}

	w, err := session.New(session.Config{
		Capturer: capture,
		Player:   r.player,
		Uploader: r.uploader,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, err
	}

	e := &entry{wizard: w, capture: capture}
	r.items.SetDefault(w.ID(), e)

	return e, nil
}

// Get returns a live session and extends its expiry.
func (r *registry) Get(id string) (*entry, bool) {
	v, found := r.items.Get(id)
	if !found {
		return nil, false
	}

	e, ok := v.(*entry)
	if !ok {
		return nil, false
	}

	r.items.SetDefault(id, e)

	return e, true
}

// Delete closes and forgets a session. It reports whether the session existed.
func (r *registry) Delete(id string) bool {
	if _, found := r.items.Get(id); !found {
		return false
	}

	r.items.Delete(id)

	return true
}

// Len returns the number of live sessions, including expired ones not yet
// cleaned up.
func (r *registry) Len() int {
	return r.items.ItemCount()
}

// Close closes every session. Expired sessions the janitor has not swept
// yet are closed through the eviction hook first.
func (r *registry) Close() {
	r.items.DeleteExpired()

	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}
