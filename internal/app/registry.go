package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/metrics"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Registry holds every live protocol client keyed by session ID. A client lives until
// its attempt finishes, it is released explicitly, or it outlives the TTL.
//
// Slots are reserved before any side effect of a request so a full registry rejects
// the request without creating a session directory.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	slots   *slotLimiter
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *metrics.SessionMetrics
}

type entry struct {
	session   domain.Session
	client    domain.ProtocolClient
	expiresAt time.Time
}

func NewRegistry(maxLive int, ttl time.Duration, clock clockwork.Clock, m *metrics.SessionMetrics) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		slots:   newSlotLimiter(int64(maxLive)),
		ttl:     ttl,
		clock:   clock,
		metrics: m,
	}
}

// Reserve claims a slot for a client that is about to be created. Every successful
// Reserve must be followed by Add or CancelReservation.
func (r *Registry) Reserve() error {
	if !r.slots.Acquire() {
		return domain.ErrAtCapacity
	}
	return nil
}

func (r *Registry) CancelReservation() {
	r.slots.Release()
}

// Add registers a client under a previously reserved slot.
func (r *Registry) Add(session domain.Session, client domain.ProtocolClient) {
	r.mu.Lock()
	r.entries[session.ID] = &entry{
		session:   session,
		client:    client,
		expiresAt: r.clock.Now().Add(r.ttl),
	}
	n := len(r.entries)
	r.mu.Unlock()

	r.metrics.LiveClients.Set(float64(n))
}

// Release closes the session's client and frees its slot. Returns false if the
// session was not live.
func (r *Registry) Release(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.slots.Release()
	r.metrics.LiveClients.Set(float64(n))
	e.client.Close()
	return true
}

// Live reports whether a client is currently held for the session.
func (r *Registry) Live(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[sessionID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictExpired closes every client past its TTL and returns how many were closed.
func (r *Registry) EvictExpired() int {
	now := r.clock.Now()

	r.mu.Lock()
	var expired []*entry
	for id, e := range r.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, e)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	for _, e := range expired {
		r.slots.Release()
		e.client.Close()
		slog.Info("Evicted expired session", "session_id", e.session.ID, "mode", e.session.Mode, "age", now.Sub(e.session.CreatedAt))
	}

	if len(expired) > 0 {
		r.metrics.Evictions.Add(float64(len(expired)))
	}
	r.metrics.LiveClients.Set(float64(n))
	return len(expired)
}

// StartEvictionTimer starts a background goroutine that periodically evicts expired clients.
// Returns a stop function that should be called to clean up the goroutine.
func (r *Registry) StartEvictionTimer(interval time.Duration) func() {
	ticker := r.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := r.EvictExpired(); evicted > 0 {
					slog.Debug("Evicted expired sessions", "count", evicted, "remaining", r.Len())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Shutdown closes all live clients concurrently. It gives up waiting when ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		entries = append(entries, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error {
			closed := make(chan struct{})
			go func() {
				e.client.Close()
				close(closed)
			}()

			select {
			case <-closed:
				r.slots.Release()
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	err := g.Wait()
	r.metrics.LiveClients.Set(0)
	if len(entries) > 0 {
		slog.Info("Closed live sessions", "count", len(entries))
	}
	return err
}
