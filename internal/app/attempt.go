package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

// attempt is one linking request. The HTTP response depends on a single value
// (pairing code or first QR payload); whichever goroutine produces the outcome first
// resolves it, and later outcomes are ignored. Background work keeps running on the
// same attempt after the response has gone out.
type attempt struct {
	session domain.Session
	client  domain.ProtocolClient
	phone   string
	started time.Time

	once  sync.Once
	done  chan struct{}
	value string
	err   error

	linked atomic.Bool
}

func newAttempt(session domain.Session, client domain.ProtocolClient, started time.Time) *attempt {
	return &attempt{
		session: session,
		client:  client,
		started: started,
		done:    make(chan struct{}),
	}
}

// resolve records the outcome. Returns true only for the call that won.
func (a *attempt) resolve(value string, err error) bool {
	won := false
	a.once.Do(func() {
		a.value, a.err = value, err
		close(a.done)
		won = true
	})
	return won
}

// result blocks until the attempt is resolved.
func (a *attempt) result() (string, error) {
	<-a.done
	return a.value, a.err
}
