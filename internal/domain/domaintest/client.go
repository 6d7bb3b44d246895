// Package domaintest provides in-memory stand-ins for the WhatsApp client. Test use only.
package domaintest

import (
	"context"
	"sync"

	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

// SentMessage is one SendText call observed by a StubClient.
type SentMessage struct {
	JID  string
	Text string
}

// StubClient implements domain.ProtocolClient. Updates queued with Push are delivered
// in order; Close ends the stream.
type StubClient struct {
	PairingCode string
	PairErr     error
	SendErr     error

	mu        sync.Mutex
	updates   chan domain.ConnectionUpdate
	closed    bool
	pairCalls []string
	sent      []SentMessage
	closedCh  chan struct{}
}

// NewStubClient returns a client whose stream already holds the given updates.
func NewStubClient(initial ...domain.ConnectionUpdate) *StubClient {
	c := &StubClient{
		updates:  make(chan domain.ConnectionUpdate, 64),
		closedCh: make(chan struct{}),
	}
	for _, u := range initial {
		c.updates <- u
	}
	return c
}

// Push appends an update to the stream. It is a no-op once the client is closed.
func (c *StubClient) Push(u domain.ConnectionUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.updates <- u
}

func (c *StubClient) Updates() <-chan domain.ConnectionUpdate {
	return c.updates
}

func (c *StubClient) RequestPairingCode(_ context.Context, phoneNumber string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairCalls = append(c.pairCalls, phoneNumber)
	if c.PairErr != nil {
		return "", c.PairErr
	}
	return c.PairingCode, nil
}

func (c *StubClient) SendText(_ context.Context, jid, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, SentMessage{JID: jid, Text: text})
	return c.SendErr
}

func (c *StubClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.updates)
	close(c.closedCh)
}

// Closed is closed once Close has been called.
func (c *StubClient) Closed() <-chan struct{} {
	return c.closedCh
}

func (c *StubClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *StubClient) PairCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pairCalls...)
}

func (c *StubClient) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.sent...)
}

// StubFactory hands out clients built by NewClientFn, or a fresh StubClient.
type StubFactory struct {
	NewClientFn func(session domain.Session) (domain.ProtocolClient, error)

	mu       sync.Mutex
	sessions []domain.Session
}

func (f *StubFactory) NewClient(_ context.Context, session domain.Session) (domain.ProtocolClient, error) {
	f.mu.Lock()
	f.sessions = append(f.sessions, session)
	f.mu.Unlock()

	if f.NewClientFn != nil {
		return f.NewClientFn(session)
	}
	return NewStubClient(), nil
}

// Sessions returns every session a client was requested for.
func (f *StubFactory) Sessions() []domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Session(nil), f.sessions...)
}

// Single returns a factory that always hands out c.
func Single(c *StubClient) *StubFactory {
	return &StubFactory{NewClientFn: func(domain.Session) (domain.ProtocolClient, error) { return c, nil }}
}
