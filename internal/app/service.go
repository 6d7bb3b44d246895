package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/metrics"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

const notifyTimeout = 30 * time.Second

// Options tunes the linking flows. Zero values are valid except SessionIDPrefix and
// RequestTimeout.
type Options struct {
	SessionIDPrefix string
	BrandName       string
	// SettleDelay gives the client's handshake time to finish before a pairing code
	// is requested; asking too early fails inside the WhatsApp client.
	SettleDelay    time.Duration
	RequestTimeout time.Duration
	PruneUnlinked  bool
	// QRPrinter, when set, receives the first QR payload of every QR session.
	QRPrinter func(payload string)
}

// PairResult is returned to the caller of the pairing flow.
type PairResult struct {
	PairingCode string
	SessionID   string
}

// QRResult is returned to the caller of the QR flow.
type QRResult struct {
	QR        string
	SessionID string
}

// Service is the application layer. It orchestrates both linking flows.
type Service struct {
	store    domain.SessionStore
	clients  domain.ClientFactory
	registry *Registry
	metrics  *metrics.SessionMetrics
	clock    clockwork.Clock
	opts     Options
}

func NewService(store domain.SessionStore, clients domain.ClientFactory, registry *Registry, m *metrics.SessionMetrics, clock clockwork.Clock, opts Options) *Service {
	return &Service{
		store:    store,
		clients:  clients,
		registry: registry,
		metrics:  m,
		clock:    clock,
		opts:     opts,
	}
}

// Pair validates the phone number, starts a session and returns the pairing code the
// user types into WhatsApp. Once the device is linked the session ID is sent to the
// number as a direct message.
func (s *Service) Pair(ctx context.Context, rawPhone string) (*PairResult, error) {
	phone, err := domain.ParsePhoneNumber(rawPhone)
	if err != nil {
		return nil, err
	}

	a, err := s.begin(ctx, domain.ModePair)
	if err != nil {
		s.metrics.Attempts.WithLabelValues(string(domain.ModePair), "error").Inc()
		return nil, err
	}
	a.phone = phone

	go s.monitor(a)
	go s.requestPairingCode(a)

	code, err := s.await(ctx, a)
	if err != nil {
		return nil, err
	}
	return &PairResult{PairingCode: code, SessionID: a.session.ID}, nil
}

// QR starts a session and returns the first QR payload its client produces.
func (s *Service) QR(ctx context.Context) (*QRResult, error) {
	a, err := s.begin(ctx, domain.ModeQR)
	if err != nil {
		s.metrics.Attempts.WithLabelValues(string(domain.ModeQR), "error").Inc()
		return nil, err
	}

	go s.monitor(a)

	qr, err := s.await(ctx, a)
	if err != nil {
		return nil, err
	}
	return &QRResult{QR: qr, SessionID: a.session.ID}, nil
}

// SessionCount is the number of session directories on disk.
func (s *Service) SessionCount() (int, error) {
	return s.store.Count()
}

// LiveClients is the number of clients currently held open.
func (s *Service) LiveClients() int {
	return s.registry.Len()
}

// begin reserves capacity, provisions the session directory and connects a client.
// Nothing is created when the registry is full.
func (s *Service) begin(ctx context.Context, mode domain.SessionMode) (*attempt, error) {
	if err := s.registry.Reserve(); err != nil {
		return nil, err
	}

	id := domain.NewSessionID(s.opts.SessionIDPrefix)
	session, err := s.store.Create(ctx, id, mode)
	if err != nil {
		s.registry.CancelReservation()
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioning, err)
	}
	s.metrics.SessionsCreated.WithLabelValues(string(mode)).Inc()

	client, err := s.clients.NewClient(ctx, session)
	if err != nil {
		s.registry.CancelReservation()
		s.discard(session.ID)
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioning, err)
	}

	s.registry.Add(session, client)
	slog.Info("Session started", "session_id", session.ID, "mode", mode)
	return newAttempt(session, client, s.clock.Now()), nil
}

// await waits for the attempt's outcome, bounded by the request timeout and the
// caller's context. A failed attempt gives its client back straight away.
func (s *Service) await(ctx context.Context, a *attempt) (string, error) {
	timer := s.clock.NewTimer(s.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case <-a.done:
	case <-timer.Chan():
		a.resolve("", fmt.Errorf("%w: %w", domain.ErrProtocol, context.DeadlineExceeded))
	case <-ctx.Done():
		a.resolve("", ctx.Err())
	}

	value, err := a.result()
	mode := string(a.session.Mode)
	if err != nil {
		s.metrics.Attempts.WithLabelValues(mode, "error").Inc()
		slog.Warn("Session attempt failed", "session_id", a.session.ID, "mode", mode, "error", err)
		s.registry.Release(a.session.ID)
		return "", err
	}

	s.metrics.Attempts.WithLabelValues(mode, "ok").Inc()
	s.metrics.TimeToResult.WithLabelValues(mode).Observe(s.clock.Since(a.started).Seconds())
	return value, nil
}

func (s *Service) requestPairingCode(a *attempt) {
	if s.opts.SettleDelay > 0 {
		select {
		case <-s.clock.After(s.opts.SettleDelay):
		case <-a.done:
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
	defer cancel()

	code, err := a.client.RequestPairingCode(ctx, a.phone)
	if err != nil {
		a.resolve("", fmt.Errorf("%w: %w", domain.ErrProtocol, err))
		return
	}
	a.resolve(code, nil)
}

// monitor drains the client's connection stream for the client's whole life. It is
// the only place that reacts to linking, and it retires the session when the stream
// ends, whatever ended it.
func (s *Service) monitor(a *attempt) {
	defer s.retire(a)

	for u := range a.client.Updates() {
		switch {
		case u.QR != "":
			if a.session.Mode == domain.ModeQR && a.resolve(u.QR, nil) && s.opts.QRPrinter != nil {
				s.opts.QRPrinter(u.QR)
			}
		case u.Connection == domain.ConnectionOpen:
			if !a.linked.CompareAndSwap(false, true) {
				continue
			}
			s.onLinked(a)
			s.registry.Release(a.session.ID)
		case u.Terminal():
			if !a.resolve("", fmt.Errorf("%w: %w", domain.ErrProtocol, u.Err)) {
				slog.Info("Session ended before linking", "session_id", a.session.ID, "reason", u.Err)
			}
			s.registry.Release(a.session.ID)
		}
	}

	a.resolve("", fmt.Errorf("%w: %w", domain.ErrProtocol, domain.ErrSessionClosed))
}

func (s *Service) onLinked(a *attempt) {
	mode := string(a.session.Mode)
	slog.Info("Session linked", "session_id", a.session.ID, "mode", mode)
	s.metrics.Links.WithLabelValues(mode).Inc()

	if err := s.store.MarkLinked(a.session.ID, s.clock.Now()); err != nil {
		slog.Error("Failed to mark session linked", "session_id", a.session.ID, "error", err)
	}

	if a.session.Mode == domain.ModePair {
		s.notify(a)
	}
}

// notify sends the session ID to the paired number. Failures never reach the caller,
// who already has their pairing code.
func (s *Service) notify(a *attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	jid := domain.UserJID(a.phone)
	if err := a.client.SendText(ctx, jid, SessionMessage(s.opts.BrandName, a.session.ID)); err != nil {
		s.metrics.Notifications.WithLabelValues("error").Inc()
		slog.Error("Failed to send session ID", "session_id", a.session.ID, "jid", jid, "error", err)
		return
	}
	s.metrics.Notifications.WithLabelValues("ok").Inc()
	slog.Info("Session ID sent", "session_id", a.session.ID, "jid", jid)
}

// retire runs once the client's stream has ended.
func (s *Service) retire(a *attempt) {
	s.registry.Release(a.session.ID)
	if !a.linked.Load() {
		s.discard(a.session.ID)
	}
}

// discard removes the credential directory of a session that never linked a device.
func (s *Service) discard(sessionID string) {
	if !s.opts.PruneUnlinked {
		return
	}
	if err := s.store.Remove(sessionID); err != nil && !errors.Is(err, domain.ErrInvalidSessionID) {
		slog.Error("Failed to remove unlinked session", "session_id", sessionID, "error", err)
	}
}
