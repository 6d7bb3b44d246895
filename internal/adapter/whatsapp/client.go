package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

const updateBuffer = 32

// client owns one whatsmeow connection and its credential container.
type client struct {
	sessionID   string
	wa          *whatsmeow.Client
	container   *sqlstore.Container
	displayName string
	cancel      context.CancelFunc

	mu      sync.Mutex
	closed  bool
	updates chan domain.ConnectionUpdate

	closeOnce sync.Once
}

func (c *client) Updates() <-chan domain.ConnectionUpdate {
	return c.updates
}

func (c *client) RequestPairingCode(ctx context.Context, phoneNumber string) (string, error) {
	code, err := c.wa.PairPhone(ctx, phoneNumber, true, whatsmeow.PairClientSafari, c.displayName)
	if err != nil {
		return "", fmt.Errorf("failed to request pairing code: %w", err)
	}
	return code, nil
}

func (c *client) SendText(ctx context.Context, jid, text string) error {
	to, err := types.ParseJID(jid)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", jid, err)
	}

	msg := &waE2E.Message{Conversation: proto.String(text)}
	if _, err := c.wa.SendMessage(ctx, to, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close disconnects, ends the update stream and releases the credential database.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wa.Disconnect()

		c.mu.Lock()
		c.closed = true
		close(c.updates)
		c.mu.Unlock()

		if err := c.container.Close(); err != nil {
			slog.Warn("Failed to close credential store", "session_id", c.sessionID, "error", err)
		}
	})
}

func (c *client) emit(u domain.ConnectionUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.updates <- u:
	default:
		slog.Warn("Dropping connection update, consumer too slow", "session_id", c.sessionID, "connection", u.Connection)
	}
}

func (c *client) handleEvent(raw any) {
	switch evt := raw.(type) {
	case *events.Connected:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionOpen})
	case *events.PairSuccess:
		slog.Info("Device paired, credentials stored", "session_id", c.sessionID, "jid", evt.ID.String(), "platform", evt.Platform)
	case *events.Disconnected:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose})
	case *events.LoggedOut:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: domain.ErrLoggedOut})
	case *events.ConnectFailure:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: fmt.Errorf("connect failure: %v", evt.Reason)})
	case *events.TemporaryBan:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: fmt.Errorf("temporary ban: %s", evt.String())})
	case *events.ClientOutdated:
		c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: fmt.Errorf("client outdated")})
	}
}

// pumpQR forwards QR channel items until the channel closes (link success,
// timeout or client shutdown).
func (c *client) pumpQR(items <-chan whatsmeow.QRChannelItem) {
	for item := range items {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emit(domain.ConnectionUpdate{QR: item.Code, Connection: domain.ConnectionConnecting})
		case whatsmeow.QRChannelSuccess.Event:
			// events.Connected follows once the linked device logs in.
		case whatsmeow.QRChannelTimeout.Event:
			c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: domain.ErrLinkTimeout})
		case whatsmeow.QRChannelEventError:
			c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: fmt.Errorf("qr channel: %w", item.Error)})
		default:
			c.emit(domain.ConnectionUpdate{Connection: domain.ConnectionClose, Err: fmt.Errorf("qr channel: %s", item.Event)})
		}
	}
}
