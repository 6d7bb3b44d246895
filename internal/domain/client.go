package domain

import "context"

type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClose      ConnectionState = "close"
)

// ConnectionUpdate is one item of a client's connection-state stream. QR is set when
// a fresh QR payload is available. A close update carrying Err is terminal.
type ConnectionUpdate struct {
	QR         string
	Connection ConnectionState
	Err        error
}

// Terminal reports whether the client will not recover from this update.
func (u ConnectionUpdate) Terminal() bool {
	return u.Connection == ConnectionClose && u.Err != nil
}

// ProtocolClient is a connected WhatsApp multi-device client bound to one session.
// Credential updates are persisted by the client itself for as long as it lives.
type ProtocolClient interface {
	// Updates is closed once the client is closed.
	Updates() <-chan ConnectionUpdate
	RequestPairingCode(ctx context.Context, phoneNumber string) (string, error)
	SendText(ctx context.Context, jid, text string) error
	Close()
}

// ClientFactory creates and connects a protocol client over a session's credential state.
type ClientFactory interface {
	NewClient(ctx context.Context, session Session) (ProtocolClient, error)
}
