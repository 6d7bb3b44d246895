package whatsapp

import (
	"context"
	"fmt"
	"path/filepath"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

const (
	sqliteDialect   = "sqlite"
	credentialsFile = "creds.db"
)

// Factory creates whatsmeow clients, one credential database per session.
type Factory struct {
	log         waLog.Logger
	displayName string
}

// NewFactory sets the companion device identity shown in the phone's linked devices
// list. whatsmeow keeps that identity in package-level state, so there should be a
// single Factory per process.
func NewFactory(browserName string, log waLog.Logger) *Factory {
	store.SetOSInfo(browserName, [3]uint32{3, 0, 0})
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_SAFARI.Enum()

	return &Factory{
		log:         log,
		displayName: fmt.Sprintf("Safari (%s)", browserName),
	}
}

// NewClient opens the session's credential store, subscribes to QR codes and connects.
func (f *Factory) NewClient(ctx context.Context, session domain.Session) (domain.ProtocolClient, error) {
	container, err := sqlstore.New(ctx, sqliteDialect, credentialsDSN(session.Dir), f.log.Sub("Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	wa := whatsmeow.NewClient(container.NewDevice(), f.log.Sub("Client"))

	lifetime, cancel := context.WithCancel(context.Background())
	c := &client{
		sessionID:   session.ID,
		wa:          wa,
		container:   container,
		displayName: f.displayName,
		cancel:      cancel,
		updates:     make(chan domain.ConnectionUpdate, updateBuffer),
	}
	wa.AddEventHandler(c.handleEvent)

	// The QR channel must exist before Connect so the first code is not missed.
	qrItems, err := wa.GetQRChannel(lifetime)
	if err != nil {
		cancel()
		_ = container.Close()
		return nil, fmt.Errorf("failed to open QR channel: %w", err)
	}

	if err := wa.Connect(); err != nil {
		cancel()
		_ = container.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	go c.pumpQR(qrItems)
	return c, nil
}

func credentialsDSN(dir string) string {
	return "file:" + filepath.Join(dir, credentialsFile) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
