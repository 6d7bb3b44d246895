package domain

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionMode records which linking flow created a session.
type SessionMode string

const (
	ModePair SessionMode = "pair"
	ModeQR   SessionMode = "qr"
)

// Session is one linking attempt backed by its own credential directory.
type Session struct {
	ID        string
	Dir       string
	Mode      SessionMode
	CreatedAt time.Time
}

// SessionMetadata is the bookkeeping persisted next to the credentials.
type SessionMetadata struct {
	ID        string      `json:"id"`
	Mode      SessionMode `json:"mode"`
	CreatedAt time.Time   `json:"created_at"`
	Linked    bool        `json:"linked"`
	LinkedAt  *time.Time  `json:"linked_at,omitempty"`
}

// NewSessionID returns prefix followed by 32 hex characters taken from a random UUID.
func NewSessionID(prefix string) string {
	id := uuid.New()
	return prefix + hex.EncodeToString(id[:])
}

// ValidSessionID reports whether id can be used as a single path element.
func ValidSessionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// SessionStore maps session IDs to credential directories.
type SessionStore interface {
	Create(ctx context.Context, id string, mode SessionMode) (Session, error)
	MarkLinked(id string, at time.Time) error
	Remove(id string) error
	Count() (int, error)
}
