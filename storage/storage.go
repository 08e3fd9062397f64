// Package storage persists conversation sessions across process
// restarts.
//
// Information Hiding:
// - Backend schema and serialization details hidden
// - Callers pass opaque snapshots; the conversation owns the format
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session ID has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string
	UpdatedAt time.Time
}

// SessionStore persists conversation snapshots keyed by session ID.
type SessionStore interface {
	// SaveSession stores or replaces a session snapshot.
	SaveSession(ctx context.Context, id string, snapshot []byte) error

	// LoadSession returns a stored snapshot.
	LoadSession(ctx context.Context, id string) ([]byte, error)

	// ListSessions returns stored sessions, most recent first.
	ListSessions(ctx context.Context) ([]SessionInfo, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}
