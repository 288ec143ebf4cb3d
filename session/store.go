package session

import (
	"context"
	"errors"

	"c4arch/workspace"
)

// ErrSessionNotFound is returned when a session is neither live nor stored.
var ErrSessionNotFound = errors.New("session not found")

// Store persists workspace state between requests and restarts.
type Store interface {
	Save(ctx context.Context, sessionID string, state *workspace.State) error
	// Load returns ErrSessionNotFound for unknown or expired sessions.
	Load(ctx context.Context, sessionID string) (*workspace.State, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}
