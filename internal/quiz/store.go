package quiz

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound means no session exists for the learner key.
	ErrSessionNotFound = errors.New("quiz session not found")

	// ErrConflict means a save lost an optimistic-version race. The
	// losing turn is rejected, never merged.
	ErrConflict = errors.New("quiz session modified concurrently")
)

// SessionStore persists at most one session per learner key.
//
// Save is version-checked: a session loaded at version N only saves if
// the row is still at version N. Together with the orchestrator's
// per-key lock this serializes all turns for one learner; turns for
// different learners never contend.
type SessionStore interface {
	Load(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID string) error
}
