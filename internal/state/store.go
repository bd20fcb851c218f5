// Package state persists per-user student records across sessions.
// Three interchangeable backends (relational, blob, local disk) share
// one contract: Load returns a zeroed state when nothing usable exists,
// Save is last-writer-wins per user. The backend is chosen once at
// startup by a fixed priority chain.
package state

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// Store is the backend-agnostic persistence contract.
type Store interface {
	// Load returns the user's state. An unknown user or an unreadable
	// payload yields a fresh zeroed state, never an error; Load fails
	// only when the backend itself cannot serve requests.
	Load(ctx context.Context, userID string) (*model.StudentState, error)

	// Save writes the user's state, last-writer-wins.
	Save(ctx context.Context, userID string, st *model.StudentState) error

	// Close releases backend resources.
	Close() error
}

// StoreUnavailable reports that the configured backend cannot serve
// requests. Fatal to the caller; nothing is partially written.
type StoreUnavailable struct {
	Backend string
	Err     error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("state backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

var userIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeUserID maps an arbitrary caller-supplied id onto a key safe
// for filenames, blob names and primary keys. Runs of disallowed
// characters collapse to one underscore; an id that sanitizes to
// nothing becomes "default".
func SanitizeUserID(userID string) string {
	cleaned := userIDUnsafe.ReplaceAllString(strings.TrimSpace(userID), "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "default"
	}
	return cleaned
}
