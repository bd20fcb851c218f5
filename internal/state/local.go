package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// DefaultLocalDir is used when no directory is configured.
const DefaultLocalDir = ".data/state"

// LocalStore keeps one JSON file per user under a directory. The last
// link in the backend chain; it needs nothing but a writable disk.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if dir == "" {
		dir = DefaultLocalDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreUnavailable{Backend: "local", Err: err}
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.dir, key+".json")
}

func (l *LocalStore) Load(_ context.Context, userID string) (*model.StudentState, error) {
	payload, err := os.ReadFile(l.path(SanitizeUserID(userID)))
	if os.IsNotExist(err) {
		return model.NewStudentState(), nil
	}
	if err != nil {
		return nil, &StoreUnavailable{Backend: "local", Err: err}
	}

	var st model.StudentState
	if err := json.Unmarshal(payload, &st); err != nil {
		// A corrupt file resets the user rather than wedging them forever.
		l.logger.Warn("state file unreadable, starting fresh", "user_id", userID, "error", err)
		return model.NewStudentState(), nil
	}
	if st.DomainStats == nil {
		st.DomainStats = make(map[string]model.DomainStat)
	}
	return &st, nil
}

// Save writes atomically: temp file in the same directory, then rename.
// A crashed save leaves the previous state intact.
func (l *LocalStore) Save(_ context.Context, userID string, st *model.StudentState) error {
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, "state-*.tmp")
	if err != nil {
		return &StoreUnavailable{Backend: "local", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return &StoreUnavailable{Backend: "local", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StoreUnavailable{Backend: "local", Err: err}
	}
	if err := os.Rename(tmp.Name(), l.path(SanitizeUserID(userID))); err != nil {
		return &StoreUnavailable{Backend: "local", Err: err}
	}
	return nil
}

func (l *LocalStore) Close() error { return nil }
