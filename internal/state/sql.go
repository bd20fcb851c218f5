package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
)

// Driver selects the relational backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// SQLStore keeps student state in a relational database. It also acts
// as the durable llm.EventSink: every model call lands in model_calls.
type SQLStore struct {
	db     *sql.DB
	driver Driver
	logger *slog.Logger
}

// OpenSQL opens the database, verifies connectivity and ensures schema.
func OpenSQL(ctx context.Context, driver Driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:cloudtutor.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/cloudtutor?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported state driver: %s", driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, &StoreUnavailable{Backend: string(driver), Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StoreUnavailable{Backend: string(driver), Err: err}
	}

	s := &SQLStore{db: db, driver: driver, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, &StoreUnavailable{Backend: string(driver), Err: err}
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites ? placeholders to $n for postgres. Queries are written
// once in sqlite style.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Load(ctx context.Context, userID string) (*model.StudentState, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT payload FROM student_state WHERE user_id = ?`),
		SanitizeUserID(userID),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewStudentState(), nil
	}
	if err != nil {
		return nil, &StoreUnavailable{Backend: string(s.driver), Err: err}
	}

	var st model.StudentState
	if err := json.Unmarshal(payload, &st); err != nil {
		s.logger.Warn("state row unreadable, starting fresh", "user_id", userID, "error", err)
		return model.NewStudentState(), nil
	}
	if st.DomainStats == nil {
		st.DomainStats = make(map[string]model.DomainStat)
	}
	return &st, nil
}

func (s *SQLStore) Save(ctx context.Context, userID string, st *model.StudentState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO student_state (user_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`),
		SanitizeUserID(userID), string(payload), time.Now().Unix(),
	)
	if err != nil {
		return &StoreUnavailable{Backend: string(s.driver), Err: err}
	}
	return nil
}

// RecordModelCall implements llm.EventSink. Failures here are logged and
// dropped by the caller, never surfaced to the session.
func (s *SQLStore) RecordModelCall(ctx context.Context, ev llm.CallEvent) error {
	success := 0
	if ev.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO model_calls
			(stage, model, input_tokens, output_tokens, latency_ms, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		ev.Stage, ev.Model, ev.InputTokens, ev.OutputTokens,
		ev.LatencyMs, success, ev.ErrorMessage, time.Now().Unix(),
	)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS student_state (
  user_id TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS model_calls (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  stage TEXT NOT NULL,
  model TEXT NOT NULL,
  input_tokens INTEGER NOT NULL DEFAULT 0,
  output_tokens INTEGER NOT NULL DEFAULT 0,
  latency_ms INTEGER NOT NULL DEFAULT 0,
  success INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS student_state (
  user_id TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_calls (
  id BIGSERIAL PRIMARY KEY,
  stage TEXT NOT NULL,
  model TEXT NOT NULL,
  input_tokens INTEGER NOT NULL DEFAULT 0,
  output_tokens INTEGER NOT NULL DEFAULT 0,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  success INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
`
