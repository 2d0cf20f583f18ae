package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"custody/internal/config"
	"custody/internal/logging"
)

// Action identifies the custody-relevant operation an event records.
type Action string

const (
	ActionManifestCreated Action = "manifest_created"
	ActionDerivativeAdded Action = "derivative_added"
	ActionProxyCreated    Action = "proxy_created"
	ActionCaseExported    Action = "case_exported"
	ActionCaseVerified    Action = "case_verified"
)

// Event is one append-only journal entry. The journal is advisory: the
// canonical manifest remains the source of truth for what evidence exists.
type Event struct {
	ID        string
	CaseDir   string
	Action    Action
	Path      string
	SHA256    string
	Detail    string
	CreatedAt time.Time
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies the
// schema. The database lives under the configured log directory, never
// inside a case directory, so exports stay deterministic.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.AuditDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    case_dir TEXT NOT NULL,
    action TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    sha256 TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_case ON audit_events(case_dir, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Append inserts a journal entry, filling the ID and timestamp.
func (s *Store) Append(ctx context.Context, event Event) (Event, error) {
	if s == nil || s.db == nil {
		return Event{}, fmt.Errorf("audit store not open")
	}
	if strings.TrimSpace(event.CaseDir) == "" {
		return Event{}, fmt.Errorf("audit event requires case_dir")
	}
	if strings.TrimSpace(string(event.Action)) == "" {
		return Event{}, fmt.Errorf("audit event requires action")
	}

	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audit_events (id, case_dir, action, path, sha256, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.CaseDir,
		string(event.Action),
		event.Path,
		event.SHA256,
		event.Detail,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Event{}, fmt.Errorf("insert audit event: %w", err)
	}
	return event, nil
}

// Record appends best-effort: a nil store is a no-op, and an insert failure
// is logged but never fails the operation being journaled.
func (s *Store) Record(ctx context.Context, logger *slog.Logger, event Event) {
	if s == nil || s.db == nil {
		return
	}
	if _, err := s.Append(ctx, event); err != nil && logger != nil {
		logger.Warn("failed to record audit event",
			logging.String("action", string(event.Action)),
			logging.Error(err),
		)
	}
}

// ListByCase returns the journal for one case directory, oldest first.
func (s *Store) ListByCase(ctx context.Context, caseDir string, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit store not open")
	}

	query := `SELECT id, case_dir, action, path, sha256, detail, created_at
              FROM audit_events WHERE case_dir = ? ORDER BY created_at ASC, id ASC`
	args := []any{caseDir}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var action string
		var createdAt string
		if err := rows.Scan(&event.ID, &event.CaseDir, &action, &event.Path, &event.SHA256, &event.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = parsed
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
