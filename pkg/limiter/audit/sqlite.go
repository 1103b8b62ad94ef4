package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for a durable audit trail.
// It uses WAL mode for concurrent read performance and prepared
// statements on the hot write path. Suitable for single-instance
// deployments, which is the only topology the limiter targets.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	saveStmt   *sql.Stmt
	recentStmt *sql.Stmt
	pruneStmt  *sql.Stmt

	closeOnce sync.Once
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the audit database at path
// with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig opens the audit database with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

// initSchema creates the audit table if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admission_events (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		caller_key TEXT NOT NULL,
		allowed INTEGER NOT NULL,
		remaining INTEGER NOT NULL,
		quota INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admission_events_ts ON admission_events(ts);
	CREATE INDEX IF NOT EXISTS idx_admission_events_endpoint ON admission_events(endpoint);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO admission_events (id, ts, endpoint, caller_key, allowed, remaining, quota)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, ts, endpoint, caller_key, allowed, remaining, quota
		FROM admission_events
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM admission_events
		WHERE ts < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Save persists one event.
func (s *SQLiteStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == "" {
		return fmt.Errorf("event id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := 0
	if event.Allowed {
		allowed = 1
	}

	_, err := s.saveStmt.ExecContext(ctx,
		event.ID,
		event.Time.UnixNano(),
		event.Endpoint,
		event.CallerKey,
		allowed,
		event.Remaining,
		event.Limit,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event   Event
			ts      int64
			allowed int
		)
		if err := rows.Scan(&event.ID, &ts, &event.Endpoint, &event.CallerKey, &allowed, &event.Remaining, &event.Limit); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		event.Time = time.Unix(0, ts)
		event.Allowed = allowed != 0
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

// Prune deletes events older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.pruneStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		if s.saveStmt != nil {
			s.saveStmt.Close()
		}
		if s.recentStmt != nil {
			s.recentStmt.Close()
		}
		if s.pruneStmt != nil {
			s.pruneStmt.Close()
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
